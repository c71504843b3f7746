package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vendibook/vendibook-backend/pkg/enums"
	pkgerrors "github.com/vendibook/vendibook-backend/pkg/errors"
)

func TestRequestIDKeepsWellFormedHeader(t *testing.T) {
	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, holdPath, nil)
	req.Header.Set(requestIDHeader, "edge-req.42")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if seen != "edge-req.42" || rr.Header().Get(requestIDHeader) != "edge-req.42" {
		t.Fatalf("expected inbound id to be propagated, got ctx=%q header=%q", seen, rr.Header().Get(requestIDHeader))
	}
}

func TestRequestIDReplacesMalformedHeader(t *testing.T) {
	handler := RequestID(nil)(okHandler())
	req := httptest.NewRequest(http.MethodPost, holdPath, nil)
	req.Header.Set(requestIDHeader, "bad id\nwith newline"+strings.Repeat("x", 200))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	got := rr.Header().Get(requestIDHeader)
	if got == "" || strings.Contains(got, " ") {
		t.Fatalf("expected a minted request id, got %q", got)
	}
}

func TestRecovererWritesInternalEnvelope(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("settlement exploded")
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["success"] != false || body["code"] != string(pkgerrors.CodeInternal) {
		t.Fatalf("unexpected envelope %v", body)
	}
	if strings.Contains(rr.Body.String(), "settlement exploded") {
		t.Fatalf("panic value leaked to client: %s", rr.Body.String())
	}
}

func TestRecovererReraisesAbort(t *testing.T) {
	handler := Recoverer(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected abort to propagate, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func TestRequireRoleAcceptsAnyAllowedRole(t *testing.T) {
	handler := RequireRole(nil, enums.RoleService, enums.RoleAdmin)(okHandler())
	cases := []struct {
		role string
		want int
	}{
		{string(enums.RoleService), http.StatusOK},
		{string(enums.RoleAdmin), http.StatusOK},
		{string(enums.RoleUser), http.StatusForbidden},
		{"", http.StatusForbidden},
		{"root", http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(WithRole(req.Context(), tc.role))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != tc.want {
			t.Fatalf("role %q: expected %d, got %d", tc.role, tc.want, rr.Code)
		}
	}
}

func TestStatusRecorderCountsBytes(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	_, _ = rec.Write([]byte("hello"))
	rec.WriteHeader(http.StatusTeapot)
	if rec.status != http.StatusOK || rec.bytes != 5 {
		t.Fatalf("unexpected recorder state status=%d bytes=%d", rec.status, rec.bytes)
	}
}
