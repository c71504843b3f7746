package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stripe/stripe-go/v84"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
		{code: CodePayeeNotPayable, status: http.StatusUnprocessableEntity, publicMsg: "payee has no payable account", detailsOK: true},
		{code: CodePaymentProvider, status: http.StatusBadGateway, publicMsg: "payment provider error", retryable: true, detailsOK: true},
		{code: CodeInsufficientBalance, status: http.StatusConflict, publicMsg: "insufficient platform balance", retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestHasCodeFollowsWrappedChain(t *testing.T) {
	inner := New(CodePaymentProvider, "card declined")
	outer := fmt.Errorf("refund booking: %w", inner)
	if !HasCode(outer, CodePaymentProvider) {
		t.Fatalf("expected provider code through wrapping")
	}
	if HasCode(outer, CodeValidation) {
		t.Fatalf("unexpected validation match")
	}
	if HasCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("connection reset"), "load booking")
	dump := Dump(err)
	if dump.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", dump.Chain)
	}
	if dump.Postgres != nil || dump.Processor != nil {
		t.Fatalf("expected no driver metadata, got %+v", dump)
	}
	if _, ok := dump.Fields()["pg_code"]; ok {
		t.Fatalf("empty postgres section should not be logged")
	}
}

func TestDumpExtractsPostgresAndProcessorDetail(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_ledger_events_type_processor_ref", TableName: "ledger_events"}
	dump := Dump(fmt.Errorf("insert ledger event: %w", pgErr))
	if dump.Postgres == nil || dump.Postgres.Code != "23505" {
		t.Fatalf("expected postgres detail, got %+v", dump.Postgres)
	}
	if code, constraint, ok := PostgresCode(pgErr); !ok || code != "23505" || constraint != "ux_ledger_events_type_processor_ref" {
		t.Fatalf("unexpected postgres code %q %q %v", code, constraint, ok)
	}

	stripeErr := &stripe.Error{
		Type:           stripe.ErrorTypeInvalidRequest,
		Code:           stripe.ErrorCodeBalanceInsufficient,
		RequestID:      "req_123",
		HTTPStatusCode: http.StatusBadRequest,
	}
	dump = Dump(Wrap(CodeInsufficientBalance, stripeErr, "transfer"))
	if dump.Processor == nil || dump.Processor.RequestID != "req_123" {
		t.Fatalf("expected processor detail, got %+v", dump.Processor)
	}
	fields := dump.Fields()
	if fields["processor_code"] != string(stripe.ErrorCodeBalanceInsufficient) {
		t.Fatalf("unexpected processor_code %v", fields["processor_code"])
	}
	if fields["error_code"] != CodeInsufficientBalance {
		t.Fatalf("unexpected error_code %v", fields["error_code"])
	}
}

func TestIsMatchesByCode(t *testing.T) {
	errBusy := New(CodeConflict, "job is already running")
	err := fmt.Errorf("trigger: %w", New(CodeConflict, "another message"))
	if !stdErrors.Is(err, errBusy) {
		t.Fatalf("expected code match through wrapping")
	}
	if stdErrors.Is(err, New(CodeNotFound, "")) {
		t.Fatalf("unexpected match on different code")
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{New(CodeInsufficientBalance, "low balance"), true},
		{New(CodePaymentProvider, "card declined"), true},
		{New(CodeStateConflict, "already paid"), false},
		{Newf(CodeValidation, "amount %d", -1), false},
		{stdErrors.New("plain"), true},
		{nil, false},
	}
	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Fatalf("IsRetryable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
