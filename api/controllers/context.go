package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/vendibook/vendibook-backend/api/middleware"
	pkgerrors "github.com/vendibook/vendibook-backend/pkg/errors"
)

func callerIDFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id in token")
	}
	return id, nil
}
