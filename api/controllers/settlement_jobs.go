package controllers

import (
	"context"
	"net/http"

	"github.com/vendibook/vendibook-backend/api/responses"
	"github.com/vendibook/vendibook-backend/internal/cron"
	pkgerrors "github.com/vendibook/vendibook-backend/pkg/errors"
	"github.com/vendibook/vendibook-backend/pkg/logger"
)

// JobTrigger runs one registered settlement job on demand.
type JobTrigger interface {
	Trigger(ctx context.Context, name string) (*cron.Report, error)
}

// RunSettlementJob executes the named job once and returns its report. Row
// failures are part of the report; only a run-level failure is an error.
func RunSettlementJob(trigger JobTrigger, name string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if trigger == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "scheduler unavailable"))
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithField(ctx, "job", name)
		}

		report, err := trigger.Trigger(ctx, name)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if rowErrs := report.Err(); rowErrs != nil && logg != nil {
			logg.Warn(logg.WithField(ctx, "failed_rows", report.Failed), "settlement job finished with row failures")
		}
		responses.WriteSuccess(w, report)
	}
}
