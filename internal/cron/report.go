package cron

import (
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/vendibook/vendibook-backend/pkg/metrics"
)

// RowResult is the outcome of one booking or sale in a settlement run.
type RowResult struct {
	ID          uuid.UUID `json:"id"`
	Outcome     string    `json:"outcome"`
	TransferID  string    `json:"transfer_id,omitempty"`
	AmountCents int64     `json:"amount_cents,omitempty"`
	Message     string    `json:"message,omitempty"`
}

// Report summarizes a settlement run.
type Report struct {
	Job                   string      `json:"job"`
	Processed             int         `json:"processed"`
	Paid                  int         `json:"paid"`
	Deferred              int         `json:"deferred"`
	Failed                int         `json:"failed"`
	Skipped               int         `json:"skipped"`
	AvailableBalanceCents int64       `json:"available_balance_cents"`
	RemainingBalanceCents int64       `json:"remaining_balance_cents"`
	Results               []RowResult `json:"results"`

	errs error
}

func newReport(job string) *Report {
	return &Report{Job: job, Results: []RowResult{}}
}

func (r *Report) add(row RowResult, err error) {
	r.Processed++
	switch row.Outcome {
	case metrics.OutcomePaid:
		r.Paid++
	case metrics.OutcomeDeferred:
		r.Deferred++
	case metrics.OutcomeFailed:
		r.Failed++
	default:
		r.Skipped++
	}
	r.Results = append(r.Results, row)
	r.errs = multierr.Append(r.errs, err)
}

// fail records a run-level failure that is not tied to one row.
func (r *Report) fail(err error) {
	r.errs = multierr.Append(r.errs, err)
}

// Err combines the row and run-level failures of the run.
func (r *Report) Err() error {
	if r == nil {
		return nil
	}
	return r.errs
}
