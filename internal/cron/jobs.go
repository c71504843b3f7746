package cron

import (
	"time"

	"github.com/vendibook/vendibook-backend/pkg/config"
)

// NewSettlementJobs builds the four settlement jobs in registration order.
func NewSettlementJobs(params SettlementParams, releaseDays int) ([]Settler, error) {
	completion, err := NewBookingCompletionJob(params)
	if err != nil {
		return nil, err
	}
	autoRelease, err := NewSaleAutoReleaseJob(params, releaseDays)
	if err != nil {
		return nil, err
	}
	saleRetry, err := NewSalePayoutRetryJob(params)
	if err != nil {
		return nil, err
	}
	rentalRetry, err := NewRentalPayoutRetryJob(params)
	if err != nil {
		return nil, err
	}
	return []Settler{completion, autoRelease, saleRetry, rentalRetry}, nil
}

// Intervals maps each job to its configured cadence.
func Intervals(cfg config.CronConfig) map[string]time.Duration {
	return map[string]time.Duration{
		BookingCompletionJobName:     cfg.BookingCompletionInterval,
		SaleAutoReleaseJobName:       cfg.SaleAutoReleaseInterval,
		SalePayoutRetryJobName:       cfg.PayoutRetryInterval,
		RentalPayoutRetryJobName:     cfg.PayoutRetryInterval,
		NotificationRetentionJobName: cfg.NotificationInterval,
	}
}
