// Package app assembles the settlement services shared by the api and
// cron-worker binaries.
package app

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/vendibook/vendibook-backend/internal/bookings"
	"github.com/vendibook/vendibook-backend/internal/cron"
	"github.com/vendibook/vendibook-backend/internal/fees"
	"github.com/vendibook/vendibook-backend/internal/ledger"
	"github.com/vendibook/vendibook-backend/internal/notifications"
	"github.com/vendibook/vendibook-backend/internal/payees"
	"github.com/vendibook/vendibook-backend/internal/payoutoverride"
	"github.com/vendibook/vendibook-backend/internal/refunds"
	"github.com/vendibook/vendibook-backend/internal/sales"
	"github.com/vendibook/vendibook-backend/internal/users"
	"github.com/vendibook/vendibook-backend/pkg/config"
	"github.com/vendibook/vendibook-backend/pkg/logger"
	"github.com/vendibook/vendibook-backend/pkg/mailer"
	"github.com/vendibook/vendibook-backend/pkg/metrics"
	"github.com/vendibook/vendibook-backend/pkg/pubsub"
	"github.com/vendibook/vendibook-backend/pkg/stripe"
)

// Params are the already-connected clients the services are built on.
type Params struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         *gorm.DB
	Stripe     *stripe.Client
	Push       *pubsub.Client
	Registerer prometheus.Registerer
}

// Services is the wired settlement core.
type Services struct {
	Bookings      bookings.Service
	Refunds       refunds.Service
	Overrides     payoutoverride.Service
	Jobs          []cron.Settler
	Retention     cron.Job
	Dispatcher    *notifications.Dispatcher
	CronMetrics   *metrics.CronJobMetrics
	SettleMetrics *metrics.SettlementMetrics
}

// New builds every settlement service over one database handle and one
// notification dispatcher. Mail is disabled when SMTP is not configured and
// push is disabled when Push is nil.
func New(ctx context.Context, p Params) (*Services, error) {
	if p.Config == nil || p.Logger == nil || p.DB == nil || p.Stripe == nil {
		return nil, errors.New("config, logger, db and stripe are required")
	}
	cfg, logg := p.Config, p.Logger
	reg := p.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	calc, err := fees.NewCalculator(fees.Rates{
		RenterPercent:     cfg.Fees.RenterPercent(),
		HostPercent:       cfg.Fees.HostPercent(),
		SettlementPercent: cfg.Fees.SettlementPercent(),
	})
	if err != nil {
		return nil, err
	}

	userRepo := users.NewRepository(p.DB)
	bookingRepo := bookings.NewRepository(p.DB)
	notificationRepo := notifications.NewRepository(p.DB)
	payeeSvc, err := payees.NewService(payees.NewRepository(p.DB))
	if err != nil {
		return nil, err
	}
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(p.DB))
	if err != nil {
		return nil, err
	}

	dispatcher, err := newDispatcher(ctx, cfg, logg, notificationRepo, userRepo, p.Push)
	if err != nil {
		return nil, err
	}

	cronMetrics := metrics.NewCronJobMetrics(reg)
	settleMetrics := metrics.NewSettlementMetrics(reg)

	bookingSvc, err := bookings.NewService(bookings.ServiceParams{
		Repo:       bookingRepo,
		Payees:     payeeSvc,
		Checkout:   p.Stripe,
		Calculator: calc,
		Logger:     logg,
		Stripe:     cfg.Stripe,
		HoldDays:   cfg.Fees.AuthorizationHoldDays,
	})
	if err != nil {
		return nil, err
	}

	refundSvc, err := refunds.NewService(refunds.ServiceParams{
		Bookings: bookingRepo,
		Admins:   userRepo,
		Refunds:  p.Stripe,
		Ledger:   ledgerSvc,
		Notifier: dispatcher,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}

	overrideSvc, err := payoutoverride.NewService(payoutoverride.ServiceParams{
		Bookings:   bookingRepo,
		Notes:      payoutoverride.NewNotesRepository(p.DB),
		Admins:     userRepo,
		Payees:     payeeSvc,
		Gateway:    p.Stripe,
		Calculator: calc,
		Ledger:     ledgerSvc,
		Notifier:   dispatcher,
		Metrics:    settleMetrics,
		Logger:     logg,
		Currency:   cfg.Stripe.Currency,
	})
	if err != nil {
		return nil, err
	}

	jobs, err := cron.NewSettlementJobs(cron.SettlementParams{
		Logger:     logg,
		Bookings:   bookingRepo,
		Sales:      sales.NewRepository(p.DB),
		Payees:     payeeSvc,
		Gateway:    p.Stripe,
		Calculator: calc,
		Ledger:     ledgerSvc,
		Notifier:   dispatcher,
		Metrics:    settleMetrics,
		Currency:   cfg.Stripe.Currency,
	}, cfg.Fees.SaleAutoReleaseDays)
	if err != nil {
		return nil, err
	}

	retention, err := cron.NewNotificationRetentionJob(cron.NotificationRetentionJobParams{
		Logger:     logg,
		Repository: notificationRepo,
		Retention:  cfg.Cron.NotificationRetentionDays,
	})
	if err != nil {
		return nil, err
	}

	return &Services{
		Bookings:      bookingSvc,
		Refunds:       refundSvc,
		Overrides:     overrideSvc,
		Jobs:          jobs,
		Retention:     retention,
		Dispatcher:    dispatcher,
		CronMetrics:   cronMetrics,
		SettleMetrics: settleMetrics,
	}, nil
}

// Registry returns a cron registry holding every settlement job, plus the
// notification retention job when includeMaintenance is set.
func (s *Services) Registry(includeMaintenance bool) *cron.Registry {
	registry := cron.NewRegistry()
	for _, job := range s.Jobs {
		registry.Register(job)
	}
	if includeMaintenance {
		registry.Register(s.Retention)
	}
	return registry
}

func newDispatcher(ctx context.Context, cfg *config.Config, logg *logger.Logger, repo notifications.Repository, contacts *users.Repository, push *pubsub.Client) (*notifications.Dispatcher, error) {
	params := notifications.DelivererParams{Repo: repo}

	mail, err := mailer.New(cfg.Mail)
	switch {
	case errors.Is(err, mailer.ErrDisabled):
		logg.Warn(ctx, "smtp not configured; email notifications disabled")
	case err != nil:
		return nil, err
	default:
		params.Mail = mail
		params.Contacts = contacts
	}
	if push != nil {
		params.Push = push
	}

	deliverer, err := notifications.NewDeliverer(params)
	if err != nil {
		return nil, err
	}
	return notifications.NewDispatcher(deliverer, cfg.Notifications, logg)
}
