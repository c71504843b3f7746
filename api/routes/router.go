package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vendibook/vendibook-backend/api/controllers"
	"github.com/vendibook/vendibook-backend/api/middleware"
	"github.com/vendibook/vendibook-backend/internal/bookings"
	"github.com/vendibook/vendibook-backend/internal/cron"
	"github.com/vendibook/vendibook-backend/internal/payoutoverride"
	"github.com/vendibook/vendibook-backend/internal/refunds"
	"github.com/vendibook/vendibook-backend/pkg/config"
	"github.com/vendibook/vendibook-backend/pkg/enums"
	"github.com/vendibook/vendibook-backend/pkg/logger"
	"github.com/vendibook/vendibook-backend/pkg/redis"
)

// Dependencies carries everything the HTTP surface needs.
type Dependencies struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency redis.IdempotencyStore
	Bookings    bookings.Service
	Refunds     refunds.Service
	Overrides   payoutoverride.Service
	Jobs        controllers.JobTrigger
	Gatherer    prometheus.Gatherer
}

func NewRouter(deps Dependencies) http.Handler {
	cfg, logg := deps.Config, deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}))
	})
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/functions/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(deps.Idempotency, logg))

			r.Post("/create-booking-hold", controllers.CreateBookingHold(deps.Bookings, logg))
			r.Post("/process-refund", controllers.ProcessRefund(deps.Refunds, logg))
			r.Post("/admin-release-payout", controllers.AdminReleasePayout(deps.Overrides, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.ServiceAuth(cfg.JWT, logg))
			r.Use(middleware.RequireRole(logg, enums.RoleService))

			for _, job := range []string{
				cron.BookingCompletionJobName,
				cron.SaleAutoReleaseJobName,
				cron.SalePayoutRetryJobName,
				cron.RentalPayoutRetryJobName,
			} {
				r.Post("/"+job, controllers.RunSettlementJob(deps.Jobs, job, logg))
			}
		})
	})

	return r
}
