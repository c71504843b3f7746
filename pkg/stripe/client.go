package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v84"

	"github.com/vendibook/vendibook-backend/pkg/config"
	"github.com/vendibook/vendibook-backend/pkg/logger"
)

const (
	testEnv = "test"
	liveEnv = "live"
)

var (
	errAPIKeyRequired   = errors.New("stripe api key is required")
	errInvalidStripeEnv = fmt.Errorf("stripe environment must be %q or %q", testEnv, liveEnv)
)

// Client wraps Stripe's API client plus env-specific metadata. It is the
// payment processor gateway for holds, transfers, refunds and balance reads.
type Client struct {
	api         *stripe.Client
	environment string
	currency    string
}

// NewClient initializes Stripe once with the configured key and env.
func NewClient(ctx context.Context, cfg config.StripeConfig, logg *logger.Logger) (*Client, error) {
	env, err := normalizeEnv(cfg.Environment())
	if err != nil {
		return nil, err
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	if err := validateAPIKey(env, apiKey); err != nil {
		return nil, err
	}

	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("stripe client initialized (%s)", env))
	}

	backends := stripe.NewBackendsWithConfig(backendConfig(cfg, logg))
	return &Client{
		api:         stripe.NewClient(apiKey, stripe.WithBackends(backends)),
		environment: env,
		currency:    currency,
	}, nil
}

// backendConfig sets network retries and the request timeout. Retries are
// safe because every mutating call carries an idempotency key.
func backendConfig(cfg config.StripeConfig, logg *logger.Logger) *stripe.BackendConfig {
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	bc := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(retries),
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
	}
	if logg != nil {
		bc.LeveledLogger = processorLogger{logg: logg}
	}
	return bc
}

// processorLogger routes the SDK's own log lines into the service logger.
type processorLogger struct {
	logg *logger.Logger
}

func (l processorLogger) ctx() context.Context {
	return l.logg.WithField(context.Background(), "component", "stripe")
}

func (l processorLogger) Debugf(format string, v ...any) {
	l.logg.Debug(l.ctx(), fmt.Sprintf(format, v...))
}

func (l processorLogger) Infof(format string, v ...any) {
	l.logg.Debug(l.ctx(), fmt.Sprintf(format, v...))
}

func (l processorLogger) Warnf(format string, v ...any) {
	l.logg.Warn(l.ctx(), fmt.Sprintf(format, v...))
}

func (l processorLogger) Errorf(format string, v ...any) {
	l.logg.Error(l.ctx(), fmt.Sprintf(format, v...), nil)
}

// Environment reports the normalized Stripe environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// Currency is the settlement currency used when callers leave it empty.
func (c *Client) Currency() string {
	if c == nil {
		return ""
	}
	return c.currency
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		env = testEnv
	}
	switch env {
	case testEnv, liveEnv:
		return env, nil
	default:
		return "", errInvalidStripeEnv
	}
}

func validateAPIKey(env, key string) error {
	switch env {
	case testEnv:
		if strings.HasPrefix(key, "sk_test") || strings.HasPrefix(key, "rk_test") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a test secret key (sk_test/rk_test)", testEnv)
	case liveEnv:
		if strings.HasPrefix(key, "sk_live") || strings.HasPrefix(key, "rk_live") {
			return nil
		}
		return fmt.Errorf("stripe environment %q requires a live secret key (sk_live/rk_live)", liveEnv)
	default:
		return errInvalidStripeEnv
	}
}
