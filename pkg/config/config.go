package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	FeatureFlags  FeatureFlagsConfig
	Fees          FeesConfig
	Cron          CronConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Stripe        StripeConfig
	Mail          MailConfig
	Notifications NotificationsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Fees.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VENDIBOOK_APP_ENV" required:"true"`
	Port         string `envconfig:"VENDIBOOK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VENDIBOOK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VENDIBOOK_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"VENDIBOOK_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"VENDIBOOK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"VENDIBOOK_DB_DSN"`
	Driver string `envconfig:"VENDIBOOK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VENDIBOOK_DB_HOST"`
	LegacyPort     int    `envconfig:"VENDIBOOK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VENDIBOOK_DB_USER"`
	LegacyPassword string `envconfig:"VENDIBOOK_DB_PASSWORD"`
	LegacyName     string `envconfig:"VENDIBOOK_DB_NAME"`
	LegacySSLMode  string `envconfig:"VENDIBOOK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VENDIBOOK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VENDIBOOK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VENDIBOOK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VENDIBOOK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"VENDIBOOK_DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VENDIBOOK_REDIS_URL"`
	Address      string        `envconfig:"VENDIBOOK_REDIS_ADDR"`
	Password     string        `envconfig:"VENDIBOOK_REDIS_PASSWORD"`
	DB           int           `envconfig:"VENDIBOOK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VENDIBOOK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VENDIBOOK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VENDIBOOK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VENDIBOOK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VENDIBOOK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VENDIBOOK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VENDIBOOK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VENDIBOOK_JWT_EXPIRATION_MINUTES" default:"60"`
	// ServiceToken is the static bearer credential accepted by cron endpoints
	// in addition to service-role JWTs. Empty disables it.
	ServiceToken string `envconfig:"VENDIBOOK_SERVICE_ROLE_TOKEN"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VENDIBOOK_AUTO_MIGRATE" default:"false"`
}

// FeesConfig holds marketplace pricing knobs. Percentages are expressed as
// whole percents (12.9 means 12.9%).
type FeesConfig struct {
	RentalRenterFeePercent string `envconfig:"VENDIBOOK_RENTAL_RENTER_FEE_PERCENT" default:"12.9"`
	RentalHostFeePercent   string `envconfig:"VENDIBOOK_RENTAL_HOST_FEE_PERCENT" default:"12.9"`
	SettlementFeePercent   string `envconfig:"VENDIBOOK_SETTLEMENT_PLATFORM_FEE_PERCENT" default:"10"`
	SaleAutoReleaseDays    int    `envconfig:"VENDIBOOK_SALE_AUTO_RELEASE_DAYS" default:"25"`
	AuthorizationHoldDays  int    `envconfig:"VENDIBOOK_AUTHORIZATION_HOLD_DAYS" default:"7"`
}

func (f FeesConfig) RenterPercent() decimal.Decimal {
	return decimal.RequireFromString(f.RentalRenterFeePercent)
}

func (f FeesConfig) HostPercent() decimal.Decimal {
	return decimal.RequireFromString(f.RentalHostFeePercent)
}

func (f FeesConfig) SettlementPercent() decimal.Decimal {
	return decimal.RequireFromString(f.SettlementFeePercent)
}

func (f FeesConfig) validate() error {
	for env, raw := range map[string]string{
		EnvRenterFeePercent:     f.RentalRenterFeePercent,
		EnvHostFeePercent:       f.RentalHostFeePercent,
		EnvSettlementFeePercent: f.SettlementFeePercent,
	} {
		pct, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
		if pct.IsNegative() || pct.GreaterThanOrEqual(decimal.NewFromInt(100)) {
			return fmt.Errorf("%s must be within [0, 100), got %s", env, raw)
		}
	}
	if f.SaleAutoReleaseDays <= 0 {
		return fmt.Errorf("%s must be positive", EnvSaleAutoReleaseDays)
	}
	if f.AuthorizationHoldDays <= 0 || f.AuthorizationHoldDays > 7 {
		return fmt.Errorf("%s must be between 1 and 7", EnvAuthorizationHoldDays)
	}
	return nil
}

type CronConfig struct {
	BookingCompletionInterval time.Duration `envconfig:"VENDIBOOK_CRON_BOOKING_COMPLETION_INTERVAL" default:"1h"`
	SaleAutoReleaseInterval   time.Duration `envconfig:"VENDIBOOK_CRON_SALE_AUTO_RELEASE_INTERVAL" default:"6h"`
	PayoutRetryInterval       time.Duration `envconfig:"VENDIBOOK_CRON_PAYOUT_RETRY_INTERVAL" default:"2h"`
	NotificationInterval      time.Duration `envconfig:"VENDIBOOK_CRON_NOTIFICATION_RETENTION_INTERVAL" default:"24h"`
	NotificationRetentionDays int           `envconfig:"VENDIBOOK_NOTIFICATION_RETENTION_DAYS" default:"90"`
	LockTTL                   time.Duration `envconfig:"VENDIBOOK_CRON_LOCK_TTL" default:"30m"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"VENDIBOOK_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	PushTopic string `envconfig:"VENDIBOOK_PUBSUB_PUSH_TOPIC" default:"vb-push-notifications"`
}

type StripeConfig struct {
	APIKey     string        `envconfig:"VENDIBOOK_STRIPE_API_KEY"`
	Env        string        `envconfig:"VENDIBOOK_STRIPE_ENV" default:"test"`
	Currency   string        `envconfig:"VENDIBOOK_STRIPE_CURRENCY" default:"usd"`
	MaxRetries int64         `envconfig:"VENDIBOOK_STRIPE_MAX_NETWORK_RETRIES" default:"2"`
	Timeout    time.Duration `envconfig:"VENDIBOOK_STRIPE_TIMEOUT" default:"30s"`
	SuccessURL string        `envconfig:"VENDIBOOK_CHECKOUT_SUCCESS_URL" default:"https://vendibook.com/bookings/{BOOKING_ID}?checkout=success"`
	CancelURL  string        `envconfig:"VENDIBOOK_CHECKOUT_CANCEL_URL" default:"https://vendibook.com/bookings/{BOOKING_ID}?checkout=cancelled"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type MailConfig struct {
	Host        string `envconfig:"VENDIBOOK_SMTP_HOST"`
	Port        int    `envconfig:"VENDIBOOK_SMTP_PORT" default:"587"`
	Username    string `envconfig:"VENDIBOOK_SMTP_USERNAME"`
	Password    string `envconfig:"VENDIBOOK_SMTP_PASSWORD"`
	FromAddress string `envconfig:"VENDIBOOK_MAIL_FROM" default:"notifications@vendibook.com"`
	FromName    string `envconfig:"VENDIBOOK_MAIL_FROM_NAME" default:"Vendibook"`
}

// Enabled reports whether SMTP delivery is configured.
func (m MailConfig) Enabled() bool {
	return strings.TrimSpace(m.Host) != ""
}

type NotificationsConfig struct {
	Workers     int           `envconfig:"VENDIBOOK_NOTIFICATION_WORKERS" default:"4"`
	QueueSize   int           `envconfig:"VENDIBOOK_NOTIFICATION_QUEUE_SIZE" default:"256"`
	TaskTimeout time.Duration `envconfig:"VENDIBOOK_NOTIFICATION_TASK_TIMEOUT" default:"15s"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
