package config

const (
	EnvPrefix = "VENDIBOOK"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv    = "VENDIBOOK_APP_ENV"
	EnvPort      = "VENDIBOOK_APP_PORT"
	EnvDBDSN     = "VENDIBOOK_DB_DSN"
	EnvDBHost    = "VENDIBOOK_DB_HOST"
	EnvDBUser    = "VENDIBOOK_DB_USER"
	EnvDBName    = "VENDIBOOK_DB_NAME"
	EnvRedisURL  = "VENDIBOOK_REDIS_URL"
	EnvJWTSecret = "VENDIBOOK_JWT_SECRET"
	EnvJWTIssuer = "VENDIBOOK_JWT_ISSUER"

	EnvRenterFeePercent      = "VENDIBOOK_RENTAL_RENTER_FEE_PERCENT"
	EnvHostFeePercent        = "VENDIBOOK_RENTAL_HOST_FEE_PERCENT"
	EnvSettlementFeePercent  = "VENDIBOOK_SETTLEMENT_PLATFORM_FEE_PERCENT"
	EnvSaleAutoReleaseDays   = "VENDIBOOK_SALE_AUTO_RELEASE_DAYS"
	EnvAuthorizationHoldDays = "VENDIBOOK_AUTHORIZATION_HOLD_DAYS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
