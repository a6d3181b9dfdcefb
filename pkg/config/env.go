package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv          = "STOREFRONT_APP_ENV"
	EnvLogLevel        = "STOREFRONT_LOG_LEVEL"
	EnvLogFormat       = "STOREFRONT_LOG_FORMAT"
	EnvAPIBaseURL      = "STOREFRONT_API_BASE_URL"
	EnvAPITimeout      = "STOREFRONT_API_TIMEOUT"
	EnvRetryAttempts   = "STOREFRONT_RETRY_MAX_ATTEMPTS"
	EnvRetryBaseDelay  = "STOREFRONT_RETRY_BASE_DELAY"
	EnvStorageDriver   = "STOREFRONT_STORAGE_DRIVER"
	EnvRedisURL        = "STOREFRONT_REDIS_URL"
	EnvRedisAddr       = "STOREFRONT_REDIS_ADDR"
	EnvDBDSN           = "STOREFRONT_DB_DSN"
	EnvSQLitePath      = "STOREFRONT_SQLITE_PATH"
	EnvCartWriteBuffer = "STOREFRONT_CART_WRITE_BUFFER"
)
