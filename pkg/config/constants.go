package config

// EnvPrefix is empty because every field carries its fully qualified tag.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "COOKERZ_APP_ENV"
	EnvPort     = "COOKERZ_APP_PORT"
	EnvLogLevel = "COOKERZ_LOG_LEVEL"

	EnvDBDSN  = "COOKERZ_DB_DSN"
	EnvDBHost = "COOKERZ_DB_HOST"
	EnvDBUser = "COOKERZ_DB_USER"
	EnvDBName = "COOKERZ_DB_NAME"

	EnvRedisURL = "COOKERZ_REDIS_URL"

	EnvJWTSecret              = "COOKERZ_JWT_SECRET"
	EnvJWTIssuer              = "COOKERZ_JWT_ISSUER"
	EnvJWTExpMins             = "COOKERZ_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "COOKERZ_REFRESH_TOKEN_TTL_MINUTES"

	EnvGCPProjectID = "COOKERZ_GCP_PROJECT_ID"
	EnvGCSBucket    = "COOKERZ_GCS_BUCKET_NAME"

	EnvPubSubChangesTopic  = "COOKERZ_PUBSUB_CHANGES_TOPIC"
	EnvPubSubRealtimeSub   = "COOKERZ_PUBSUB_REALTIME_SUBSCRIPTION"
	EnvPubSubAnalyticsSub  = "COOKERZ_PUBSUB_ANALYTICS_SUBSCRIPTION"
	EnvOrdersStaleTTL      = "COOKERZ_ORDERS_STALE_CREATED_TTL"
	EnvModerationAPIKey    = "COOKERZ_MODERATION_API_KEY"
	EnvCORSAllowedOrigins  = "COOKERZ_CORS_ALLOWED_ORIGINS"
	EnvAnalyticsISOWeeks   = "COOKERZ_ANALYTICS_ISO_WEEKS"
	EnvMaxUploadMB         = "COOKERZ_MAX_UPLOAD_MB"
	EnvOutboxMaxAttempts   = "COOKERZ_OUTBOX_MAX_ATTEMPTS"
	EnvCacheTTL            = "COOKERZ_CACHE_TTL"
	EnvCronInterval        = "COOKERZ_CRON_INTERVAL"
	EnvBigQueryOrderFacts  = "COOKERZ_BIGQUERY_ORDER_FACTS_TABLE"
	EnvEventingIdempotency = "COOKERZ_EVENTING_IDEMPOTENCY_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
