package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	Moderation    ModerationConfig
	GCP           GCPConfig
	GCS           GCSConfig
	Media         MediaConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Cache         CacheConfig
	Outbox        OutboxConfig
	Orders        OrdersConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"COOKERZ_APP_ENV" required:"true"`
	Port         string `envconfig:"COOKERZ_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"COOKERZ_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COOKERZ_LOG_WARN_STACK" default:"false"`
	CORSOrigins  string `envconfig:"COOKERZ_CORS_ALLOWED_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AllowedOrigins splits the comma separated CORS origin list.
func (a AppConfig) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(a.CORSOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

type ServiceConfig struct {
	Kind string `envconfig:"COOKERZ_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"COOKERZ_DB_DSN"`
	Driver string `envconfig:"COOKERZ_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"COOKERZ_DB_HOST"`
	LegacyPort     int    `envconfig:"COOKERZ_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"COOKERZ_DB_USER"`
	LegacyPassword string `envconfig:"COOKERZ_DB_PASSWORD"`
	LegacyName     string `envconfig:"COOKERZ_DB_NAME"`
	LegacySSLMode  string `envconfig:"COOKERZ_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COOKERZ_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COOKERZ_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COOKERZ_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COOKERZ_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COOKERZ_REDIS_URL" required:"true"`
	Address      string        `envconfig:"COOKERZ_REDIS_ADDR"`
	Password     string        `envconfig:"COOKERZ_REDIS_PASSWORD"`
	DB           int           `envconfig:"COOKERZ_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COOKERZ_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COOKERZ_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COOKERZ_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COOKERZ_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COOKERZ_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"COOKERZ_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"COOKERZ_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"COOKERZ_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"COOKERZ_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"COOKERZ_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"COOKERZ_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"COOKERZ_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"COOKERZ_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"COOKERZ_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"COOKERZ_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"COOKERZ_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"COOKERZ_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"COOKERZ_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"COOKERZ_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"COOKERZ_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"COOKERZ_AUTO_MIGRATE" default:"false"`
	// ISOWeeks switches the default weekly analytics numbering to ISO-8601.
	ISOWeeks bool `envconfig:"COOKERZ_ANALYTICS_ISO_WEEKS" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"COOKERZ_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type ModerationConfig struct {
	BaseURL    string        `envconfig:"COOKERZ_MODERATION_BASE_URL" default:"https://api.openai.com"`
	APIKey     string        `envconfig:"COOKERZ_MODERATION_API_KEY"`
	TextModel  string        `envconfig:"COOKERZ_MODERATION_TEXT_MODEL" default:"omni-moderation-latest"`
	ImageModel string        `envconfig:"COOKERZ_MODERATION_IMAGE_MODEL" default:"gpt-4o-mini"`
	Timeout    time.Duration `envconfig:"COOKERZ_MODERATION_TIMEOUT" default:"15s"`
}

// Enabled reports whether an API key was configured.
func (m ModerationConfig) Enabled() bool {
	return strings.TrimSpace(m.APIKey) != ""
}

type GCPConfig struct {
	ProjectID              string `envconfig:"COOKERZ_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"COOKERZ_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"COOKERZ_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"COOKERZ_GCS_BUCKET_NAME" required:"true"`
	PublicBaseURL string `envconfig:"COOKERZ_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"COOKERZ_MAX_UPLOAD_MB" default:"8"`
}

// MaxUploadBytes returns the upload ceiling in bytes.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 8 << 20
	}
	return int64(m.MaxUploadMB) << 20
}

type PubSubConfig struct {
	ChangesTopic          string `envconfig:"COOKERZ_PUBSUB_CHANGES_TOPIC" required:"true"`
	RealtimeSubscription  string `envconfig:"COOKERZ_PUBSUB_REALTIME_SUBSCRIPTION" required:"true"`
	AnalyticsSubscription string `envconfig:"COOKERZ_PUBSUB_ANALYTICS_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset         string `envconfig:"COOKERZ_BIGQUERY_DATASET" default:"cookerz"`
	OrderFactsTable string `envconfig:"COOKERZ_BIGQUERY_ORDER_FACTS_TABLE" default:"order_facts"`
}

type CacheConfig struct {
	Namespace string        `envconfig:"COOKERZ_CACHE_NAMESPACE" default:"cookerz"`
	TTL       time.Duration `envconfig:"COOKERZ_CACHE_TTL" default:"5m"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"COOKERZ_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"COOKERZ_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"COOKERZ_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type OrdersConfig struct {
	StaleCreatedTTL time.Duration `envconfig:"COOKERZ_ORDERS_STALE_CREATED_TTL" default:"2h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"COOKERZ_CRON_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"COOKERZ_CRON_LOCK_TTL" default:"4m"`
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
