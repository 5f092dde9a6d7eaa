package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Auth         AuthConfig
	GCP          GCPConfig
	Catalog      CatalogConfig
	Submission   SubmissionConfig
	FeatureFlags FeatureFlagsConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Auth.Provider {
	case AuthProviderJWT:
		if c.JWT.Secret == "" || c.JWT.Issuer == "" {
			return fmt.Errorf("%s and %s are required when %s=%s", EnvJWTSecret, EnvJWTIssuer, EnvAuthProvider, AuthProviderJWT)
		}
	case AuthProviderFirebase:
		if c.GCP.ProjectID == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvGCPProjectID, EnvAuthProvider, AuthProviderFirebase)
		}
	default:
		return fmt.Errorf("unsupported %s %q", EnvAuthProvider, c.Auth.Provider)
	}

	switch c.Catalog.Backend {
	case CatalogBackendPostgres:
	case CatalogBackendFirestore:
		if c.GCP.ProjectID == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvGCPProjectID, EnvCatalogBackend, CatalogBackendFirestore)
		}
	default:
		return fmt.Errorf("unsupported %s %q", EnvCatalogBackend, c.Catalog.Backend)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"ACERTAMAIS_APP_ENV" required:"true"`
	Port         string `envconfig:"ACERTAMAIS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ACERTAMAIS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ACERTAMAIS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"ACERTAMAIS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"ACERTAMAIS_DB_DSN"`
	Driver string `envconfig:"ACERTAMAIS_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"ACERTAMAIS_DB_HOST"`
	Port     int    `envconfig:"ACERTAMAIS_DB_PORT" default:"5432"`
	User     string `envconfig:"ACERTAMAIS_DB_USER"`
	Password string `envconfig:"ACERTAMAIS_DB_PASSWORD"`
	Name     string `envconfig:"ACERTAMAIS_DB_NAME"`
	SSLMode  string `envconfig:"ACERTAMAIS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ACERTAMAIS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ACERTAMAIS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ACERTAMAIS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ACERTAMAIS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL            string        `envconfig:"ACERTAMAIS_REDIS_URL" required:"true"`
	Address        string        `envconfig:"ACERTAMAIS_REDIS_ADDR"`
	Password       string        `envconfig:"ACERTAMAIS_REDIS_PASSWORD"`
	DB             int           `envconfig:"ACERTAMAIS_REDIS_DB" default:"0"`
	PoolSize       int           `envconfig:"ACERTAMAIS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns   int           `envconfig:"ACERTAMAIS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout    time.Duration `envconfig:"ACERTAMAIS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout    time.Duration `envconfig:"ACERTAMAIS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout   time.Duration `envconfig:"ACERTAMAIS_REDIS_WRITE_TIMEOUT" default:"5s"`
	IdempotencyTTL time.Duration `envconfig:"ACERTAMAIS_REDIS_IDEMPOTENCY_TTL" default:"24h"`
}

type JWTConfig struct {
	Secret            string `envconfig:"ACERTAMAIS_JWT_SECRET"`
	Issuer            string `envconfig:"ACERTAMAIS_JWT_ISSUER" default:"acertamais"`
	ExpirationMinutes int    `envconfig:"ACERTAMAIS_JWT_EXPIRATION_MINUTES" default:"60"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type AuthConfig struct {
	Provider string `envconfig:"ACERTAMAIS_AUTH_PROVIDER" default:"jwt"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"ACERTAMAIS_GCP_PROJECT_ID"`
	CredentialsFile string `envconfig:"ACERTAMAIS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type CatalogConfig struct {
	Backend             string        `envconfig:"ACERTAMAIS_CATALOG_BACKEND" default:"postgres"`
	BreakerMaxRequests  uint32        `envconfig:"ACERTAMAIS_CATALOG_BREAKER_MAX_REQUESTS" default:"1"`
	BreakerInterval     time.Duration `envconfig:"ACERTAMAIS_CATALOG_BREAKER_INTERVAL" default:"30s"`
	BreakerTimeout      time.Duration `envconfig:"ACERTAMAIS_CATALOG_BREAKER_TIMEOUT" default:"10s"`
	BreakerFailureRatio float64       `envconfig:"ACERTAMAIS_CATALOG_BREAKER_FAILURE_RATIO" default:"0.6"`
	BreakerMinRequests  uint32        `envconfig:"ACERTAMAIS_CATALOG_BREAKER_MIN_REQUESTS" default:"5"`
}

type SubmissionConfig struct {
	LockTTL time.Duration `envconfig:"ACERTAMAIS_SUBMISSION_LOCK_TTL" default:"30s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ACERTAMAIS_AUTO_MIGRATE" default:"false"`
}

type PubSubConfig struct {
	RequestsTopic string `envconfig:"ACERTAMAIS_PUBSUB_REQUESTS_TOPIC" default:"acertamais-request-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ACERTAMAIS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ACERTAMAIS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ACERTAMAIS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
