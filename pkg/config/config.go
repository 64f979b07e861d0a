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
	DB           DBConfig
	Redis        RedisConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Pagination   PaginationConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Outbox.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ENTITYREPO_APP_ENV" required:"true"`
	Port         string `envconfig:"ENTITYREPO_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ENTITYREPO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ENTITYREPO_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"ENTITYREPO_LOG_FORMAT" default:"json"`

	CORSAllowedOrigins []string `envconfig:"ENTITYREPO_CORS_ALLOWED_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"ENTITYREPO_DB_DSN"`
	Driver string `envconfig:"ENTITYREPO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ENTITYREPO_DB_HOST"`
	LegacyPort     int    `envconfig:"ENTITYREPO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ENTITYREPO_DB_USER"`
	LegacyPassword string `envconfig:"ENTITYREPO_DB_PASSWORD"`
	LegacyName     string `envconfig:"ENTITYREPO_DB_NAME"`
	LegacySSLMode  string `envconfig:"ENTITYREPO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ENTITYREPO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ENTITYREPO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ENTITYREPO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ENTITYREPO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the store runs on the embedded sqlite driver.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"ENTITYREPO_REDIS_URL"`
	Address      string        `envconfig:"ENTITYREPO_REDIS_ADDR"`
	Password     string        `envconfig:"ENTITYREPO_REDIS_PASSWORD"`
	DB           int           `envconfig:"ENTITYREPO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ENTITYREPO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ENTITYREPO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ENTITYREPO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ENTITYREPO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ENTITYREPO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ENTITYREPO_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ENTITYREPO_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ENTITYREPO_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic string `envconfig:"ENTITYREPO_PUBSUB_DOMAIN_TOPIC" default:"entityrepo-domain-events"`
}

type OutboxConfig struct {
	Sink           string `envconfig:"ENTITYREPO_OUTBOX_SINK" default:"redis"`
	Stream         string `envconfig:"ENTITYREPO_OUTBOX_STREAM" default:"entityrepo:domain-events"`
	StreamMaxLen   int64  `envconfig:"ENTITYREPO_OUTBOX_STREAM_MAXLEN" default:"10000"`
	BatchSize      int    `envconfig:"ENTITYREPO_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"ENTITYREPO_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"ENTITYREPO_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// PollInterval converts the configured poll interval to a duration.
func (o OutboxConfig) PollInterval() time.Duration {
	if o.PollIntervalMS <= 0 {
		return 0
	}
	return time.Duration(o.PollIntervalMS) * time.Millisecond
}

func (o OutboxConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(o.Sink)) {
	case OutboxSinkRedis, OutboxSinkPubSub:
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvOutboxSink, OutboxSinkRedis, OutboxSinkPubSub, o.Sink)
	}
}

type PaginationConfig struct {
	DefaultPageSize int `envconfig:"ENTITYREPO_PAGINATION_DEFAULT_PAGE_SIZE" default:"10"`
	MaxPageSize     int `envconfig:"ENTITYREPO_PAGINATION_MAX_PAGE_SIZE" default:"100"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"ENTITYREPO_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required when %s=%s", EnvDBDSN, EnvDBDriver, DBDriverSQLite)
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
