package config

const (
	EnvPrefix = "ENTITYREPO"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	OutboxSinkRedis  = "redis"
	OutboxSinkPubSub = "pubsub"
)

const (
	EnvAppEnv   = "ENTITYREPO_APP_ENV"
	EnvPort     = "ENTITYREPO_APP_PORT"
	EnvLogLevel = "ENTITYREPO_LOG_LEVEL"

	EnvDBDSN    = "ENTITYREPO_DB_DSN"
	EnvDBDriver = "ENTITYREPO_DB_DRIVER"
	EnvDBHost   = "ENTITYREPO_DB_HOST"
	EnvDBPort   = "ENTITYREPO_DB_PORT"
	EnvDBUser   = "ENTITYREPO_DB_USER"
	EnvDBPass   = "ENTITYREPO_DB_PASSWORD"
	EnvDBName   = "ENTITYREPO_DB_NAME"
	EnvDBSSL    = "ENTITYREPO_DB_SSLMODE"

	EnvRedisURL     = "ENTITYREPO_REDIS_URL"
	EnvGCPProjectID = "ENTITYREPO_GCP_PROJECT_ID"
	EnvPubSubTopic  = "ENTITYREPO_PUBSUB_DOMAIN_TOPIC"
	EnvOutboxSink   = "ENTITYREPO_OUTBOX_SINK"
	EnvOutboxPollMS = "ENTITYREPO_OUTBOX_PUBLISH_POLL_MS"
	EnvMaxPageSize  = "ENTITYREPO_PAGINATION_MAX_PAGE_SIZE"
	EnvAutoMigrate  = "ENTITYREPO_AUTO_MIGRATE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
