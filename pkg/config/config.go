package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App         AppConfig
	API         APIConfig
	Shopify     ShopifyConfig
	DB          DBConfig
	Redis       RedisConfig
	Orders      OrdersConfig
	Revolve     RevolveConfig
	Sync        SyncConfig
	GCP         GCPConfig
	PubSub      PubSubConfig
	Idempotency IdempotencyConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ORDERBRIDGE_APP_ENV" required:"true"`
	Port         string `envconfig:"ORDERBRIDGE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"ORDERBRIDGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ORDERBRIDGE_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"ORDERBRIDGE_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// APIConfig holds the shared secret inbound callers present as a bearer token.
type APIConfig struct {
	Token string `envconfig:"ORDERBRIDGE_API_TOKEN" required:"true"`
}

type ShopifyConfig struct {
	APIVersion         string        `envconfig:"ORDERBRIDGE_SHOPIFY_API_VERSION" default:"2025-01"`
	APISecret          string        `envconfig:"ORDERBRIDGE_SHOPIFY_API_SECRET" required:"true"`
	DomainSuffix       string        `envconfig:"ORDERBRIDGE_SHOPIFY_DOMAIN_SUFFIX" default:".myshopify.com"`
	HTTPTimeout        time.Duration `envconfig:"ORDERBRIDGE_SHOPIFY_HTTP_TIMEOUT" default:"30s"`
	MetafieldNamespace string        `envconfig:"ORDERBRIDGE_SHOPIFY_METAFIELD_NAMESPACE" default:"nodnod"`
}

type DBConfig struct {
	DSN             string        `envconfig:"ORDERBRIDGE_DB_DSN" required:"true"`
	Driver          string        `envconfig:"ORDERBRIDGE_DB_DRIVER" default:"postgres"`
	MaxOpenConns    int           `envconfig:"ORDERBRIDGE_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"ORDERBRIDGE_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"ORDERBRIDGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ORDERBRIDGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ORDERBRIDGE_REDIS_URL"`
	Address      string        `envconfig:"ORDERBRIDGE_REDIS_ADDR"`
	Password     string        `envconfig:"ORDERBRIDGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"ORDERBRIDGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ORDERBRIDGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ORDERBRIDGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ORDERBRIDGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ORDERBRIDGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ORDERBRIDGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// OrdersConfig tunes the cancellation and fulfillment workflows.
type OrdersConfig struct {
	ApplyStrategy       string        `envconfig:"ORDERBRIDGE_ORDER_EDIT_APPLY_STRATEGY" default:"sequential"`
	LockBackend         string        `envconfig:"ORDERBRIDGE_ORDER_LOCK_BACKEND" default:"memory"`
	LockTTL             time.Duration `envconfig:"ORDERBRIDGE_ORDER_LOCK_TTL" default:"2m"`
	FulfillmentSelector string        `envconfig:"ORDERBRIDGE_FULFILLMENT_SELECTOR" default:"first"`
}

type RevolveConfig struct {
	ServerURL   string        `envconfig:"ORDERBRIDGE_REVOLVE_SERVER_URL"`
	TokenID     string        `envconfig:"ORDERBRIDGE_REVOLVE_TOKEN_ID"`
	TokenSecret string        `envconfig:"ORDERBRIDGE_REVOLVE_TOKEN_SECRET"`
	HTTPTimeout time.Duration `envconfig:"ORDERBRIDGE_REVOLVE_HTTP_TIMEOUT" default:"15s"`
}

// Enabled reports whether downstream sync has enough configuration to run.
func (r RevolveConfig) Enabled() bool {
	return strings.TrimSpace(r.ServerURL) != ""
}

type SyncConfig struct {
	Transport string `envconfig:"ORDERBRIDGE_SYNC_TRANSPORT" default:"inline"`
	Workers   int    `envconfig:"ORDERBRIDGE_SYNC_WORKERS" default:"4"`
	QueueSize int    `envconfig:"ORDERBRIDGE_SYNC_QUEUE_SIZE" default:"256"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"ORDERBRIDGE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	SyncTopic        string `envconfig:"ORDERBRIDGE_PUBSUB_SYNC_TOPIC" default:"orderbridge-downstream-sync"`
	SyncSubscription string `envconfig:"ORDERBRIDGE_PUBSUB_SYNC_SUBSCRIPTION" default:"orderbridge-downstream-sync-worker"`
}

type IdempotencyConfig struct {
	WebhookTTL time.Duration `envconfig:"ORDERBRIDGE_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
	RequestTTL time.Duration `envconfig:"ORDERBRIDGE_REQUEST_IDEMPOTENCY_TTL" default:"24h"`
}

func (c *Config) validate() error {
	if c.Redis.URL == "" && c.Redis.Address == "" {
		return fmt.Errorf("either %s or %s is required", EnvRedisURL, EnvRedisAddr)
	}
	switch strings.ToLower(c.Orders.ApplyStrategy) {
	case ApplyStrategySequential, ApplyStrategyConcurrent:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvApplyStrategy, ApplyStrategySequential, ApplyStrategyConcurrent)
	}
	switch strings.ToLower(c.Orders.LockBackend) {
	case LockBackendMemory, LockBackendRedis:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvLockBackend, LockBackendMemory, LockBackendRedis)
	}
	switch strings.ToLower(c.Orders.FulfillmentSelector) {
	case SelectorFirst, SelectorFirstOpen:
	default:
		return fmt.Errorf("%s must be %q or %q", EnvFulfillmentSelector, SelectorFirst, SelectorFirstOpen)
	}
	switch strings.ToLower(c.Sync.Transport) {
	case SyncTransportInline:
	case SyncTransportPubSub:
		if strings.TrimSpace(c.GCP.ProjectID) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvGCPProjectID, EnvSyncTransport, SyncTransportPubSub)
		}
	default:
		return fmt.Errorf("%s must be %q or %q", EnvSyncTransport, SyncTransportInline, SyncTransportPubSub)
	}
	return nil
}
