package config

const EnvPrefix = "ORDERBRIDGE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	ApplyStrategySequential = "sequential"
	ApplyStrategyConcurrent = "concurrent"

	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"

	SelectorFirst     = "first"
	SelectorFirstOpen = "first_open"

	SyncTransportInline = "inline"
	SyncTransportPubSub = "pubsub"
)

const (
	EnvAppEnv              = "ORDERBRIDGE_APP_ENV"
	EnvPort                = "ORDERBRIDGE_APP_PORT"
	EnvAPIToken            = "ORDERBRIDGE_API_TOKEN"
	EnvShopifyAPIVersion   = "ORDERBRIDGE_SHOPIFY_API_VERSION"
	EnvShopifyAPISecret    = "ORDERBRIDGE_SHOPIFY_API_SECRET"
	EnvDBDSN               = "ORDERBRIDGE_DB_DSN"
	EnvRedisURL            = "ORDERBRIDGE_REDIS_URL"
	EnvRedisAddr           = "ORDERBRIDGE_REDIS_ADDR"
	EnvApplyStrategy       = "ORDERBRIDGE_ORDER_EDIT_APPLY_STRATEGY"
	EnvLockBackend         = "ORDERBRIDGE_ORDER_LOCK_BACKEND"
	EnvFulfillmentSelector = "ORDERBRIDGE_FULFILLMENT_SELECTOR"
	EnvRevolveServerURL    = "ORDERBRIDGE_REVOLVE_SERVER_URL"
	EnvSyncTransport       = "ORDERBRIDGE_SYNC_TRANSPORT"
	EnvGCPProjectID        = "ORDERBRIDGE_GCP_PROJECT_ID"
)
