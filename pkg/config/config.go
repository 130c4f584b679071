package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable read by the service.
const EnvPrefix = "BACKENDPAY"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names shared between Load and the test helpers.
const (
	EnvAppEnv    = "BACKENDPAY_APP_ENV"
	EnvPort      = "BACKENDPAY_APP_PORT"
	EnvDBDSN     = "BACKENDPAY_DB_DSN"
	EnvRedisURL  = "BACKENDPAY_REDIS_URL"
	EnvJWTSecret = "BACKENDPAY_JWT_SECRET"
	EnvJWTIssuer = "BACKENDPAY_JWT_ISSUER"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Broadcast    BroadcastConfig
	Chargily     ChargilyConfig
	PayPal       PayPalConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.DB.DSN == "" {
		return nil, fmt.Errorf("%s is required", EnvDBDSN)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BACKENDPAY_APP_ENV" required:"true"`
	Port         string `envconfig:"BACKENDPAY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BACKENDPAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BACKENDPAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BACKENDPAY_DB_DSN"`
	Driver string `envconfig:"BACKENDPAY_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"BACKENDPAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BACKENDPAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BACKENDPAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BACKENDPAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BACKENDPAY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BACKENDPAY_REDIS_ADDR"`
	Password     string        `envconfig:"BACKENDPAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"BACKENDPAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BACKENDPAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BACKENDPAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BACKENDPAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BACKENDPAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BACKENDPAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BACKENDPAY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BACKENDPAY_JWT_ISSUER" default:"backendpay"`
	ExpirationMinutes int    `envconfig:"BACKENDPAY_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// TokenTTL returns the access token lifetime.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BACKENDPAY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BACKENDPAY_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BACKENDPAY_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BACKENDPAY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BACKENDPAY_ARGON_KEY_LEN" default:"32"`
}

// BroadcastConfig tunes the outbox publisher and the realtime channel.
type BroadcastConfig struct {
	Channel        string        `envconfig:"BACKENDPAY_BROADCAST_CHANNEL" default:"backendpay.changes"`
	BatchSize      int           `envconfig:"BACKENDPAY_BROADCAST_BATCH_SIZE" default:"50"`
	PollInterval   time.Duration `envconfig:"BACKENDPAY_BROADCAST_POLL_INTERVAL" default:"500ms"`
	PublishTimeout time.Duration `envconfig:"BACKENDPAY_BROADCAST_PUBLISH_TIMEOUT" default:"15s"`
	MaxAttempts    int           `envconfig:"BACKENDPAY_BROADCAST_MAX_ATTEMPTS" default:"10"`
}

type ChargilyConfig struct {
	SecretKey string `envconfig:"BACKENDPAY_CHARGILY_SECRET_KEY"`
	BaseURL   string `envconfig:"BACKENDPAY_CHARGILY_BASE_URL" default:"https://pay.chargily.net/test/api/v2"`
	// RateDZD converts the catalog's USD prices into whole dinars.
	RateDZD int `envconfig:"BACKENDPAY_CHARGILY_RATE_DZD" default:"200"`
}

type PayPalConfig struct {
	ClientID     string `envconfig:"BACKENDPAY_PAYPAL_CLIENT_ID"`
	ClientSecret string `envconfig:"BACKENDPAY_PAYPAL_CLIENT_SECRET"`
	BaseURL      string `envconfig:"BACKENDPAY_PAYPAL_BASE_URL" default:"https://api-m.sandbox.paypal.com"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BACKENDPAY_AUTO_MIGRATE" default:"false"`
}
