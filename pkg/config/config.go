package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "ledgerpay"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "LEDGERPAY_APP_ENV"
	EnvDBDSN  = "LEDGERPAY_DB_DSN"
	EnvDBHost = "LEDGERPAY_DB_HOST"
	EnvDBUser = "LEDGERPAY_DB_USER"
	EnvDBName = "LEDGERPAY_DB_NAME"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	Stripe       StripeConfig
	Billing      BillingConfig
	Sync         SyncConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"LEDGERPAY_APP_ENV" required:"true"`
	Port         string `envconfig:"LEDGERPAY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LEDGERPAY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LEDGERPAY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LEDGERPAY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"LEDGERPAY_DB_DSN"`
	Driver string `envconfig:"LEDGERPAY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LEDGERPAY_DB_HOST"`
	LegacyPort     int    `envconfig:"LEDGERPAY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LEDGERPAY_DB_USER"`
	LegacyPassword string `envconfig:"LEDGERPAY_DB_PASSWORD"`
	LegacyName     string `envconfig:"LEDGERPAY_DB_NAME"`
	LegacySSLMode  string `envconfig:"LEDGERPAY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LEDGERPAY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LEDGERPAY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LEDGERPAY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LEDGERPAY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LEDGERPAY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LEDGERPAY_REDIS_ADDR"`
	Password     string        `envconfig:"LEDGERPAY_REDIS_PASSWORD"`
	DB           int           `envconfig:"LEDGERPAY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LEDGERPAY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LEDGERPAY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LEDGERPAY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LEDGERPAY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LEDGERPAY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type StripeConfig struct {
	APIKey string `envconfig:"LEDGERPAY_STRIPE_API_KEY"`
	Env    string `envconfig:"LEDGERPAY_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type BillingConfig struct {
	DefaultPlanID    string `envconfig:"LEDGERPAY_BILLING_DEFAULT_PLAN_ID"`
	DefaultTrialDays int    `envconfig:"LEDGERPAY_BILLING_DEFAULT_TRIAL_DAYS" default:"0"`
	DefaultCurrency  string `envconfig:"LEDGERPAY_BILLING_DEFAULT_CURRENCY" default:"usd"`
	SendReceipts     bool   `envconfig:"LEDGERPAY_BILLING_SEND_RECEIPTS" default:"true"`
}

type SyncConfig struct {
	ReconcileLimit    int           `envconfig:"LEDGERPAY_SYNC_RECONCILE_LIMIT" default:"250"`
	ReconcileLookback time.Duration `envconfig:"LEDGERPAY_SYNC_RECONCILE_LOOKBACK" default:"168h"`
	Interval          time.Duration `envconfig:"LEDGERPAY_SYNC_INTERVAL" default:"1h"`
	WebhookDedupeTTL  time.Duration `envconfig:"LEDGERPAY_SYNC_WEBHOOK_DEDUPE_TTL" default:"72h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"LEDGERPAY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"LEDGERPAY_AUTO_MIGRATE" default:"false"`
}

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

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
