package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "vendora"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Stripe       StripeConfig
	Checkout     CheckoutConfig
	Payouts      PayoutsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
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
	if _, err := cfg.Checkout.ShippingCost(); err != nil {
		return nil, err
	}
	if _, err := cfg.Payouts.DefaultCommissionRate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VENDORA_APP_ENV" required:"true"`
	Port         string `envconfig:"VENDORA_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"VENDORA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VENDORA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"VENDORA_DB_DSN"`

	Host     string `envconfig:"VENDORA_DB_HOST"`
	Port     int    `envconfig:"VENDORA_DB_PORT" default:"5432"`
	User     string `envconfig:"VENDORA_DB_USER"`
	Password string `envconfig:"VENDORA_DB_PASSWORD"`
	Name     string `envconfig:"VENDORA_DB_NAME"`
	SSLMode  string `envconfig:"VENDORA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VENDORA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VENDORA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VENDORA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VENDORA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	var missing []string
	for name, value := range map[string]string{
		"VENDORA_DB_HOST": db.Host,
		"VENDORA_DB_USER": db.User,
		"VENDORA_DB_NAME": db.Name,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either VENDORA_DB_DSN or %s are required", strings.Join(missing, ", "))
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

type RedisConfig struct {
	URL          string        `envconfig:"VENDORA_REDIS_URL"`
	Address      string        `envconfig:"VENDORA_REDIS_ADDR"`
	Password     string        `envconfig:"VENDORA_REDIS_PASSWORD"`
	DB           int           `envconfig:"VENDORA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VENDORA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VENDORA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VENDORA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VENDORA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VENDORA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type StripeConfig struct {
	APIKey        string `envconfig:"VENDORA_STRIPE_API_KEY"`
	WebhookSecret string `envconfig:"VENDORA_STRIPE_WEBHOOK_SECRET"`
	Env           string `envconfig:"VENDORA_STRIPE_ENV" default:"test"`
	Currency      string `envconfig:"VENDORA_STRIPE_CURRENCY" default:"usd"`
	SuccessURL    string `envconfig:"VENDORA_STRIPE_SUCCESS_URL" default:"https://vendora.example/checkout/success"`
	CancelURL     string `envconfig:"VENDORA_STRIPE_CANCEL_URL" default:"https://vendora.example/checkout/cancel"`

	// WebhookTTL bounds how long processed event ids are remembered.
	WebhookTTL time.Duration `envconfig:"VENDORA_STRIPE_WEBHOOK_TTL" default:"24h"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CheckoutConfig struct {
	ShippingCostRaw string `envconfig:"VENDORA_CHECKOUT_SHIPPING_COST" default:"0.00"`
}

// ShippingCost parses the flat per-order shipping charge.
func (c CheckoutConfig) ShippingCost() (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(c.ShippingCostRaw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid VENDORA_CHECKOUT_SHIPPING_COST: %w", err)
	}
	if value.IsNegative() {
		return decimal.Zero, fmt.Errorf("VENDORA_CHECKOUT_SHIPPING_COST must not be negative")
	}
	return value, nil
}

type PayoutsConfig struct {
	DefaultCommissionRateRaw string `envconfig:"VENDORA_PAYOUT_DEFAULT_COMMISSION_RATE" default:"10"`
}

// DefaultCommissionRate parses the platform-wide commission percentage used
// when a vendor has no rate of its own.
func (p PayoutsConfig) DefaultCommissionRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(p.DefaultCommissionRateRaw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid VENDORA_PAYOUT_DEFAULT_COMMISSION_RATE: %w", err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, fmt.Errorf("VENDORA_PAYOUT_DEFAULT_COMMISSION_RATE must be between 0 and 100")
	}
	return rate, nil
}

type GCPConfig struct {
	ProjectID string `envconfig:"VENDORA_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"VENDORA_PUBSUB_NOTIFICATION_TOPIC" default:"vendora-notification-events"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VENDORA_AUTO_MIGRATE" default:"false"`
}
