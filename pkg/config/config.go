package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix  = ""
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App      AppConfig
	Upstream UpstreamConfig
	Redis    RedisConfig
	CartDB   CartDBConfig
	Pricing  PricingConfig
	Auction  AuctionConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if _, err := cfg.Pricing.FeeRate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VEEMARK_APP_ENV" required:"true"`
	Port         string `envconfig:"VEEMARK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VEEMARK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VEEMARK_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"VEEMARK_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// UpstreamConfig points the gateway at the authoritative marketplace API.
type UpstreamConfig struct {
	BaseURL        string        `envconfig:"VEEMARK_UPSTREAM_BASE_URL" required:"true"`
	RequestTimeout time.Duration `envconfig:"VEEMARK_UPSTREAM_REQUEST_TIMEOUT" default:"8s"`
	RetryAttempts  int           `envconfig:"VEEMARK_UPSTREAM_RETRY_ATTEMPTS" default:"3"`
	RetryBackoff   time.Duration `envconfig:"VEEMARK_UPSTREAM_RETRY_BACKOFF" default:"250ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VEEMARK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VEEMARK_REDIS_ADDR"`
	Password     string        `envconfig:"VEEMARK_REDIS_PASSWORD"`
	DB           int           `envconfig:"VEEMARK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VEEMARK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VEEMARK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VEEMARK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VEEMARK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VEEMARK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// CartDBConfig configures the local guest-cart store. The cart lives in a
// throwaway sqlite file on the gateway host, not in the marketplace database.
type CartDBConfig struct {
	Path        string `envconfig:"VEEMARK_CART_DB_PATH" default:"veemark-cart.db"`
	AutoMigrate bool   `envconfig:"VEEMARK_CART_DB_AUTO_MIGRATE" default:"true"`
}

// PricingConfig carries the marketplace fee and shipping constants in minor
// currency units (cents of a rand).
type PricingConfig struct {
	MarketplaceFeeRate  string `envconfig:"VEEMARK_PRICING_FEE_RATE" default:"0.05"`
	MinShippingFeeMinor int64  `envconfig:"VEEMARK_PRICING_MIN_SHIPPING_FEE_MINOR" default:"5000"`
	PerKmPerUnitMinor   int64  `envconfig:"VEEMARK_PRICING_PER_KM_PER_UNIT_MINOR" default:"200"`
}

// FeeRate parses the configured marketplace fee rate.
func (p PricingConfig) FeeRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(p.MarketplaceFeeRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing marketplace fee rate %q: %w", p.MarketplaceFeeRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("marketplace fee rate %s out of range [0,1]", rate)
	}
	return rate, nil
}

type AuctionConfig struct {
	// MinIncrementPercent is the minimum next-bid increment over the current
	// effective price. The marketplace runs a flat 5% rule.
	MinIncrementPercent int64 `envconfig:"VEEMARK_AUCTION_MIN_INCREMENT_PERCENT" default:"5"`
}
