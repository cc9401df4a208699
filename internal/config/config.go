package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL    string        `env:"DATABASE_URL,required"`
	MigrationsPath string        `env:"MIGRATIONS_PATH" envDefault:"file://migrations"`
	JWTSecret      string        `env:"JWT_SECRET,required,notEmpty"`
	JWTExpiry      time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`
	Port           int           `env:"PORT" envDefault:"8080"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv         string        `env:"APP_ENV" envDefault:"production"`

	OpenAIBaseURL         string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIAPIKey          string `env:"OPENAI_API_KEY,required,notEmpty"`
	ConsultationModel     string `env:"CONSULTATION_MODEL" envDefault:"gpt-4o-mini"`
	ConsultationMaxTokens int    `env:"CONSULTATION_MAX_TOKENS" envDefault:"700"`
	InsightsModel         string `env:"INSIGHTS_MODEL" envDefault:"gpt-4"`
	InsightsMaxTokens     int    `env:"INSIGHTS_MAX_TOKENS" envDefault:"250"`
	TrendMaxTokens        int    `env:"TREND_MAX_TOKENS" envDefault:"500"`

	RazorpayBaseURL   string `env:"RAZORPAY_BASE_URL" envDefault:"https://api.razorpay.com/v1"`
	RazorpayKeyID     string `env:"RAZORPAY_KEY_ID,required,notEmpty"`
	RazorpayKeySecret string `env:"RAZORPAY_KEY_SECRET,required,notEmpty"`

	CoinUnit         int64  `env:"COIN_UNIT" envDefault:"20"`
	MaxTopUpCoins    int64  `env:"MAX_TOPUP_COINS" envDefault:"100000"`
	ConsultationCost int64  `env:"CONSULTATION_COST" envDefault:"20"`
	PricePerCoin     string `env:"PRICE_PER_COIN" envDefault:"1.00"`
	Currency         string `env:"CURRENCY" envDefault:"INR"`

	ProviderTimeout         time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"25s"`
	// Past this many balance conflicts a request gets 409 CONCURRENT_MODIFICATION.
	DebitMaxAttempts        int           `env:"DEBIT_MAX_ATTEMPTS" envDefault:"3"`
	CompensationTimeout     time.Duration `env:"COMPENSATION_TIMEOUT" envDefault:"30s"`
	CompensationMaxAttempts int           `env:"COMPENSATION_MAX_ATTEMPTS" envDefault:"6"`
	CompensationInterval    time.Duration `env:"COMPENSATION_INTERVAL" envDefault:"200ms"`
	CompensationMaxInterval time.Duration `env:"COMPENSATION_MAX_INTERVAL" envDefault:"4s"`

	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`

	KafkaBrokers       []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic         string        `env:"KAFKA_BALANCE_TOPIC" envDefault:"balance-events"`
	EventRelayInterval time.Duration `env:"EVENT_RELAY_INTERVAL" envDefault:"2s"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config.Load: dotenv: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c Config) validate() error {
	if c.CoinUnit <= 0 {
		return fmt.Errorf("COIN_UNIT must be positive, got %d", c.CoinUnit)
	}
	if c.ConsultationCost <= 0 || c.ConsultationCost%c.CoinUnit != 0 {
		return fmt.Errorf("CONSULTATION_COST must be a positive multiple of %d, got %d", c.CoinUnit, c.ConsultationCost)
	}
	if c.MaxTopUpCoins < c.CoinUnit {
		return fmt.Errorf("MAX_TOPUP_COINS must be at least COIN_UNIT (%d), got %d", c.CoinUnit, c.MaxTopUpCoins)
	}
	if c.DebitMaxAttempts < 1 {
		return fmt.Errorf("DEBIT_MAX_ATTEMPTS must be at least 1")
	}
	if c.CompensationMaxAttempts < 1 {
		return fmt.Errorf("COMPENSATION_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}
