package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/coinwatch/internal/market"
)

// Config holds all configuration for the watcher
type Config struct {
	// Telegram
	TelegramToken  string
	TelegramChatID int64

	// Polling
	PollInterval   time.Duration
	FirstPollDelay time.Duration
	FetchTimeout   time.Duration

	// Detection
	MarketCapFloor      decimal.Decimal // new listings below this cap are ignored
	RapidMoveThreshold  decimal.Decimal // percent, compared against |change|
	RapidMoveWindow     market.Window
	FloorGatesRapidMove bool // also skip rapid-move checks below the floor
	BaselineFirstCycle  bool // first cycle seeds the seen set silently

	// CoinGecko
	CoinGeckoAPIURL string
	CoinGeckoAPIKey string
	VsCurrency      string
	MarketOrder     string
	PerPage         int
	Page            int
	SourceLabel     string

	// Database
	DatabasePath string

	Debug bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		// Telegram
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),

		// Polling
		PollInterval:   getEnvDuration("POLL_INTERVAL", 60*time.Second),
		FirstPollDelay: getEnvDuration("FIRST_POLL_DELAY", 5*time.Second),
		FetchTimeout:   getEnvDuration("FETCH_TIMEOUT", 20*time.Second),

		// Detection
		MarketCapFloor:      getEnvDecimal("MARKET_CAP_FLOOR", decimal.NewFromInt(1_000_000)),
		RapidMoveThreshold:  getEnvDecimal("RAPID_MOVE_THRESHOLD", decimal.NewFromInt(10)),
		FloorGatesRapidMove: getEnvBool("FLOOR_GATES_RAPID_MOVE", false),
		BaselineFirstCycle:  getEnvBool("BASELINE_FIRST_CYCLE", false),

		// CoinGecko
		CoinGeckoAPIURL: getEnv("COINGECKO_API_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoAPIKey: os.Getenv("COINGECKO_API_KEY"),
		VsCurrency:      getEnv("VS_CURRENCY", "usd"),
		MarketOrder:     getEnv("MARKET_ORDER", "volume_desc"),
		PerPage:         getEnvInt("PER_PAGE", 100),
		Page:            getEnvInt("PAGE", 1),
		SourceLabel:     getEnv("SOURCE_LABEL", "CoinGecko"),

		// Database
		DatabasePath: getEnv("DATABASE_PATH", "data/coinwatch.db"),

		Debug: getEnvBool("DEBUG", false),
	}

	// The plain-seconds form wins when both are set
	if secs := os.Getenv("POLL_INTERVAL_SECONDS"); secs != "" {
		n, err := strconv.Atoi(secs)
		if err != nil {
			return nil, fmt.Errorf("invalid POLL_INTERVAL_SECONDS: %w", err)
		}
		cfg.PollInterval = time.Duration(n) * time.Second
	}

	window, err := market.ParseWindow(getEnv("RAPID_MOVE_WINDOW", string(market.Window1h)))
	if err != nil {
		return nil, fmt.Errorf("invalid RAPID_MOVE_WINDOW: %w", err)
	}
	cfg.RapidMoveWindow = window

	// Parse chat ID
	if chatID := os.Getenv("TELEGRAM_CHAT_ID"); chatID != "" {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.TelegramChatID = id
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required fields and ranges
func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.TelegramChatID == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %s", c.FetchTimeout)
	}
	if c.FirstPollDelay < 0 {
		return fmt.Errorf("first poll delay must not be negative, got %s", c.FirstPollDelay)
	}
	if c.MarketCapFloor.IsNegative() {
		return fmt.Errorf("MARKET_CAP_FLOOR must not be negative")
	}
	if c.RapidMoveThreshold.IsNegative() {
		return fmt.Errorf("RAPID_MOVE_THRESHOLD must not be negative")
	}
	if _, err := market.ParseWindow(string(c.RapidMoveWindow)); err != nil {
		return err
	}
	if c.PerPage <= 0 || c.PerPage > 250 {
		return fmt.Errorf("PER_PAGE must be in 1..250, got %d", c.PerPage)
	}
	if c.Page <= 0 {
		return fmt.Errorf("PAGE must be positive, got %d", c.Page)
	}
	return nil
}

// EffectiveFetchTimeout caps the fetch timeout at the poll interval so a hung
// request cannot run into the next cycle.
func (c *Config) EffectiveFetchTimeout() time.Duration {
	if c.FetchTimeout > c.PollInterval {
		return c.PollInterval
	}
	return c.FetchTimeout
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}
