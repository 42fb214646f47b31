package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// MaxBatchSizeLimit is the highest accepted QUOTE_MAX_BATCH_SIZE
const MaxBatchSizeLimit = 100

// Config holds all application configuration
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Market data provider configurations
	Finnhub      FinnhubConfig
	AlphaVantage AlphaVantageConfig
	Alpaca       AlpacaConfig
	Brandfetch   BrandfetchConfig

	// Quote resolution configuration
	Quotes QuotesConfig

	// HTTP configuration
	HTTP HTTPConfig

	// Logging configuration
	Log LogConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// FinnhubConfig holds Finnhub API configuration
type FinnhubConfig struct {
	APIKey            string
	BaseURL           string
	MaxCallsPerMinute int
}

// AlphaVantageConfig holds Alpha Vantage API configuration
type AlphaVantageConfig struct {
	APIKey         string
	BaseURL        string
	MaxCallsPerDay int
}

// AlpacaConfig holds Alpaca market data configuration
type AlpacaConfig struct {
	APIKey            string
	APISecret         string
	DataURL           string
	MaxCallsPerMinute int
}

// BrandfetchConfig holds logo CDN configuration
type BrandfetchConfig struct {
	ClientID string
	BaseURL  string
}

// QuotesConfig holds quote fetching limits
type QuotesConfig struct {
	RequestTimeoutSeconds int // per provider call
	MaxBatchSize          int
	MaxConcurrent         int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Port               int
	CORSAllowedOrigins string
	RateLimitPerMinute int
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level      string
	Production bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Finnhub: FinnhubConfig{
			APIKey:            os.Getenv("FINNHUB_API_KEY"),
			BaseURL:           getEnvString("FINNHUB_BASE_URL", "https://finnhub.io/api/v1"),
			MaxCallsPerMinute: getEnvInt("FINNHUB_MAX_CALLS_PER_MINUTE", 60),
		},
		AlphaVantage: AlphaVantageConfig{
			APIKey:         os.Getenv("ALPHA_VANTAGE_API_KEY"),
			BaseURL:        getEnvString("ALPHA_VANTAGE_BASE_URL", "https://www.alphavantage.co/query"),
			MaxCallsPerDay: getEnvInt("ALPHA_VANTAGE_MAX_CALLS_PER_DAY", 25),
		},
		Alpaca: AlpacaConfig{
			APIKey:            os.Getenv("ALPACA_API_KEY"),
			APISecret:         os.Getenv("ALPACA_SECRET_KEY"),
			DataURL:           os.Getenv("ALPACA_DATA_URL"),
			MaxCallsPerMinute: getEnvInt("ALPACA_MAX_CALLS_PER_MINUTE", 200),
		},
		Brandfetch: BrandfetchConfig{
			ClientID: os.Getenv("BRANDFETCH_CLIENT_ID"),
			BaseURL:  getEnvString("BRANDFETCH_BASE_URL", "https://cdn.brandfetch.io"),
		},
		Quotes: QuotesConfig{
			RequestTimeoutSeconds: getEnvInt("QUOTE_REQUEST_TIMEOUT_SECONDS", 10),
			MaxBatchSize:          getEnvInt("QUOTE_MAX_BATCH_SIZE", 20),
			MaxConcurrent:         getEnvInt("QUOTE_MAX_CONCURRENT", 10),
		},
		HTTP: HTTPConfig{
			Port:               getEnvInt("HTTP_PORT", 8080),
			CORSAllowedOrigins: getEnvString("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			RateLimitPerMinute: getEnvInt("API_RATE_LIMIT_PER_MINUTE", 120),
		},
		Log: LogConfig{
			Level:      getEnvString("LOG_LEVEL", "info"),
			Production: getEnvBool("PRODUCTION", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	positives := []struct {
		name  string
		value int
	}{
		{"FINNHUB_MAX_CALLS_PER_MINUTE", c.Finnhub.MaxCallsPerMinute},
		{"ALPHA_VANTAGE_MAX_CALLS_PER_DAY", c.AlphaVantage.MaxCallsPerDay},
		{"ALPACA_MAX_CALLS_PER_MINUTE", c.Alpaca.MaxCallsPerMinute},
		{"QUOTE_REQUEST_TIMEOUT_SECONDS", c.Quotes.RequestTimeoutSeconds},
		{"QUOTE_MAX_BATCH_SIZE", c.Quotes.MaxBatchSize},
		{"QUOTE_MAX_CONCURRENT", c.Quotes.MaxConcurrent},
		{"HTTP_PORT", c.HTTP.Port},
		{"API_RATE_LIMIT_PER_MINUTE", c.HTTP.RateLimitPerMinute},
	}
	for _, p := range positives {
		if p.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", p.name, p.value)
		}
	}

	if c.Quotes.MaxBatchSize > MaxBatchSizeLimit {
		return fmt.Errorf("QUOTE_MAX_BATCH_SIZE must be at most %d, got %d", MaxBatchSizeLimit, c.Quotes.MaxBatchSize)
	}

	return nil
}

// HasDatabase returns true if database configuration is available
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasAlpaca returns true if Alpaca configuration is available
func (c *Config) HasAlpaca() bool {
	return c.Alpaca.APIKey != "" && c.Alpaca.APISecret != ""
}

// HasBrandfetch returns true if a logo client id is configured
func (c *Config) HasBrandfetch() bool {
	return c.Brandfetch.ClientID != ""
}

// RequestTimeout is the deadline of a single provider call
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Quotes.RequestTimeoutSeconds) * time.Second
}

// BatchTimeout is the overall deadline of one batch fetch
func (c *Config) BatchTimeout() time.Duration {
	return 2 * c.RequestTimeout()
}

// CORSOrigins splits CORS_ALLOWED_ORIGINS into trimmed, non-empty entries
func (c *Config) CORSOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.HTTP.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Addr returns the listen address of the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTP.Port)
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		Finnhub: FinnhubConfig{
			BaseURL:           "https://finnhub.io/api/v1",
			MaxCallsPerMinute: 60,
		},
		AlphaVantage: AlphaVantageConfig{
			BaseURL:        "https://www.alphavantage.co/query",
			MaxCallsPerDay: 25,
		},
		Alpaca: AlpacaConfig{
			MaxCallsPerMinute: 200,
		},
		Brandfetch: BrandfetchConfig{
			BaseURL: "https://cdn.brandfetch.io",
		},
		Quotes: QuotesConfig{
			RequestTimeoutSeconds: 10,
			MaxBatchSize:          20,
			MaxConcurrent:         10,
		},
		HTTP: HTTPConfig{
			Port:               8080,
			CORSAllowedOrigins: "http://localhost:3000",
			RateLimitPerMinute: 120,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
