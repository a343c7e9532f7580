package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerConfig   ServerConfig   `json:"server"`
	MarketConfig   MarketConfig   `json:"market"`
	FeedConfig     FeedConfig     `json:"feed"`
	ScannerConfig  ScannerConfig  `json:"scanner"`
	ScoringConfig  ScoringConfig  `json:"scoring"`
	DatabaseConfig DatabaseConfig `json:"database"`
	RedisConfig    RedisConfig    `json:"redis"`
	VaultConfig    VaultConfig    `json:"vault"`
	AuthConfig     AuthConfig     `json:"auth"`
	LoggingConfig  LoggingConfig  `json:"logging"`
	MetricsConfig  MetricsConfig  `json:"metrics"`
}

type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"`
	ReadTimeout     int    `json:"read_timeout"`     // seconds
	WriteTimeout    int    `json:"write_timeout"`    // seconds
	ShutdownTimeout int    `json:"shutdown_timeout"` // seconds
	ProductionMode  bool   `json:"production_mode"`
	RateLimit       int    `json:"rate_limit"`        // requests per window per client
	RateLimitWindow int    `json:"rate_limit_window"` // seconds
}

// MarketConfig configures the upstream bar/price source.
type MarketConfig struct {
	BaseURL          string `json:"base_url"`
	StreamURL        string `json:"stream_url"`
	APIKey           string `json:"api_key"`
	SecretKey        string `json:"secret_key"`
	PriceCacheTTL    int    `json:"price_cache_ttl"`  // seconds
	CandleCacheTTL   int    `json:"candle_cache_ttl"` // seconds
	StreamEnabled    bool   `json:"stream_enabled"`
	RequestWeightCap int    `json:"request_weight_cap"` // per minute
}

// FeedConfig describes the tick and volume feed semantics. The tick feed
// records wall-clock strings in TickZone; the volume feed encodes epochs
// whose rendered fields are VolumeZone local time.
type FeedConfig struct {
	TickZone   string `json:"tick_zone"`
	VolumeZone string `json:"volume_zone"`
}

type ScannerConfig struct {
	WorkerCount     int      `json:"worker_count"`
	ScanTimeout     int      `json:"scan_timeout"` // seconds, aggregate wall-clock budget
	IntervalMinutes int      `json:"interval_minutes"`
	CandleLookback  int      `json:"candle_lookback"` // candles fetched per symbol
	DefaultSymbols  []string `json:"default_symbols"`
}

type ScoringConfig struct {
	MinQuality      float64 `json:"min_quality"`
	EnhancedFilters bool    `json:"enhanced_filters"` // blend trend strength into quality
	ConfluenceBoost float64 `json:"confluence_boost"` // confidence per extra co-anchored match
}

type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`
	SecretPath string `json:"secret_path"`
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

type AuthConfig struct {
	Enabled             bool          `json:"enabled"`
	JWTSecret           string        `json:"jwt_secret"`
	AccessTokenDuration time.Duration `json:"access_token_duration"`
	SeedUsername        string        `json:"seed_username"`
	SeedPassword        string        `json:"seed_password"`
}

type LoggingConfig struct {
	Level      string `json:"level"`
	Output     string `json:"output"`
	JSONFormat bool   `json:"json_format"`
}

type MetricsConfig struct {
	Enabled bool `json:"enabled"`
}

// Load reads the config file when present, fills in defaults, then applies
// environment overrides. A missing file is not an error.
func Load(filename string) (*Config, error) {
	cfg := DefaultConfig()

	if filename != "" {
		if _, err := os.Stat(filename); err == nil {
			fromFile, err := loadFromFile(filename)
			if err != nil {
				return nil, err
			}
			cfg = fromFile
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfig returns a config with working defaults for local use.
func DefaultConfig() *Config {
	return &Config{
		ServerConfig: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			AllowedOrigins:  "*",
			ReadTimeout:     30,
			WriteTimeout:    30,
			ShutdownTimeout: 10,
			RateLimit:       60,
			RateLimitWindow: 60,
		},
		MarketConfig: MarketConfig{
			BaseURL:          "https://api.binance.com",
			StreamURL:        "wss://stream.binance.com:9443/ws",
			PriceCacheTTL:    30,
			CandleCacheTTL:   60,
			StreamEnabled:    false,
			RequestWeightCap: 1200,
		},
		FeedConfig: FeedConfig{
			TickZone:   "America/New_York",
			VolumeZone: "Europe/London",
		},
		ScannerConfig: ScannerConfig{
			WorkerCount:     5,
			ScanTimeout:     30,
			IntervalMinutes: 5,
			CandleLookback:  100,
		},
		ScoringConfig: ScoringConfig{
			MinQuality:      0,
			EnhancedFilters: false,
			ConfluenceBoost: 8.0,
		},
		DatabaseConfig: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Database: "signal_scanner",
			SSLMode:  "disable",
		},
		RedisConfig: RedisConfig{
			Address: "localhost:6379",
		},
		VaultConfig: VaultConfig{
			Address:    "http://localhost:8200",
			MountPath:  "secret",
			SecretPath: "signal-scanner/feed-keys",
		},
		AuthConfig: AuthConfig{
			AccessTokenDuration: 15 * time.Minute,
			SeedUsername:        "admin",
		},
		LoggingConfig: LoggingConfig{
			Level:      "info",
			Output:     "stdout",
			JSONFormat: true,
		},
		MetricsConfig: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configs the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.ServerConfig.Port <= 0 || c.ServerConfig.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.ServerConfig.Port)
	}
	if c.ScannerConfig.WorkerCount <= 0 {
		return fmt.Errorf("scanner worker count must be positive, got %d", c.ScannerConfig.WorkerCount)
	}
	if c.ScannerConfig.IntervalMinutes <= 0 {
		return fmt.Errorf("scanner interval must be positive, got %d", c.ScannerConfig.IntervalMinutes)
	}
	if c.ScannerConfig.ScanTimeout <= 0 {
		return fmt.Errorf("scan timeout must be positive, got %d", c.ScannerConfig.ScanTimeout)
	}
	if _, err := time.LoadLocation(c.FeedConfig.TickZone); err != nil {
		return fmt.Errorf("invalid tick zone %q: %w", c.FeedConfig.TickZone, err)
	}
	if _, err := time.LoadLocation(c.FeedConfig.VolumeZone); err != nil {
		return fmt.Errorf("invalid volume zone %q: %w", c.FeedConfig.VolumeZone, err)
	}
	if c.ScoringConfig.MinQuality < 0 || c.ScoringConfig.MinQuality > 100 {
		return fmt.Errorf("min quality must be in [0,100], got %.2f", c.ScoringConfig.MinQuality)
	}
	if c.AuthConfig.Enabled && c.AuthConfig.JWTSecret == "" {
		return fmt.Errorf("auth is enabled but no JWT secret is set")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	// Server
	cfg.ServerConfig.Port = getEnvIntOrDefault("SERVER_PORT", cfg.ServerConfig.Port)
	cfg.ServerConfig.Host = getEnvOrDefault("SERVER_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", cfg.ServerConfig.AllowedOrigins)
	cfg.ServerConfig.ProductionMode = getEnvOrDefault("SERVER_PRODUCTION", boolStr(cfg.ServerConfig.ProductionMode)) == "true"

	// Market source
	cfg.MarketConfig.BaseURL = getEnvOrDefault("MARKET_BASE_URL", cfg.MarketConfig.BaseURL)
	cfg.MarketConfig.StreamURL = getEnvOrDefault("MARKET_STREAM_URL", cfg.MarketConfig.StreamURL)
	cfg.MarketConfig.APIKey = getEnvOrDefault("MARKET_API_KEY", cfg.MarketConfig.APIKey)
	cfg.MarketConfig.SecretKey = getEnvOrDefault("MARKET_SECRET_KEY", cfg.MarketConfig.SecretKey)
	cfg.MarketConfig.StreamEnabled = getEnvOrDefault("MARKET_STREAM_ENABLED", boolStr(cfg.MarketConfig.StreamEnabled)) == "true"

	// Feed zones
	cfg.FeedConfig.TickZone = getEnvOrDefault("FEED_TICK_ZONE", cfg.FeedConfig.TickZone)
	cfg.FeedConfig.VolumeZone = getEnvOrDefault("FEED_VOLUME_ZONE", cfg.FeedConfig.VolumeZone)

	// Scanner
	cfg.ScannerConfig.WorkerCount = getEnvIntOrDefault("SCANNER_WORKERS", cfg.ScannerConfig.WorkerCount)
	cfg.ScannerConfig.ScanTimeout = getEnvIntOrDefault("SCANNER_TIMEOUT", cfg.ScannerConfig.ScanTimeout)
	cfg.ScannerConfig.IntervalMinutes = getEnvIntOrDefault("SCANNER_INTERVAL_MINUTES", cfg.ScannerConfig.IntervalMinutes)
	cfg.ScannerConfig.CandleLookback = getEnvIntOrDefault("SCANNER_CANDLE_LOOKBACK", cfg.ScannerConfig.CandleLookback)

	// Scoring
	cfg.ScoringConfig.MinQuality = getEnvFloatOrDefault("SCORING_MIN_QUALITY", cfg.ScoringConfig.MinQuality)
	cfg.ScoringConfig.EnhancedFilters = getEnvOrDefault("SCORING_ENHANCED", boolStr(cfg.ScoringConfig.EnhancedFilters)) == "true"
	cfg.ScoringConfig.ConfluenceBoost = getEnvFloatOrDefault("SCORING_CONFLUENCE_BOOST", cfg.ScoringConfig.ConfluenceBoost)

	// Database
	cfg.DatabaseConfig.Enabled = getEnvOrDefault("DB_ENABLED", boolStr(cfg.DatabaseConfig.Enabled)) == "true"
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", cfg.DatabaseConfig.Port)
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", cfg.DatabaseConfig.Database)
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", cfg.DatabaseConfig.SSLMode)

	// Redis
	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", boolStr(cfg.RedisConfig.Enabled)) == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)

	// Vault
	cfg.VaultConfig.Enabled = getEnvOrDefault("VAULT_ENABLED", boolStr(cfg.VaultConfig.Enabled)) == "true"
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", cfg.VaultConfig.Address)
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", cfg.VaultConfig.MountPath)
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", cfg.VaultConfig.SecretPath)

	// Auth
	cfg.AuthConfig.Enabled = getEnvOrDefault("AUTH_ENABLED", boolStr(cfg.AuthConfig.Enabled)) == "true"
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.AccessTokenDuration = getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_DURATION", cfg.AuthConfig.AccessTokenDuration)
	cfg.AuthConfig.SeedUsername = getEnvOrDefault("AUTH_SEED_USERNAME", cfg.AuthConfig.SeedUsername)
	cfg.AuthConfig.SeedPassword = getEnvOrDefault("AUTH_SEED_PASSWORD", cfg.AuthConfig.SeedPassword)

	// Logging
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", cfg.LoggingConfig.Output)
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", boolStr(cfg.LoggingConfig.JSONFormat)) == "true"

	// Metrics
	cfg.MetricsConfig.Enabled = getEnvOrDefault("METRICS_ENABLED", boolStr(cfg.MetricsConfig.Enabled)) == "true"
}

// TickLocation resolves the tick feed zone. Validate has already checked it.
func (c *Config) TickLocation() *time.Location {
	loc, _ := time.LoadLocation(c.FeedConfig.TickZone)
	return loc
}

// VolumeLocation resolves the volume feed zone.
func (c *Config) VolumeLocation() *time.Location {
	loc, _ := time.LoadLocation(c.FeedConfig.VolumeZone)
	return loc
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// GenerateSampleConfig writes a starter config file with defaults.
func GenerateSampleConfig(filename string) error {
	data, err := json.MarshalIndent(DefaultConfig(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
