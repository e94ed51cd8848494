package config

import (
	"fmt"
	"os"
	"strings"

	"coin-observer/src/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config instance from a YAML file. Values from a
// .env file next to the working directory and from the process environment
// override the file.
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}

	// 3. Environment overrides (.env is optional)
	_ = godotenv.Load()
	config.ApplyEnv()
	config.ApplyDefaults()

	// 4. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Default returns a validated configuration built only from defaults.
func Default() *Config {
	c := &Config{MConfig: &models.MConfig{
		Name: "coin-observer",
		Host: "127.0.0.1",
		Port: 8000,
	}}
	c.ApplyDefaults()
	return c
}

// -----------------------------------------------------------------------------

// ApplyEnv overrides selected keys from COIN_OBSERVER_* variables.
func (c *Config) ApplyEnv() {
	c.Host = getEnvString("COIN_OBSERVER_HOST", c.Host)
	c.Port = getEnvInt("COIN_OBSERVER_PORT", c.Port)
	c.GrpcPort = getEnvInt("COIN_OBSERVER_GRPC_PORT", c.GrpcPort)
	c.LogLevel = getEnvString("COIN_OBSERVER_LOG_LEVEL", c.LogLevel)
	c.Ranking.Policy = getEnvString("COIN_OBSERVER_POLICY", c.Ranking.Policy)
	c.Storage.DBType = getEnvString("COIN_OBSERVER_DB_TYPE", c.Storage.DBType)
	c.Storage.DBPath = getEnvString("COIN_OBSERVER_DB_PATH", c.Storage.DBPath)
	c.Storage.DBConnectionString = getEnvString("COIN_OBSERVER_DB_CONNECTION", c.Storage.DBConnectionString)
	c.DataSource.StreamEnabled = getEnvBool("COIN_OBSERVER_STREAM_ENABLED", c.DataSource.StreamEnabled)
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills every zero value that has a sensible default.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.GrpcHost == "" {
		c.GrpcHost = c.Host
	}
	if c.GrpcPort == 0 {
		c.GrpcPort = 50051
	}

	// Storage
	if c.Storage.DBType == "" {
		c.Storage.DBType = "none"
	}
	if c.Storage.RetentionHours == 0 {
		c.Storage.RetentionHours = 24
	}

	// Network
	if c.Network.RequestTimeout == 0 {
		c.Network.RequestTimeout = 15
	}
	if c.Network.ConcurrentRequests == 0 {
		c.Network.ConcurrentRequests = 10
	}

	// Data source
	ds := &c.DataSource
	if ds.Name == "" {
		ds.Name = "binance"
	}
	if ds.BaseURL == "" {
		ds.BaseURL = "https://api.binance.com"
	}
	if ds.StreamURL == "" {
		ds.StreamURL = "wss://stream.binance.com:9443/ws/!miniTicker@arr"
	}
	if ds.QuoteAsset == "" {
		ds.QuoteAsset = "USDT"
	}
	if ds.ExchangeInfoTimeoutSeconds == 0 {
		ds.ExchangeInfoTimeoutSeconds = 10
	}
	if ds.TickerTimeoutSeconds == 0 {
		ds.TickerTimeoutSeconds = 15
	}
	if ds.KlinesTimeoutSeconds == 0 {
		ds.KlinesTimeoutSeconds = 5
	}
	if ds.MaxTickerSymbols == 0 {
		ds.MaxTickerSymbols = 100
	}
	if ds.CandleLimit5m == 0 {
		ds.CandleLimit5m = 288
	}
	if ds.CandleLimit1h == 0 {
		ds.CandleLimit1h = 168
	}
	if ds.CandleLimit1d == 0 {
		ds.CandleLimit1d = 30
	}
	if len(ds.FallbackSymbols) == 0 {
		ds.FallbackSymbols = []string{
			"BTCUSDT", "ETHUSDT", "BNBUSDT", "ADAUSDT", "XRPUSDT",
			"SOLUSDT", "DOTUSDT", "DOGEUSDT", "AVAXUSDT", "SHIBUSDT",
			"MATICUSDT", "LTCUSDT", "TRXUSDT", "UNIUSDT", "LINKUSDT",
		}
	}

	// Tracker
	if c.Tracker.WindowSeconds == 0 {
		c.Tracker.WindowSeconds = 300
	}
	if c.Tracker.MaxPoints == 0 {
		c.Tracker.MaxPoints = 100
	}

	// Ranking
	r := &c.Ranking
	if r.Policy == "" {
		r.Policy = "strict"
	}
	r.Policy = strings.ToLower(r.Policy)
	if r.DefaultLimit == 0 {
		r.DefaultLimit = 15
	}
	if r.HotMinQuoteVolume == 0 {
		r.HotMinQuoteVolume = 100_000
	}
	if r.StableMinQuoteVolume == 0 {
		r.StableMinQuoteVolume = 50_000
	}
	if r.HotMaxSymbols == 0 {
		r.HotMaxSymbols = 100
	}
	if r.StableMaxSymbols == 0 {
		r.StableMaxSymbols = 50
	}
	if r.BatchSize == 0 {
		r.BatchSize = 5
	}
	if r.BatchDelayMs == 0 {
		r.BatchDelayMs = 200
	}
	if r.TieBreakEpsilon == 0 {
		r.TieBreakEpsilon = 0.1
	}
	if r.UniverseTTLMinutes == 0 {
		r.UniverseTTLMinutes = 24 * 60
	}
	if r.HotTTLMinutes == 0 {
		r.HotTTLMinutes = 5
	}
	if r.StableTTLMinutes == 0 {
		r.StableTTLMinutes = 15
	}

	// Classification thresholds
	cl := &c.Classification
	if cl.Immediate == (models.MHotThreshold{}) {
		cl.Immediate = models.MHotThreshold{PriceChangePct: 1.5, VolumeSpikePct: 150, MomentumPct: 40}
	}
	if cl.Short == (models.MHotThreshold{}) {
		cl.Short = models.MHotThreshold{PriceChangePct: 3, VolumeSpikePct: 100, MomentumPct: 35}
	}
	if cl.Medium == (models.MHotThreshold{}) {
		cl.Medium = models.MHotThreshold{PriceChangePct: 8, VolumeSpikePct: 75, MomentumPct: 50}
	}
	if cl.Stable == (models.MStableThreshold{}) {
		cl.Stable = models.MStableThreshold{WeeklyGrowthPct: 10, MaxDailyVolatilityPct: 15, MinPositiveDays: 4}
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Server
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort == c.Port {
		return fmt.Errorf("grpc port %d collides with server port", c.GrpcPort)
	}

	// Storage
	switch c.Storage.DBType {
	case "none":
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("database connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
	}
	if c.Storage.RetentionHours < 0 {
		return fmt.Errorf("retention hours cannot be negative")
	}

	// Network
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}
	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.Network.ConcurrentRequests <= 0 {
		return fmt.Errorf("concurrent requests must be greater than 0")
	}

	// Data source
	if !strings.HasPrefix(c.DataSource.BaseURL, "http") {
		return fmt.Errorf("data source base url must be http(s): %q", c.DataSource.BaseURL)
	}
	if c.DataSource.MaxTickerSymbols <= 0 {
		return fmt.Errorf("max ticker symbols must be greater than 0")
	}

	// Tracker
	if c.Tracker.WindowSeconds <= 0 {
		return fmt.Errorf("tracker window must be greater than 0")
	}
	if c.Tracker.MaxPoints < 2 {
		return fmt.Errorf("tracker needs at least 2 points per symbol, got %d", c.Tracker.MaxPoints)
	}

	// Ranking
	if c.Ranking.Policy != "strict" && c.Ranking.Policy != "relaxed" {
		return fmt.Errorf("unknown classification policy: %s", c.Ranking.Policy)
	}
	if c.Ranking.BatchSize <= 0 {
		return fmt.Errorf("batch size must be greater than 0")
	}
	if c.Ranking.BatchDelayMs < 0 {
		return fmt.Errorf("batch delay cannot be negative")
	}
	if c.Ranking.DefaultLimit <= 0 {
		return fmt.Errorf("default limit must be greater than 0")
	}
	if c.Ranking.HotTTLMinutes <= 0 || c.Ranking.StableTTLMinutes <= 0 || c.Ranking.UniverseTTLMinutes <= 0 {
		return fmt.Errorf("cache ttl values must be greater than 0")
	}

	// Classification
	if c.Classification.Stable.MinPositiveDays > 7 {
		return fmt.Errorf("min positive days cannot exceed the 7 day window")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
