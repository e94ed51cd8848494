package models

// MConfig Structure
type MConfig struct {
	Name           string                `yaml:"name"`
	Host           string                `yaml:"host"`
	Port           int                   `yaml:"port"`
	LogLevel       string                `yaml:"log_level"`
	GrpcHost       string                `yaml:"grpc_host"`
	GrpcPort       int                   `yaml:"grpc_port"`
	Storage        MStorageConfig        `yaml:"storage"`
	Network        MNetworkConfig        `yaml:"network"`
	DataSource     MDataSourceConfig     `yaml:"data_source"`
	Tracker        MTrackerConfig        `yaml:"tracker"`
	Ranking        MRankingConfig        `yaml:"ranking"`
	Classification MClassificationConfig `yaml:"classification"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"` // "none", "sqlite" or "postgres"
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionHours     int    `yaml:"retention_hours"`
}

type MNetworkConfig struct {
	Enabled            bool     `yaml:"enabled"`
	Proxies            []string `yaml:"proxies"`
	RequestTimeout     int      `yaml:"timeout"`
	MaxRetries         int      `yaml:"retries"`
	ConcurrentRequests int      `yaml:"concurrent_requests"`
	UserAgent          string   `yaml:"user_agent"`
}

type MDataSourceConfig struct {
	Name                       string   `yaml:"name"`
	BaseURL                    string   `yaml:"base_url"`
	StreamURL                  string   `yaml:"stream_url"`
	StreamEnabled              bool     `yaml:"stream_enabled"`
	QuoteAsset                 string   `yaml:"quote_asset"`
	ExchangeInfoTimeoutSeconds int      `yaml:"exchange_info_timeout_seconds"`
	TickerTimeoutSeconds       int      `yaml:"ticker_timeout_seconds"`
	KlinesTimeoutSeconds       int      `yaml:"klines_timeout_seconds"`
	MaxTickerSymbols           int      `yaml:"max_ticker_symbols"`
	CandleLimit5m              int      `yaml:"candle_limit_5m"`
	CandleLimit1h              int      `yaml:"candle_limit_1h"`
	CandleLimit1d              int      `yaml:"candle_limit_1d"`
	FallbackSymbols            []string `yaml:"fallback_symbols"`
}

type MTrackerConfig struct {
	WindowSeconds int `yaml:"window_seconds"`
	MaxPoints     int `yaml:"max_points"`
}

type MRankingConfig struct {
	Policy               string  `yaml:"policy"` // "strict" or "relaxed"
	DefaultLimit         int     `yaml:"default_limit"`
	HotMinQuoteVolume    float64 `yaml:"hot_min_quote_volume"`
	StableMinQuoteVolume float64 `yaml:"stable_min_quote_volume"`
	HotMaxSymbols        int     `yaml:"hot_max_symbols"`
	StableMaxSymbols     int     `yaml:"stable_max_symbols"`
	BatchSize            int     `yaml:"batch_size"`
	BatchDelayMs         int     `yaml:"batch_delay_ms"`
	TieBreakEpsilon      float64 `yaml:"tie_break_epsilon"`
	UniverseTTLMinutes   int     `yaml:"universe_ttl_minutes"`
	HotTTLMinutes        int     `yaml:"hot_ttl_minutes"`
	StableTTLMinutes     int     `yaml:"stable_ttl_minutes"`
	ServeEmptyLists      bool    `yaml:"serve_empty_lists"` // cache empty hot/stable results until their TTL
}

type MClassificationConfig struct {
	Immediate MHotThreshold    `yaml:"immediate" json:"immediate"`
	Short     MHotThreshold    `yaml:"short" json:"short"`
	Medium    MHotThreshold    `yaml:"medium" json:"medium"`
	Stable    MStableThreshold `yaml:"stable" json:"stable"`
}

// MHotThreshold holds the three absolute minimums a hot tier requires.
type MHotThreshold struct {
	PriceChangePct float64 `yaml:"price_change_pct" json:"price_change_pct"`
	VolumeSpikePct float64 `yaml:"volume_spike_pct" json:"volume_spike_pct"`
	MomentumPct    float64 `yaml:"momentum_pct" json:"momentum_pct"`
}

type MStableThreshold struct {
	WeeklyGrowthPct       float64 `yaml:"weekly_growth_pct" json:"weekly_growth_pct"`
	MaxDailyVolatilityPct float64 `yaml:"max_daily_volatility_pct" json:"max_daily_volatility_pct"`
	MinPositiveDays       int     `yaml:"min_positive_days" json:"min_positive_days"`
}

// GetLogLevel lets the logger read its threshold from the config.
func (c *MConfig) GetLogLevel() string {
	if c == nil {
		return ""
	}
	return c.LogLevel
}
