package models

// Trend direction derived from recent closes.
type Trend string

const (
	TrendBullish  Trend = "BULLISH"
	TrendBearish  Trend = "BEARISH"
	TrendSideways Trend = "SIDEWAYS"
)

// MGrowthMetrics is recomputed as a whole on every refresh cycle.
type MGrowthMetrics struct {
	PriceChange5m   float64 `json:"price_change_5m"`
	PriceChange15m  float64 `json:"price_change_15m"`
	PriceChange1h   float64 `json:"price_change_1h"`
	PriceChange24h  float64 `json:"price_change_24h"`
	PriceChange7d   float64 `json:"price_change_7d"`
	VolumeChange5m  float64 `json:"volume_change_5m"`
	VolumeChange15m float64 `json:"volume_change_15m"`
	VolumeChange1h  float64 `json:"volume_change_1h"`
	Momentum        float64 `json:"momentum"`
	Volatility      float64 `json:"volatility"`
	Trend           Trend   `json:"trend"`
}

// MCoinAnalytics is the published per-symbol record. Instances are never
// modified after publication; a refresh swaps in a new pointer.
type MCoinAnalytics struct {
	Symbol         string         `json:"symbol"`
	Name           string         `json:"name"`
	Price          float64        `json:"price"`
	Change24h      float64        `json:"change_24h"`
	Volume24h      float64        `json:"volume_24h"`
	QuoteVolume24h float64        `json:"quote_volume_24h"`
	High24h        float64        `json:"high_24h"`
	Low24h         float64        `json:"low_24h"`
	Metrics        MGrowthMetrics `json:"metrics"`
	LiveChange5m   *float64       `json:"live_change_5m"`
	Support        float64        `json:"support"`
	Resistance     float64        `json:"resistance"`
	IsHot5min      bool           `json:"is_hot_5min"`
	IsHot15min     bool           `json:"is_hot_15min"`
	IsHot1h        bool           `json:"is_hot_1h"`
	IsHot          bool           `json:"is_hot"`
	IsStableGrowth bool           `json:"is_stable_growth"`
	ScoreMomentum  float64        `json:"score_momentum"`
	Policy         string         `json:"policy"`
	LastUpdate     int64          `json:"last_update"`
}

// Change5m returns the live tracker change when one was available, else the
// candle-derived change.
func (c *MCoinAnalytics) Change5m() float64 {
	if c.LiveChange5m != nil {
		return *c.LiveChange5m
	}
	return c.Metrics.PriceChange5m
}
