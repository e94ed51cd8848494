package models

// Candle intervals requested from the exchange.
const (
	Interval5m = "5m"
	Interval1h = "1h"
	Interval1d = "1d"
)

// MCandle is one OHLCV bar. Times are in milliseconds.
type MCandle struct {
	OpenTime    int64   `json:"open_time"`
	CloseTime   int64   `json:"close_time"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
	QuoteVolume float64 `json:"quote_volume"`
	Trades      int     `json:"trades"`
}

// MCandleSet groups the series a single analytics pass works on.
type MCandleSet struct {
	Candles5m []MCandle
	Candles1h []MCandle
	Candles1d []MCandle
}

// MTicker24h is the rolling 24 hour summary of a symbol.
type MTicker24h struct {
	Symbol             string  `json:"symbol"`
	LastPrice          float64 `json:"last_price"`
	PriceChangePercent float64 `json:"price_change_percent"`
	Volume             float64 `json:"volume"`
	QuoteVolume        float64 `json:"quote_volume"`
	HighPrice          float64 `json:"high_price"`
	LowPrice           float64 `json:"low_price"`
}
