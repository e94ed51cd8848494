package models

// MPricePoint is a single observed price. Timestamp is in milliseconds.
type MPricePoint struct {
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
}

// MTick is a live market snapshot delivered by a tick source.
type MTick struct {
	Symbol      string  `json:"symbol"`
	Price       float64 `json:"price"`
	QuoteVolume float64 `json:"quote_volume"`
	Timestamp   int64   `json:"timestamp"`
}

// MSymbolDebug describes the tracker state of one symbol.
type MSymbolDebug struct {
	Symbol     string   `json:"symbol"`
	DataPoints int      `json:"data_points"`
	Oldest     int64    `json:"oldest"`
	Newest     int64    `json:"newest"`
	LastUpdate int64    `json:"last_update"`
	Change     *float64 `json:"change"`
}
