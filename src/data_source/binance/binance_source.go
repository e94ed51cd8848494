package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"coin-observer/src/helpers"
	"coin-observer/src/interfaces"
	"coin-observer/src/logger"
	"coin-observer/src/models"
)

const (
	exchangeInfoPath = "/api/v3/exchangeInfo"
	tickerPath       = "/api/v3/ticker/24hr"
	klinesPath       = "/api/v3/klines"
)

// BinanceSource reads the exchange universe, 24h tickers and klines from
// the Binance spot REST API.
type BinanceSource struct {
	Config  *models.MConfig
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewBinanceSource(cfg *models.MConfig, netMgr interfaces.INetworkManager, log *logger.Logger) *BinanceSource {
	if log == nil {
		log = logger.NewLogger(cfg, "BinanceSource")
	}
	return &BinanceSource{
		Config:  cfg,
		Network: netMgr,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------

func (s *BinanceSource) Name() string {
	if s.Config.DataSource.Name != "" {
		return s.Config.DataSource.Name
	}
	return "binance"
}

// -----------------------------------------------------------------------------

func (s *BinanceSource) url(path string) string {
	return strings.TrimRight(s.Config.DataSource.BaseURL, "/") + path
}

func (s *BinanceSource) quote() string {
	if s.Config.DataSource.QuoteAsset != "" {
		return s.Config.DataSource.QuoteAsset
	}
	return "USDT"
}

func withTimeout(ctx context.Context, seconds int) (context.Context, context.CancelFunc) {
	if seconds <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
}

// -----------------------------------------------------------------------------

type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol               string `json:"symbol"`
		Status               string `json:"status"`
		BaseAsset            string `json:"baseAsset"`
		QuoteAsset           string `json:"quoteAsset"`
		IsSpotTradingAllowed bool   `json:"isSpotTradingAllowed"`
	} `json:"symbols"`
}

// -----------------------------------------------------------------------------

// FetchUniverse returns the sorted list of trading spot pairs against the
// quote asset, minus stablecoin, fiat and leveraged token pairs.
func (s *BinanceSource) FetchUniverse(ctx context.Context) ([]string, error) {
	ctx, cancel := withTimeout(ctx, s.Config.DataSource.ExchangeInfoTimeoutSeconds)
	defer cancel()

	body, err := s.Network.Get(ctx, s.url(exchangeInfoPath), nil)
	if err != nil {
		return nil, helpers.NewFetchError("exchangeInfo", "", 0, err)
	}

	var resp exchangeInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, helpers.NewFetchError("exchangeInfo", "", 0, fmt.Errorf("decode: %w", err))
	}

	quote := s.quote()
	symbols := make([]string, 0, len(resp.Symbols))
	skipped := 0
	for _, info := range resp.Symbols {
		if info.Status != "TRADING" || !info.IsSpotTradingAllowed || info.QuoteAsset != quote {
			continue
		}
		symbol, err := helpers.ValidateSymbol(info.Symbol, quote)
		if err != nil {
			skipped++
			continue
		}
		symbols = append(symbols, symbol)
	}

	if len(symbols) == 0 {
		return nil, helpers.NewFetchError("exchangeInfo", "", 0, fmt.Errorf("no valid %s trading pairs", quote))
	}

	sort.Strings(symbols)
	s.Logger.Info("Loaded %d %s trading pairs (%d filtered out)", len(symbols), quote, skipped)
	return symbols, nil
}

// -----------------------------------------------------------------------------

type tickerResponse struct {
	Symbol             string  `json:"symbol"`
	LastPrice          float64 `json:"lastPrice,string"`
	PriceChangePercent float64 `json:"priceChangePercent,string"`
	Volume             float64 `json:"volume,string"`
	QuoteVolume        float64 `json:"quoteVolume,string"`
	HighPrice          float64 `json:"highPrice,string"`
	LowPrice           float64 `json:"lowPrice,string"`
}

// -----------------------------------------------------------------------------

// FetchTicker24h returns 24h summaries for symbols, or for every pair on the
// exchange when symbols is empty. Long symbol lists are split into requests
// of at most MaxTickerSymbols.
func (s *BinanceSource) FetchTicker24h(ctx context.Context, symbols []string) ([]models.MTicker24h, error) {
	ctx, cancel := withTimeout(ctx, s.Config.DataSource.TickerTimeoutSeconds)
	defer cancel()

	if len(symbols) == 0 {
		return s.fetchTickers(ctx, nil)
	}

	chunk := s.Config.DataSource.MaxTickerSymbols
	if chunk <= 0 {
		chunk = 100
	}

	var out []models.MTicker24h
	for start := 0; start < len(symbols); start += chunk {
		end := start + chunk
		if end > len(symbols) {
			end = len(symbols)
		}
		tickers, err := s.fetchTickers(ctx, symbols[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, tickers...)
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *BinanceSource) fetchTickers(ctx context.Context, symbols []string) ([]models.MTicker24h, error) {
	var params map[string]string
	if len(symbols) > 0 {
		encoded, err := json.Marshal(symbols)
		if err != nil {
			return nil, err
		}
		params = map[string]string{"symbols": string(encoded)}
	}

	body, err := s.Network.Get(ctx, s.url(tickerPath), params)
	if err != nil {
		return nil, helpers.NewFetchError("ticker", "", 0, err)
	}

	var resp []tickerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, helpers.NewFetchError("ticker", "", 0, fmt.Errorf("decode: %w", err))
	}

	out := make([]models.MTicker24h, 0, len(resp))
	for _, t := range resp {
		out = append(out, models.MTicker24h{
			Symbol:             t.Symbol,
			LastPrice:          t.LastPrice,
			PriceChangePercent: t.PriceChangePercent,
			Volume:             t.Volume,
			QuoteVolume:        t.QuoteVolume,
			HighPrice:          t.HighPrice,
			LowPrice:           t.LowPrice,
		})
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// FetchCandles returns up to limit klines of symbol, oldest first. Invalid
// symbols are rejected before any request is made.
func (s *BinanceSource) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]models.MCandle, error) {
	symbol, err := helpers.ValidateSymbol(symbol, s.quote())
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 1000 {
		return nil, &helpers.ValidationError{ObserverError: helpers.ObserverError{
			Message: fmt.Sprintf("kline limit %d out of range 1..1000", limit),
		}}
	}

	ctx, cancel := withTimeout(ctx, s.Config.DataSource.KlinesTimeoutSeconds)
	defer cancel()

	params := map[string]string{
		"symbol":   symbol,
		"interval": interval,
		"limit":    strconv.Itoa(limit),
	}
	body, err := s.Network.Get(ctx, s.url(klinesPath), params)
	if err != nil {
		return nil, helpers.NewFetchError("klines", symbol, 0, err)
	}

	candles, err := parseKlines(body)
	if err != nil {
		return nil, helpers.NewFetchError("klines", symbol, 0, err)
	}
	return candles, nil
}

// -----------------------------------------------------------------------------

// parseKlines decodes the positional kline rows:
// [openTime, open, high, low, close, volume, closeTime, quoteVolume, trades, ...]
// Rows are sorted by open time and duplicates dropped.
func parseKlines(body []byte) ([]models.MCandle, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	candles := make([]models.MCandle, 0, len(rows))
	for i, row := range rows {
		if len(row) < 9 {
			return nil, fmt.Errorf("kline %d has %d fields", i, len(row))
		}

		var fields [9]float64
		for j := 0; j < 9; j++ {
			v, err := rawNumber(row[j])
			if err != nil {
				return nil, fmt.Errorf("kline %d field %d: %w", i, j, err)
			}
			fields[j] = v
		}

		candles = append(candles, models.MCandle{
			OpenTime:    int64(fields[0]),
			Open:        fields[1],
			High:        fields[2],
			Low:         fields[3],
			Close:       fields[4],
			Volume:      fields[5],
			CloseTime:   int64(fields[6]),
			QuoteVolume: fields[7],
			Trades:      int(fields[8]),
		})
	}

	sort.SliceStable(candles, func(i, j int) bool { return candles[i].OpenTime < candles[j].OpenTime })
	unique := candles[:0]
	for i, c := range candles {
		if i > 0 && c.OpenTime == unique[len(unique)-1].OpenTime {
			continue
		}
		unique = append(unique, c)
	}
	return unique, nil
}

// -----------------------------------------------------------------------------

// rawNumber accepts both JSON numbers and numeric strings.
func rawNumber(raw json.RawMessage) (float64, error) {
	s := strings.Trim(string(raw), `"`)
	return strconv.ParseFloat(s, 64)
}
