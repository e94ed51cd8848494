package analysis

import (
	"time"

	"coin-observer/src/helpers"
	"coin-observer/src/logger"
	"coin-observer/src/models"
)

// AnalysisFacade turns a ticker and its candles into a published analytics
// record using the configured classification policy.
type AnalysisFacade struct {
	Config *models.MConfig
	Policy ClassificationPolicy
	Logger *logger.Logger

	now func() time.Time
}

// -----------------------------------------------------------------------------

func NewAnalysisFacade(cfg *models.MConfig, log *logger.Logger) (*AnalysisFacade, error) {
	policy, err := NewPolicy(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewLogger(cfg, "AnalysisFacade")
	}

	log.Info("Using %s classification policy", policy.Name())
	return &AnalysisFacade{
		Config: cfg,
		Policy: policy,
		Logger: log,
		now:    time.Now,
	}, nil
}

// -----------------------------------------------------------------------------

// QuoteAsset is the asset every symbol is quoted in.
func (a *AnalysisFacade) QuoteAsset() string {
	if a.Config != nil && a.Config.DataSource.QuoteAsset != "" {
		return a.Config.DataSource.QuoteAsset
	}
	return "USDT"
}

// -----------------------------------------------------------------------------

// BuildAnalytics computes metrics and classification for one symbol. A nil
// liveChange means the tracker had no value and the candle change is used.
func (a *AnalysisFacade) BuildAnalytics(
	ticker models.MTicker24h,
	candles models.MCandleSet,
	liveChange *float64,
) *models.MCoinAnalytics {

	metrics := ComputeGrowthMetrics(candles)
	support, resistance := SupportResistance(candles.Candles5m)

	coin := &models.MCoinAnalytics{
		Symbol:         ticker.Symbol,
		Name:           helpers.SymbolName(ticker.Symbol, a.QuoteAsset()),
		Price:          ticker.LastPrice,
		Change24h:      ticker.PriceChangePercent,
		Volume24h:      ticker.Volume,
		QuoteVolume24h: ticker.QuoteVolume,
		High24h:        ticker.HighPrice,
		Low24h:         ticker.LowPrice,
		Metrics:        metrics,
		Support:        support,
		Resistance:     resistance,
		Policy:         a.Policy.Name(),
		LastUpdate:     a.now().UnixMilli(),
	}
	if liveChange != nil {
		v := *liveChange
		coin.LiveChange5m = &v
	}
	if coin.Price == 0 && len(candles.Candles5m) > 0 {
		coin.Price = candles.Candles5m[len(candles.Candles5m)-1].Close
	}

	verdict := a.Policy.Classify(ClassificationInput{
		Ticker:   ticker,
		Metrics:  metrics,
		Daily:    candles.Candles1d,
		Change5m: coin.Change5m(),
	})
	coin.IsHot5min = verdict.IsHot5min
	coin.IsHot15min = verdict.IsHot15min
	coin.IsHot1h = verdict.IsHot1h
	coin.IsHot = verdict.IsHot
	coin.IsStableGrowth = verdict.IsStable
	coin.ScoreMomentum = verdict.Score

	return coin
}
