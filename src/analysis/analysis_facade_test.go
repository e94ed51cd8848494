package analysis

import (
	"testing"
	"time"

	"coin-observer/src/logger"
	"coin-observer/src/models"
)

func newFacade(t *testing.T, policy string) *AnalysisFacade {
	t.Helper()
	cfg := &models.MConfig{}
	cfg.Ranking.Policy = policy
	cfg.DataSource.QuoteAsset = "USDT"

	facade, err := NewAnalysisFacade(cfg, logger.NewLogger(nil, "test"))
	if err != nil {
		t.Fatalf("NewAnalysisFacade: %v", err)
	}
	facade.now = func() time.Time { return time.UnixMilli(42) }
	return facade
}

func TestBuildAnalyticsPrefersLiveChange(t *testing.T) {
	facade := newFacade(t, PolicyRelaxed)
	ticker := models.MTicker24h{Symbol: "ETHUSDT", LastPrice: 2000, PriceChangePercent: 1}
	set := models.MCandleSet{Candles5m: candlesFromCloses(100, 100.1)}

	live := 1.25
	coin := facade.BuildAnalytics(ticker, set, &live)
	if coin.Name != "Ethereum" || coin.Policy != PolicyRelaxed || coin.LastUpdate != 42 {
		t.Errorf("coin = %+v", coin)
	}
	if coin.Change5m() != 1.25 || !coin.IsHot {
		t.Errorf("live change not used: %v hot=%v", coin.Change5m(), coin.IsHot)
	}

	live = 9
	if *coin.LiveChange5m != 1.25 {
		t.Error("published record aliases the caller's value")
	}

	cold := facade.BuildAnalytics(ticker, set, nil)
	if cold.LiveChange5m != nil || cold.IsHot {
		t.Errorf("candle change should be used: %+v", cold)
	}
}

func TestBuildAnalyticsStrictStable(t *testing.T) {
	facade := newFacade(t, "")
	ticker := models.MTicker24h{Symbol: "NEWUSDT", LastPrice: 112, PriceChangePercent: 1.8}
	set := models.MCandleSet{Candles1d: dailyFromCloses(100, 102, 104, 106, 108, 110, 111, 112)}

	coin := facade.BuildAnalytics(ticker, set, nil)
	if coin.Name != "NEW" {
		t.Errorf("name = %q", coin.Name)
	}
	if !coin.IsStableGrowth || coin.IsHot {
		t.Errorf("classification = stable:%v hot:%v", coin.IsStableGrowth, coin.IsHot)
	}
	if coin.Policy != PolicyStrict {
		t.Errorf("policy = %q", coin.Policy)
	}
}
