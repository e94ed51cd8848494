package analysis

import (
	"testing"

	"coin-observer/src/models"
)

func dailyFromCloses(open float64, closes ...float64) []models.MCandle {
	out := make([]models.MCandle, len(closes))
	prev := open
	for i, c := range closes {
		out[i] = models.MCandle{
			OpenTime: int64(i) * 86_400_000,
			Open:     prev,
			High:     c,
			Low:      prev,
			Close:    c,
		}
		prev = c
	}
	return out
}

func TestIsHotIsConjunctive(t *testing.T) {
	tests := []struct {
		name                    string
		price, volume, momentum float64
		want                    bool
	}{
		{"all above", 2, 200, 45, true},
		{"volume short", 2, 100, 45, false},
		{"price short", 1, 200, 45, false},
		{"momentum short", 2, 200, 10, false},
		{"negative moves count by size", -2, 200, -45, true},
		{"negative volume never counts", 2, -200, 45, false},
		{"exact thresholds", 1.5, 150, 40, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsHot(tt.price, tt.volume, tt.momentum, DefaultImmediate); got != tt.want {
				t.Errorf("IsHot = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsStableGrowth(t *testing.T) {
	steady := dailyFromCloses(100, 102, 104, 106, 108, 110, 111, 112)
	if !IsStableGrowth(steady, DefaultStable) {
		t.Error("steady 12% week rejected")
	}

	// 12% over the week but one day drops 16%
	spiky := dailyFromCloses(100, 100, 110, 120, 130, 109.2, 115, 112)
	if IsStableGrowth(spiky, DefaultStable) {
		t.Error("week with a 16% daily drop accepted")
	}

	weak := dailyFromCloses(100, 101, 102, 103, 104, 105, 106, 107)
	if IsStableGrowth(weak, DefaultStable) {
		t.Error("7% week accepted")
	}

	if IsStableGrowth(steady[:6], DefaultStable) {
		t.Error("six days accepted")
	}

	// growth comes from two jumps, the rest of the days are flat or down
	fewUpDays := dailyFromCloses(100, 100, 110, 110, 110, 122, 121, 120)
	if IsStableGrowth(fewUpDays, DefaultStable) {
		t.Error("week with two positive days accepted")
	}
}

func TestIsStableGrowthUsesLastSevenDays(t *testing.T) {
	daily := dailyFromCloses(100, 50, 40, 100, 102, 104, 106, 108, 110, 112)
	if !IsStableGrowth(daily, DefaultStable) {
		t.Error("older crash should not count")
	}
}

func TestStrictPolicy(t *testing.T) {
	policy := NewStrictPolicy(models.MClassificationConfig{})
	if policy.Immediate != DefaultImmediate || policy.Stable != DefaultStable {
		t.Fatalf("defaults not applied: %+v", policy)
	}

	in := ClassificationInput{
		Metrics: models.MGrowthMetrics{
			PriceChange5m:   0.2,
			VolumeChange5m:  300,
			PriceChange15m:  3.5,
			VolumeChange15m: 120,
			Momentum:        45,
		},
		Change5m: 2.0,
	}
	got := policy.Classify(in)
	if !got.IsHot5min {
		t.Error("live 5m change should drive the immediate tier")
	}
	if !got.IsHot15min || got.IsHot1h || !got.IsHot {
		t.Errorf("tiers = %+v", got)
	}
	if got.Score != 45 {
		t.Errorf("score = %v, want momentum", got.Score)
	}
}

func TestRelaxedPolicy(t *testing.T) {
	policy := &RelaxedPolicy{}
	tests := []struct {
		name     string
		change5m float64
		ticker   models.MTicker24h
		want     bool
	}{
		{"fast 5m", 0.9, models.MTicker24h{}, true},
		{"moderate 5m with 24h", 0.5, models.MTicker24h{PriceChangePercent: 6}, true},
		{"moderate 5m alone", 0.5, models.MTicker24h{PriceChangePercent: 4}, false},
		{"strong day slight dip", -0.4, models.MTicker24h{PriceChangePercent: 12, Volume: 2_000_000}, true},
		{"strong day thin volume", -0.4, models.MTicker24h{PriceChangePercent: 12, Volume: 500_000}, false},
		{"strong day real dip", -0.6, models.MTicker24h{PriceChangePercent: 12, Volume: 2_000_000}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.Classify(ClassificationInput{Ticker: tt.ticker, Change5m: tt.change5m})
			if got.IsHot != tt.want {
				t.Errorf("IsHot = %v, want %v", got.IsHot, tt.want)
			}
		})
	}

	score := policy.Classify(ClassificationInput{
		Ticker:   models.MTicker24h{PriceChangePercent: 4},
		Change5m: 1,
	}).Score
	if score != 7 {
		t.Errorf("score = %v, want 7", score)
	}
	score = policy.Classify(ClassificationInput{
		Ticker:   models.MTicker24h{PriceChangePercent: 4},
		Change5m: -2,
	}).Score
	if score != 4 {
		t.Errorf("negative 5m should not lower the score, got %v", score)
	}
}

func TestRelaxedStable(t *testing.T) {
	ticker := models.MTicker24h{
		LastPrice:          100,
		PriceChangePercent: 5,
		HighPrice:          104,
		LowPrice:           97,
		Volume:             600_000,
	}
	if !relaxedStable(ticker) {
		t.Error("calm 5% day rejected")
	}

	wide := ticker
	wide.LowPrice = 85
	if relaxedStable(wide) {
		t.Error("19% range accepted")
	}

	thin := ticker
	thin.Volume = 100
	if relaxedStable(thin) {
		t.Error("thin volume accepted")
	}

	if relaxedStable(models.MTicker24h{PriceChangePercent: 5, Volume: 1e6}) {
		t.Error("zero price accepted")
	}
}

func TestNewPolicy(t *testing.T) {
	cfg := &models.MConfig{}
	p, err := NewPolicy(cfg)
	if err != nil || p.Name() != PolicyStrict {
		t.Fatalf("default policy = %v, %v", p, err)
	}

	cfg.Ranking.Policy = "Relaxed"
	if p, err = NewPolicy(cfg); err != nil || p.Name() != PolicyRelaxed {
		t.Fatalf("relaxed policy = %v, %v", p, err)
	}

	cfg.Ranking.Policy = "greedy"
	if _, err = NewPolicy(cfg); err == nil {
		t.Fatal("unknown policy accepted")
	}
}
