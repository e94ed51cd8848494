package analysis

import (
	"math"
	"testing"

	"coin-observer/src/models"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// candlesFromCloses builds 5 minute candles whose open equals the previous
// close.
func candlesFromCloses(closes ...float64) []models.MCandle {
	out := make([]models.MCandle, len(closes))
	const step = int64(300_000)
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		out[i] = models.MCandle{
			OpenTime:    int64(i) * step,
			CloseTime:   int64(i+1)*step - 1,
			Open:        open,
			High:        math.Max(open, c) + 1,
			Low:         math.Min(open, c) - 1,
			Close:       c,
			Volume:      10,
			QuoteVolume: 10 * c,
		}
	}
	return out
}

func TestPriceChange(t *testing.T) {
	data := candlesFromCloses(100, 103)
	if got := PriceChange(data, 1); !approx(got, 3.0) {
		t.Errorf("PriceChange = %v, want 3.0", got)
	}
	if got := PriceChange(data, 2); got != 0 {
		t.Errorf("short series = %v, want 0", got)
	}
	if got := PriceChange(candlesFromCloses(0, 5), 1); got != 0 {
		t.Errorf("zero base = %v, want 0", got)
	}
}

func TestVolumeChange(t *testing.T) {
	data := candlesFromCloses(1, 1, 1, 1)
	data[2].QuoteVolume = 30
	data[3].QuoteVolume = 30
	data[0].QuoteVolume = 10
	data[1].QuoteVolume = 10
	if got := VolumeChange(data, 2); !approx(got, 200) {
		t.Errorf("VolumeChange = %v, want 200", got)
	}
	if got := VolumeChange(data[:3], 2); got != 0 {
		t.Errorf("short series = %v, want 0", got)
	}

	data[0].QuoteVolume, data[1].QuoteVolume = 0, 0
	if got := VolumeChange(data, 2); got != 0 {
		t.Errorf("zero prior volume = %v, want 0", got)
	}
}

func TestMomentum(t *testing.T) {
	data := candlesFromCloses(100, 100, 100, 100, 100, 110, 110, 110, 110, 110)
	if got := Momentum(data); !approx(got, 10) {
		t.Errorf("Momentum = %v, want 10", got)
	}
	if got := Momentum(data[:9]); got != 0 {
		t.Errorf("Momentum with 9 candles = %v, want 0", got)
	}
}

func TestVolatilityUsesLatestTwentyCandles(t *testing.T) {
	closes := make([]float64, 0, 30)
	for i := 0; i < 20; i++ {
		closes = append(closes, 100)
	}
	for i := 0; i < 10; i++ {
		closes = append(closes, 100+float64(i%2)*50)
	}
	if got := Volatility(candlesFromCloses(closes...)); got <= 0 {
		t.Errorf("Volatility = %v, want > 0 when the latest candles swing", got)
	}

	// swings that scrolled out of the window no longer count
	old := make([]float64, 0, 30)
	for i := 0; i < 10; i++ {
		old = append(old, 100+float64(i%2)*50)
	}
	for i := 0; i < 20; i++ {
		old = append(old, 100)
	}
	if got := Volatility(candlesFromCloses(old...)); got != 0 {
		t.Errorf("Volatility = %v, want 0 for a flat latest window", got)
	}

	if got := Volatility(candlesFromCloses(100, 110, 100, 110, 100, 110, 100, 110, 100)); got != 0 {
		t.Errorf("Volatility with 9 candles = %v, want 0", got)
	}

	// returns alternate +10% and -10% around a zero mean
	swing := candlesFromCloses(100, 110, 99, 108.9, 98.01, 107.811, 97.0299, 106.73289, 96.059601, 105.6655611, 95.09900499)
	if got := Volatility(swing); !approx(got, 10) {
		t.Errorf("Volatility = %v, want 10", got)
	}
}

func TestTrend(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		want   models.Trend
	}{
		{"bullish", []float64{100, 101, 99, 105, 110, 108, 112, 115, 113, 120}, models.TrendBullish},
		{"bearish", []float64{120, 113, 115, 112, 108, 110, 105, 99, 101, 100}, models.TrendBearish},
		{"sideways", []float64{100, 101, 100, 101, 100, 101, 100, 101, 100, 101}, models.TrendSideways},
		{"flat", []float64{5, 5, 5, 5, 5, 5, 5, 5, 5, 5}, models.TrendSideways},
		{"short", []float64{1, 2, 3}, models.TrendSideways},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Trend(candlesFromCloses(tt.closes...)); got != tt.want {
				t.Errorf("Trend = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSupportResistance(t *testing.T) {
	data := candlesFromCloses(50, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100)
	support, resistance := SupportResistance(data)
	if support != 9 || resistance != 101 {
		t.Errorf("levels = %v/%v, want 9/101", support, resistance)
	}

	if s, r := SupportResistance(data[:9]); s != 0 || r != 0 {
		t.Errorf("short series levels = %v/%v", s, r)
	}
}

func TestComputeGrowthMetricsDerivesHourly(t *testing.T) {
	closes := make([]float64, 0, 25*12+1)
	for i := 0; i <= 25*12; i++ {
		closes = append(closes, 100+float64(i))
	}
	set := models.MCandleSet{Candles5m: candlesFromCloses(closes...)}

	m := ComputeGrowthMetrics(set)
	if m.PriceChange24h == 0 {
		t.Fatal("24h change not derived from 5m candles")
	}
	if m.PriceChange7d != 0 {
		t.Errorf("7d change = %v without daily candles", m.PriceChange7d)
	}
	if m.Trend != models.TrendBullish {
		t.Errorf("trend = %s", m.Trend)
	}
	if !approx(m.PriceChange5m, (400.0-399.0)/399.0*100) {
		t.Errorf("5m change = %v", m.PriceChange5m)
	}
}
