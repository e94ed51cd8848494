package analysis

import (
	"coin-observer/src/analysis/core"
	"coin-observer/src/models"
)

// Lookbacks in candles for each reported horizon.
const (
	Lookback5m  = 1  // 5m candles
	Lookback15m = 3  // 5m candles
	Lookback1h  = 12 // 5m candles
	Lookback24h = 24 // 1h candles
	Lookback7d  = 7  // 1d candles

	momentumHalf         = 5
	volatilityWindow     = 20
	minVolatilityCandles = 10
	trendWindow          = 10
	levelsWindow         = 10
)

// -----------------------------------------------------------------------------

// PriceChange compares the last close with the close k candles earlier.
// Returns 0 when there are fewer than k+1 candles.
func PriceChange(data []models.MCandle, k int) float64 {
	if k <= 0 || len(data) < k+1 {
		return 0
	}
	current := data[len(data)-1].Close
	past := data[len(data)-1-k].Close
	return core.CalculatePercentChange(current, past)
}

// -----------------------------------------------------------------------------

// VolumeChange compares the quote volume of the last k candles with the k
// before them. Returns 0 with fewer than 2k candles or a zero prior sum.
func VolumeChange(data []models.MCandle, k int) float64 {
	if k <= 0 || len(data) < 2*k {
		return 0
	}
	n := len(data)
	recent := sumQuoteVolume(data[n-k:])
	prior := sumQuoteVolume(data[n-2*k : n-k])
	return core.CalculatePercentChange(recent, prior)
}

func sumQuoteVolume(data []models.MCandle) float64 {
	total := 0.0
	for _, c := range data {
		total += c.QuoteVolume
	}
	return total
}

// -----------------------------------------------------------------------------

// Momentum compares the mean of the last 5 closes with the mean of the 5
// before them. Returns 0 with fewer than 10 candles.
func Momentum(data []models.MCandle) float64 {
	if len(data) < 2*momentumHalf {
		return 0
	}
	closes := closesOf(data[len(data)-2*momentumHalf:])
	older := core.Mean(closes[:momentumHalf])
	recent := core.Mean(closes[momentumHalf:])
	return core.CalculatePercentChange(recent, older)
}

// -----------------------------------------------------------------------------

// Volatility is the population standard deviation of the close-to-close
// returns within the last 20 candles of data, in percent. Returns 0 with
// fewer than 10 candles.
func Volatility(data []models.MCandle) float64 {
	if len(data) < minVolatilityCandles {
		return 0
	}
	n := len(data)
	if n > volatilityWindow {
		n = volatilityWindow
	}
	returns := core.SimpleReturns(closesOf(data[len(data)-n:]))
	_, std := core.CalculateMeanStd(returns)
	return std * 100
}

// -----------------------------------------------------------------------------

// Trend classifies the last 10 candles by the share of rising closes.
func Trend(data []models.MCandle) models.Trend {
	if len(data) < trendWindow {
		return models.TrendSideways
	}
	recent := data[len(data)-trendWindow:]

	up, down := 0, 0
	for i := 1; i < len(recent); i++ {
		switch {
		case recent[i].Close > recent[i-1].Close:
			up++
		case recent[i].Close < recent[i-1].Close:
			down++
		}
	}
	if up+down == 0 {
		return models.TrendSideways
	}

	ratio := float64(up) / float64(up+down)
	switch {
	case ratio > 0.6:
		return models.TrendBullish
	case ratio < 0.4:
		return models.TrendBearish
	default:
		return models.TrendSideways
	}
}

// -----------------------------------------------------------------------------

// SupportResistance returns the lowest low and highest high of the last 10
// candles, or (0, 0) with fewer than 10.
func SupportResistance(data []models.MCandle) (support, resistance float64) {
	if len(data) < levelsWindow {
		return 0, 0
	}
	recent := data[len(data)-levelsWindow:]
	support, resistance = recent[0].Low, recent[0].High
	for _, c := range recent[1:] {
		if c.Low < support {
			support = c.Low
		}
		if c.High > resistance {
			resistance = c.High
		}
	}
	return support, resistance
}

// -----------------------------------------------------------------------------

// ComputeGrowthMetrics derives every horizon from a candle set. A missing
// hourly series is resampled from the 5 minute one.
func ComputeGrowthMetrics(set models.MCandleSet) models.MGrowthMetrics {
	hourly := set.Candles1h
	if len(hourly) == 0 {
		hourly = ResampleCandles(set.Candles5m, 12)
	}

	return models.MGrowthMetrics{
		PriceChange5m:   PriceChange(set.Candles5m, Lookback5m),
		PriceChange15m:  PriceChange(set.Candles5m, Lookback15m),
		PriceChange1h:   PriceChange(set.Candles5m, Lookback1h),
		PriceChange24h:  PriceChange(hourly, Lookback24h),
		PriceChange7d:   PriceChange(set.Candles1d, Lookback7d),
		VolumeChange5m:  VolumeChange(set.Candles5m, Lookback5m),
		VolumeChange15m: VolumeChange(set.Candles5m, Lookback15m),
		VolumeChange1h:  VolumeChange(set.Candles5m, Lookback1h),
		Momentum:        Momentum(set.Candles5m),
		Volatility:      Volatility(set.Candles5m),
		Trend:           Trend(set.Candles5m),
	}
}

// -----------------------------------------------------------------------------

func closesOf(data []models.MCandle) []float64 {
	out := make([]float64, len(data))
	for i, c := range data {
		out[i] = c.Close
	}
	return out
}
