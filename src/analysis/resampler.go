package analysis

import (
	"sort"

	"coin-observer/src/models"
)

// Window is a group of consecutive indices sharing one aligned time bucket.
type Window struct {
	Start     int // first index, inclusive
	End       int // last index, exclusive
	StartTime int64
	EndTime   int64
}

// -----------------------------------------------------------------------------

// ResampleIndices groups ascending timestamps into buckets aligned on
// multiples of window. Empty buckets are skipped.
func ResampleIndices(timestamps []int64, window int64) []Window {
	if len(timestamps) == 0 || window <= 0 {
		return nil
	}

	var results []Window
	i := 0
	for i < len(timestamps) {
		start, end := CalculateWindowBoundaries(timestamps[i], window)
		j := i + sort.Search(len(timestamps)-i, func(k int) bool {
			return timestamps[i+k] >= end
		})
		results = append(results, Window{Start: i, End: j, StartTime: start, EndTime: end})
		i = j
	}
	return results
}

// -----------------------------------------------------------------------------

// ResampleCandles merges candles into bars factor times longer. The step is
// taken from the first two open times and buckets are aligned on multiples of
// the new bar length, so the newest bar may be partial.
func ResampleCandles(candles []models.MCandle, factor int) []models.MCandle {
	if factor <= 1 || len(candles) < 2 {
		return append([]models.MCandle(nil), candles...)
	}
	step := candles[1].OpenTime - candles[0].OpenTime
	if step <= 0 {
		return nil
	}

	openTimes := make([]int64, len(candles))
	for i, c := range candles {
		openTimes[i] = c.OpenTime
	}

	windows := ResampleIndices(openTimes, step*int64(factor))
	out := make([]models.MCandle, 0, len(windows))
	for _, w := range windows {
		bar := MergeCandles(candles[w.Start:w.End])
		bar.OpenTime = w.StartTime
		out = append(out, bar)
	}
	return out
}

// -----------------------------------------------------------------------------

// MergeCandles folds an ascending run of candles into one OHLCV bar.
func MergeCandles(group []models.MCandle) models.MCandle {
	if len(group) == 0 {
		return models.MCandle{}
	}

	first, last := group[0], group[len(group)-1]
	bar := models.MCandle{
		OpenTime:  first.OpenTime,
		CloseTime: last.CloseTime,
		Open:      first.Open,
		High:      first.High,
		Low:       first.Low,
		Close:     last.Close,
	}
	for _, c := range group {
		if c.High > bar.High {
			bar.High = c.High
		}
		if c.Low < bar.Low {
			bar.Low = c.Low
		}
		bar.Volume += c.Volume
		bar.QuoteVolume += c.QuoteVolume
		bar.Trades += c.Trades
	}
	return bar
}

// -----------------------------------------------------------------------------

// CalculateWindowBoundaries returns the aligned bucket containing ts.
func CalculateWindowBoundaries(ts int64, window int64) (int64, int64) {
	start := ts - (ts % window)
	return start, start + window
}
