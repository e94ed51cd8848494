package utils

import (
	"time"
)

// -----------------------------------------------------------------------------

// Tracker defaults: a 5 minute horizon with at most 100 samples per symbol.
// Points older than RetentionFactor windows behind the newest are dropped.
const (
	DefaultWindowSeconds = 300
	DefaultMaxPoints     = 100
	RetentionFactor      = 2
)

// -----------------------------------------------------------------------------

// NowMillis returns the wall clock in Unix milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// -----------------------------------------------------------------------------

// SampleInterval spreads maxPoints evenly over the retained span so a full
// buffer still reaches back RetentionFactor windows.
func SampleInterval(window time.Duration, maxPoints int) time.Duration {
	if maxPoints < 2 {
		return window
	}
	return time.Duration(RetentionFactor) * window / time.Duration(maxPoints)
}
