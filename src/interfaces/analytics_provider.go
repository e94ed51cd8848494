package interfaces

import (
	"context"

	"coin-observer/src/models"
)

// -----------------------------------------------------------------------------
// IAnalyticsProvider is the read side used by the dashboard and control APIs.
// -----------------------------------------------------------------------------

type IAnalyticsProvider interface {

	// HotCoins returns at most limit hot symbols, best first.
	HotCoins(ctx context.Context, limit int) []*models.MCoinAnalytics

	// -----------------------------------------------------------------------------

	// StableCoins returns at most limit stable growers, best first.
	StableCoins(ctx context.Context, limit int) []*models.MCoinAnalytics

	// -----------------------------------------------------------------------------

	// AllCoins returns every analytics record computed so far.
	AllCoins() []*models.MCoinAnalytics

	// -----------------------------------------------------------------------------

	// Coin returns the latest record for symbol, computing it on demand.
	Coin(ctx context.Context, symbol string) (*models.MCoinAnalytics, error)

	// -----------------------------------------------------------------------------

	// LiveChanges returns the tracker's rolling change per symbol.
	LiveChanges() map[string]float64

	// -----------------------------------------------------------------------------

	// TrackerDebug returns per-symbol tracker state.
	TrackerDebug() []models.MSymbolDebug

	// -----------------------------------------------------------------------------

	// CacheStatus describes every cache partition.
	CacheStatus() []models.MPartitionStatus

	// -----------------------------------------------------------------------------

	// RefreshPartition forces a recompute of one partition ("universe", "hot", "stable").
	RefreshPartition(ctx context.Context, name string) error

	// -----------------------------------------------------------------------------

	// ClearCache drops cached payloads and tracker history.
	ClearCache()

	// -----------------------------------------------------------------------------

	// PolicyName reports the active classification policy.
	PolicyName() string
}
