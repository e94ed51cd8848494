package cache

import (
	"context"
	"time"

	"coin-observer/src/helpers"
	"coin-observer/src/logger"
	"coin-observer/src/models"
)

// Partition names, also used by the control API.
const (
	PartitionUniverse = "universe"
	PartitionHot      = "hot"
	PartitionStable   = "stable"
)

// -----------------------------------------------------------------------------
// AnalyticsCache bundles the three ranking partitions with the per-symbol
// snapshot store.
// -----------------------------------------------------------------------------

type AnalyticsCache struct {
	Universe  *Partition[string]
	Hot       *Partition[*models.MCoinAnalytics]
	Stable    *Partition[*models.MCoinAnalytics]
	Snapshots *SnapshotStore
	Logger    *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAnalyticsCache(cfg *models.MConfig, log *logger.Logger) *AnalyticsCache {
	if log == nil {
		log = logger.NewLogger(cfg, "AnalyticsCache")
	}

	universeTTL := 24 * time.Hour
	hotTTL := 5 * time.Minute
	stableTTL := 15 * time.Minute
	if cfg != nil {
		universeTTL = minutesOr(cfg.Ranking.UniverseTTLMinutes, universeTTL)
		hotTTL = minutesOr(cfg.Ranking.HotTTLMinutes, hotTTL)
		stableTTL = minutesOr(cfg.Ranking.StableTTLMinutes, stableTTL)
	}

	c := &AnalyticsCache{
		Universe:  NewPartition[string](PartitionUniverse, universeTTL, log),
		Hot:       NewPartition[*models.MCoinAnalytics](PartitionHot, hotTTL, log),
		Stable:    NewPartition[*models.MCoinAnalytics](PartitionStable, stableTTL, log),
		Snapshots: NewSnapshotStore(helpers.GetRecommendedMemoryLimit(), (2 * stableTTL).Milliseconds(), log),
		Logger:    log,
	}
	if cfg != nil && cfg.Ranking.ServeEmptyLists {
		c.Hot.ServeEmpty = true
		c.Stable.ServeEmpty = true
	}
	return c
}

func minutesOr(minutes int, fallback time.Duration) time.Duration {
	if minutes <= 0 {
		return fallback
	}
	return time.Duration(minutes) * time.Minute
}

// -----------------------------------------------------------------------------

// SetClock sets the clock of every partition.
func (c *AnalyticsCache) SetClock(clock Clock) {
	c.Universe.SetClock(clock)
	c.Hot.SetClock(clock)
	c.Stable.SetClock(clock)
}

// -----------------------------------------------------------------------------

// SetLifetime bounds the recomputes of every partition by ctx.
func (c *AnalyticsCache) SetLifetime(ctx context.Context) {
	c.Universe.SetLifetime(ctx)
	c.Hot.SetLifetime(ctx)
	c.Stable.SetLifetime(ctx)
}

// -----------------------------------------------------------------------------

// Status lists the state of each partition.
func (c *AnalyticsCache) Status() []models.MPartitionStatus {
	return []models.MPartitionStatus{
		c.Universe.Status(),
		c.Hot.Status(),
		c.Stable.Status(),
	}
}

// -----------------------------------------------------------------------------

// Clear empties the ranking partitions and the snapshots. The universe is
// kept.
func (c *AnalyticsCache) Clear() {
	c.Hot.Invalidate()
	c.Stable.Invalidate()
	c.Snapshots.Cleanup()
	c.Logger.Info("Analytics cache cleared")
}
