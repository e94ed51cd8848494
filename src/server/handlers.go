package server

import (
	"errors"
	"net/http"
	"strconv"

	"coin-observer/src/helpers"

	"github.com/gin-gonic/gin"
)

const maxLimit = 100

// -----------------------------------------------------------------------------

// parseLimit reads ?limit=; a missing value means the configured default.
func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, true
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) writeError(c *gin.Context, err error) {
	var fe *helpers.FetchError
	var ve *helpers.ValidationError
	switch {
	case helpers.IsInvalidSymbol(err), errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &fe) && fe.StatusCode == http.StatusNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &fe):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		s.Logger.Error("Request %s failed: %v", c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// -----------------------------------------------------------------------------
// Rankings
// -----------------------------------------------------------------------------

func (s *DashboardServer) getHot(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Provider.HotCoins(c.Request.Context(), limit))
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getStable(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Provider.StableCoins(c.Request.Context(), limit))
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getAll(c *gin.Context) {
	c.JSON(http.StatusOK, s.Provider.AllCoins())
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getCoin(c *gin.Context) {
	coin, err := s.Provider.Coin(c.Request.Context(), c.Param("symbol"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, coin)
}

// -----------------------------------------------------------------------------
// Live tracker
// -----------------------------------------------------------------------------

func (s *DashboardServer) getChanges(c *gin.Context) {
	c.JSON(http.StatusOK, s.Provider.LiveChanges())
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getChangesDebug(c *gin.Context) {
	symbols := s.Provider.TrackerDebug()
	c.JSON(http.StatusOK, gin.H{
		"symbols": symbols,
		"count":   len(symbols),
	})
}

// -----------------------------------------------------------------------------
// Cache
// -----------------------------------------------------------------------------

func (s *DashboardServer) getCache(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"partitions": s.Provider.CacheStatus()})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) clearCache(c *gin.Context) {
	s.Provider.ClearCache()
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) refreshPartition(c *gin.Context) {
	name := c.Param("partition")
	if err := s.Provider.RefreshPartition(c.Request.Context(), name); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "refreshed", "partition": name})
}

// -----------------------------------------------------------------------------
// Service info
// -----------------------------------------------------------------------------

func (s *DashboardServer) getConfig(c *gin.Context) {
	r := s.Config.Ranking
	c.JSON(http.StatusOK, gin.H{
		"policy":         s.Provider.PolicyName(),
		"quote_asset":    s.Config.DataSource.QuoteAsset,
		"default_limit":  r.DefaultLimit,
		"window_seconds": s.Config.Tracker.WindowSeconds,
		"ttl_minutes": gin.H{
			"universe": r.UniverseTTLMinutes,
			"hot":      r.HotTTLMinutes,
			"stable":   r.StableTTLMinutes,
		},
		"thresholds": s.Config.Classification,
	})
}

// -----------------------------------------------------------------------------

func (s *DashboardServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	timestamp := s.latestState.Timestamp
	s.stateMutex.RUnlock()

	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"policy":        s.Provider.PolicyName(),
		"connections":   s.connections.Load(),
		"latest_update": timestamp,
		"memory":        helpers.CurrentMemoryReport(),
	})
}
