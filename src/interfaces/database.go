package interfaces

import (
	"time"

	"coin-observer/src/models"
)

// -----------------------------------------------------------------------------
// IDatabase is a write-only journal of published rankings. Nothing is read
// back at startup.
// -----------------------------------------------------------------------------

type IDatabase interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// SaveRanking appends one published ranking.
	SaveRanking(cycleID, partition string, coins []*models.MCoinAnalytics, at time.Time) error

	// -----------------------------------------------------------------------------

	// CleanupOldData removes rows older than the retention policy.
	CleanupOldData() error

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
