package interfaces

import "coin-observer/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger defines the interface for pushing rankings to external
// listeners (dashboard server).
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Broadcast stores the update as latest state and pushes it to listeners.
	Broadcast(update *models.MLatestData)

	// -----------------------------------------------------------------------------
	// UpdateAllDatas merges the update into the internal state without pushing.
	UpdateAllDatas(update *models.MLatestData)

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}
