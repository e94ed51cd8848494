package models

// -----------------------------------------------------------------------------
// Server State Structure
// -----------------------------------------------------------------------------

type MLatestData struct {
	Type              string             `json:"type"` // "INITIAL" or "UPDATE"
	CycleID           string             `json:"cycle_id"`
	Hot               []*MCoinAnalytics  `json:"hot"`
	Stable            []*MCoinAnalytics  `json:"stable"`
	Timestamp         int64              `json:"timestamp"`
	ProcessingMetrics MProcessingMetrics `json:"processing_metrics"`
}

// -----------------------------------------------------------------------------
// SubscribeCommand for client messages
// -----------------------------------------------------------------------------

type MSubscribeCommand struct {
	Command string   `json:"command"`
	Lists   []string `json:"lists"` // "hot", "stable"; empty means both
	Limit   int      `json:"limit"`
}

// -----------------------------------------------------------------------------
// Cache partition state exposed for debugging
// -----------------------------------------------------------------------------

type MPartitionStatus struct {
	Name        string `json:"name"`
	Size        int    `json:"size"`
	LastRefresh int64  `json:"last_refresh"`
	AgeSeconds  int64  `json:"age_seconds"`
	TTLSeconds  int64  `json:"ttl_seconds"`
	Stale       bool   `json:"stale"`
	LastError   string `json:"last_error,omitempty"`
}
