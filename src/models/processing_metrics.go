package models

// MProcessingMetrics represents the performance metrics of one ranking refresh.
type MProcessingMetrics struct {
	Partition          string  `json:"partition"`
	RefreshTimeSeconds float64 `json:"refresh_time_seconds"`
	CandidateSymbols   int     `json:"candidate_symbols"`
	ClassifiedSymbols  int     `json:"classified_symbols"`
	FailedSymbols      int     `json:"failed_symbols"`
	Ranked             int     `json:"ranked"`
}
