package helpers

import (
	"runtime"
)

const mb = 1024 * 1024

// MemoryReport is served by the health endpoint.
type MemoryReport struct {
	SystemTotalMB int     `json:"system_total_mb"`
	RecommendedMB int     `json:"recommended_limit_mb"`
	HeapAllocMB   float64 `json:"heap_alloc_mb"`
	Goroutines    int     `json:"goroutines"`
	NumGC         uint32  `json:"num_gc"`
}

// GetTotalSystemMemoryMB returns the physical memory in MB, or 0 when unknown.
func GetTotalSystemMemoryMB() int {
	return int(totalSystemMemoryBytes() / mb)
}

// GetRecommendedMemoryLimit returns 75% of physical memory in MB with a
// 512MB floor, or 512 when memory cannot be determined.
func GetRecommendedMemoryLimit() int {
	totalMB := GetTotalSystemMemoryMB()
	if totalMB == 0 {
		return 512
	}

	limit := int(float64(totalMB) * 0.75)
	if limit < 512 {
		if totalMB < 512 {
			return totalMB
		}
		return 512
	}
	return limit
}

// CurrentMemoryReport samples the runtime.
func CurrentMemoryReport() MemoryReport {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return MemoryReport{
		SystemTotalMB: GetTotalSystemMemoryMB(),
		RecommendedMB: GetRecommendedMemoryLimit(),
		HeapAllocMB:   float64(m.HeapAlloc) / mb,
		Goroutines:    runtime.NumGoroutine(),
		NumGC:         m.NumGC,
	}
}
