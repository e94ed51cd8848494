package cache

import (
	"runtime"
	"runtime/debug"
	"sort"
	"sync"

	"coin-observer/src/helpers"
	"coin-observer/src/logger"
	"coin-observer/src/models"
)

const memoryCheckEvery = 100

// -----------------------------------------------------------------------------
// SnapshotStore keeps the newest analytics record of every symbol that went
// through a ranking pass. Records are replaced, never edited.
// -----------------------------------------------------------------------------

type SnapshotStore struct {
	Coins       map[string]*models.MCoinAnalytics
	MaxMemoryMB int
	MaxAgeMs    int64
	Logger      *logger.Logger

	puts int
	mu   sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewSnapshotStore(maxMemoryMB int, maxAgeMs int64, log *logger.Logger) *SnapshotStore {
	if log == nil {
		log = logger.NewLogger(nil, "SnapshotStore")
	}
	return &SnapshotStore{
		Coins:       make(map[string]*models.MCoinAnalytics),
		MaxMemoryMB: maxMemoryMB,
		MaxAgeMs:    maxAgeMs,
		Logger:      log,
	}
}

// -----------------------------------------------------------------------------

// Put stores the given records, replacing older ones of the same symbol.
func (s *SnapshotStore) Put(coins ...*models.MCoinAnalytics) {
	s.mu.Lock()
	for _, c := range coins {
		if c == nil {
			continue
		}
		s.Coins[helpers.NormalizeSymbol(c.Symbol)] = c
	}
	s.puts += len(coins)
	check := s.puts >= memoryCheckEvery
	if check {
		s.puts = 0
	}
	s.mu.Unlock()

	if check {
		s.CheckMemoryLimits()
	}
}

// -----------------------------------------------------------------------------

// Get returns the record of symbol.
func (s *SnapshotStore) Get(symbol string) (*models.MCoinAnalytics, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.Coins[helpers.NormalizeSymbol(symbol)]
	return c, ok
}

// -----------------------------------------------------------------------------

// All returns every record sorted by symbol.
func (s *SnapshotStore) All() []*models.MCoinAnalytics {
	s.mu.RLock()
	out := make([]*models.MCoinAnalytics, 0, len(s.Coins))
	for _, c := range s.Coins {
		out = append(out, c)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// -----------------------------------------------------------------------------

// EvictOlderThan drops records last updated before cutoff (ms).
func (s *SnapshotStore) EvictOlderThan(cutoff int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for symbol, c := range s.Coins {
		if c.LastUpdate < cutoff {
			delete(s.Coins, symbol)
			removed++
		}
	}
	return removed
}

// -----------------------------------------------------------------------------

// CheckMemoryLimits evicts stale records when the heap grows past the limit.
func (s *SnapshotStore) CheckMemoryLimits() {
	if s.MaxMemoryMB <= 0 {
		return
	}
	currentMemory := s.GetProcessMemoryMB()
	if currentMemory <= float64(s.MaxMemoryMB) {
		return
	}

	s.Logger.Warning("Memory usage %.1fMB exceeds limit %dMB. Cleaning up.",
		currentMemory, s.MaxMemoryMB)

	newest := int64(0)
	s.mu.RLock()
	for _, c := range s.Coins {
		if c.LastUpdate > newest {
			newest = c.LastUpdate
		}
	}
	s.mu.RUnlock()

	removed := s.EvictOlderThan(newest - s.MaxAgeMs)
	s.Logger.Info("Evicted %d stale snapshots", removed)

	runtime.GC()
	debug.FreeOSMemory()
}

// -----------------------------------------------------------------------------

// GetProcessMemoryMB returns the live heap in MB.
func (s *SnapshotStore) GetProcessMemoryMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.HeapAlloc) / 1024 / 1024
}

// -----------------------------------------------------------------------------

// Cleanup clears all records.
func (s *SnapshotStore) Cleanup() {
	s.mu.Lock()
	s.Coins = make(map[string]*models.MCoinAnalytics)
	s.puts = 0
	s.mu.Unlock()
}

// -----------------------------------------------------------------------------

// HasSymbol checks if symbol exists
func (s *SnapshotStore) HasSymbol(symbol string) bool {
	_, ok := s.Get(symbol)
	return ok
}

// -----------------------------------------------------------------------------

// SymbolCount returns number of symbols with data
func (s *SnapshotStore) SymbolCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.Coins)
}
