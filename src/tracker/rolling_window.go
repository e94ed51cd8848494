package tracker

import (
	"math"
	"sort"
	"sync"
	"time"

	"coin-observer/src/analysis/core"
	"coin-observer/src/helpers"
	"coin-observer/src/logger"
	"coin-observer/src/models"
	"coin-observer/src/utils"
)

// Clock returns the current time in Unix milliseconds.
type Clock func() int64

// -----------------------------------------------------------------------------

type symbolHistory struct {
	mu         sync.Mutex
	buffer     *utils.PriceBuffer
	lastUpdate int64
}

// -----------------------------------------------------------------------------
// RollingWindowTracker keeps a short bounded price history per symbol and
// reports the percentage change over a fixed window. The reference "now" of a
// symbol is the timestamp of its newest point, so results do not depend on
// when they are read.
// -----------------------------------------------------------------------------

type RollingWindowTracker struct {
	Window    time.Duration
	MaxPoints int
	Logger    *logger.Logger

	clock     Clock
	histories map[string]*symbolHistory
	mu        sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewRollingWindowTracker(cfg *models.MConfig, log *logger.Logger) *RollingWindowTracker {
	window := time.Duration(utils.DefaultWindowSeconds) * time.Second
	maxPoints := utils.DefaultMaxPoints
	if cfg != nil {
		if cfg.Tracker.WindowSeconds > 0 {
			window = time.Duration(cfg.Tracker.WindowSeconds) * time.Second
		}
		if cfg.Tracker.MaxPoints > 0 {
			maxPoints = cfg.Tracker.MaxPoints
		}
	}
	if log == nil {
		log = logger.NewLogger(cfg, "RollingWindowTracker")
	}

	return &RollingWindowTracker{
		Window:    window,
		MaxPoints: maxPoints,
		Logger:    log,
		clock:     utils.NowMillis,
		histories: make(map[string]*symbolHistory),
	}
}

// -----------------------------------------------------------------------------

// SetClock replaces the wall clock used by AddPrice and for LastUpdate.
func (t *RollingWindowTracker) SetClock(clock Clock) {
	t.mu.Lock()
	t.clock = clock
	t.mu.Unlock()
}

// -----------------------------------------------------------------------------

func (t *RollingWindowTracker) now() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.clock()
}

// -----------------------------------------------------------------------------

// AddPrice records price at the current clock time.
func (t *RollingWindowTracker) AddPrice(symbol string, price float64) {
	t.AddPricePoint(symbol, price, t.now())
}

// -----------------------------------------------------------------------------

// AddPricePoint records a price observed at timestamp (ms). Late points are
// merged in order. Non-finite and negative prices are ignored.
func (t *RollingWindowTracker) AddPricePoint(symbol string, price float64, timestamp int64) {
	symbol = helpers.NormalizeSymbol(symbol)
	if symbol == "" || math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		t.Logger.Debug("Ignoring price point %q %v", symbol, price)
		return
	}

	h := t.history(symbol, true)
	cutoffSpan := int64(utils.RetentionFactor) * t.Window.Milliseconds()
	now := t.now()

	h.mu.Lock()
	defer h.mu.Unlock()

	h.buffer.Insert(models.MPricePoint{Price: price, Timestamp: timestamp})
	if latest, ok := h.buffer.Latest(); ok {
		h.buffer.PruneUpTo(latest.Timestamp - cutoffSpan)
	}
	h.lastUpdate = now
}

// -----------------------------------------------------------------------------

func (t *RollingWindowTracker) history(symbol string, create bool) *symbolHistory {
	t.mu.RLock()
	h, ok := t.histories[symbol]
	t.mu.RUnlock()
	if ok || !create {
		return h
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if h, ok = t.histories[symbol]; ok {
		return h
	}
	h = &symbolHistory{buffer: utils.NewPriceBuffer(t.MaxPoints)}
	t.histories[symbol] = h
	return h
}

// -----------------------------------------------------------------------------

// GetChange returns the percentage change between the newest point and the
// point nearest to one window before it, rounded to 2 decimals. ok is false
// with fewer than 2 points or a zero base price.
func (t *RollingWindowTracker) GetChange(symbol string) (float64, bool) {
	h := t.history(helpers.NormalizeSymbol(symbol), false)
	if h == nil {
		return 0, false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return changeOf(h.buffer, t.Window.Milliseconds())
}

// -----------------------------------------------------------------------------

func changeOf(buffer *utils.PriceBuffer, windowMs int64) (float64, bool) {
	if buffer.Size() < 2 {
		return 0, false
	}

	current, _ := buffer.Latest()
	base, _ := buffer.Nearest(current.Timestamp - windowMs)
	if base.Price == 0 {
		return 0, false
	}

	return core.Round2(core.CalculatePercentChange(current.Price, base.Price)), true
}

// -----------------------------------------------------------------------------

// GetAllChanges returns the change of every symbol that has one.
func (t *RollingWindowTracker) GetAllChanges() map[string]float64 {
	snapshot := t.snapshot()
	windowMs := t.Window.Milliseconds()

	result := make(map[string]float64, len(snapshot))
	for symbol, h := range snapshot {
		h.mu.Lock()
		change, ok := changeOf(h.buffer, windowMs)
		h.mu.Unlock()
		if ok {
			result[symbol] = change
		}
	}
	return result
}

// -----------------------------------------------------------------------------

func (t *RollingWindowTracker) snapshot() map[string]*symbolHistory {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]*symbolHistory, len(t.histories))
	for symbol, h := range t.histories {
		out[symbol] = h
	}
	return out
}

// -----------------------------------------------------------------------------

// GetHistory returns a copy of the stored points of symbol, oldest first.
func (t *RollingWindowTracker) GetHistory(symbol string) []models.MPricePoint {
	h := t.history(helpers.NormalizeSymbol(symbol), false)
	if h == nil {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.buffer.GetAll()
}

// -----------------------------------------------------------------------------

// ClearSymbol forgets one symbol
func (t *RollingWindowTracker) ClearSymbol(symbol string) {
	t.mu.Lock()
	delete(t.histories, helpers.NormalizeSymbol(symbol))
	t.mu.Unlock()
}

// -----------------------------------------------------------------------------

// ClearAll forgets every symbol
func (t *RollingWindowTracker) ClearAll() {
	t.mu.Lock()
	t.histories = make(map[string]*symbolHistory)
	t.mu.Unlock()
	t.Logger.Info("Cleared all price history")
}

// -----------------------------------------------------------------------------

// SymbolCount returns number of symbols with data
func (t *RollingWindowTracker) SymbolCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.histories)
}

// -----------------------------------------------------------------------------

// DebugInfo describes every tracked symbol, sorted by symbol.
func (t *RollingWindowTracker) DebugInfo() []models.MSymbolDebug {
	snapshot := t.snapshot()
	windowMs := t.Window.Milliseconds()

	out := make([]models.MSymbolDebug, 0, len(snapshot))
	for symbol, h := range snapshot {
		h.mu.Lock()
		info := models.MSymbolDebug{
			Symbol:     symbol,
			DataPoints: h.buffer.Size(),
			LastUpdate: h.lastUpdate,
		}
		if p, ok := h.buffer.Oldest(); ok {
			info.Oldest = p.Timestamp
		}
		if p, ok := h.buffer.Latest(); ok {
			info.Newest = p.Timestamp
		}
		if change, ok := changeOf(h.buffer, windowMs); ok {
			info.Change = &change
		}
		h.mu.Unlock()
		out = append(out, info)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
