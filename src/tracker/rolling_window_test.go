package tracker

import (
	"fmt"
	"sync"
	"testing"

	"coin-observer/src/logger"
	"coin-observer/src/models"
)

const t0 = int64(1_700_000_000_000)

func newTracker() *RollingWindowTracker {
	cfg := &models.MConfig{}
	cfg.Tracker.WindowSeconds = 300
	cfg.Tracker.MaxPoints = 100
	return NewRollingWindowTracker(cfg, logger.NewLogger(nil, "test"))
}

func TestGetChangeOverWindow(t *testing.T) {
	tr := newTracker()
	tr.AddPricePoint("BTCUSDT", 100, t0)
	tr.AddPricePoint("BTCUSDT", 106, t0+300_000)

	change, ok := tr.GetChange("BTCUSDT")
	if !ok {
		t.Fatal("expected a change")
	}
	if change != 6.0 {
		t.Errorf("change = %v, want 6.0", change)
	}
}

func TestGetChangeAbsentCases(t *testing.T) {
	tr := newTracker()
	if _, ok := tr.GetChange("ETHUSDT"); ok {
		t.Error("unknown symbol should have no change")
	}

	tr.AddPricePoint("ETHUSDT", 2000, t0)
	if _, ok := tr.GetChange("ETHUSDT"); ok {
		t.Error("single point should have no change")
	}

	tr.AddPricePoint("ZEROUSDT", 0, t0)
	tr.AddPricePoint("ZEROUSDT", 1, t0+300_000)
	if _, ok := tr.GetChange("ZEROUSDT"); ok {
		t.Error("zero base price should have no change")
	}
}

func TestOutOfOrderPointsAreMerged(t *testing.T) {
	tr := newTracker()
	tr.AddPricePoint("SOLUSDT", 106, t0+300_000)
	tr.AddPricePoint("SOLUSDT", 103, t0+150_000)
	tr.AddPricePoint("SOLUSDT", 100, t0)

	history := tr.GetHistory("SOLUSDT")
	if len(history) != 3 {
		t.Fatalf("history length = %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i-1].Timestamp > history[i].Timestamp {
			t.Fatalf("history not ascending: %+v", history)
		}
	}

	change, ok := tr.GetChange("SOLUSDT")
	if !ok || change != 6.0 {
		t.Errorf("change = %v (%v), want 6.0", change, ok)
	}
}

func TestBufferIsBoundedByCount(t *testing.T) {
	tr := newTracker()
	for i := 0; i < 150; i++ {
		tr.AddPricePoint("BNBUSDT", float64(300+i), t0+int64(i)*1000)
	}

	history := tr.GetHistory("BNBUSDT")
	if len(history) != 100 {
		t.Fatalf("len = %d, want 100", len(history))
	}
	if history[0].Timestamp != t0+50_000 {
		t.Errorf("oldest = %d, want the 51st point", history[0].Timestamp)
	}
}

func TestBufferIsBoundedByAge(t *testing.T) {
	tr := newTracker()
	tr.AddPricePoint("ADAUSDT", 1.0, t0)
	tr.AddPricePoint("ADAUSDT", 1.1, t0+200_000)
	tr.AddPricePoint("ADAUSDT", 1.2, t0+700_000)

	history := tr.GetHistory("ADAUSDT")
	if len(history) != 2 {
		t.Fatalf("len = %d, want 2 after pruning", len(history))
	}
	for _, p := range history {
		if p.Timestamp <= t0+700_000-600_000 {
			t.Errorf("point %d older than two windows survived", p.Timestamp)
		}
	}
}

func TestNearestTieGoesToEarliest(t *testing.T) {
	tr := newTracker()
	tr.AddPricePoint("XRPUSDT", 100, t0+299_000)
	tr.AddPricePoint("XRPUSDT", 200, t0+301_000)
	tr.AddPricePoint("XRPUSDT", 110, t0+600_000)

	change, ok := tr.GetChange("XRPUSDT")
	if !ok || change != 10.0 {
		t.Errorf("change = %v (%v), want 10.0 from the earlier base", change, ok)
	}
}

func TestGetAllChangesOmitsAbsent(t *testing.T) {
	tr := newTracker()
	tr.AddPricePoint("BTCUSDT", 100, t0)
	tr.AddPricePoint("BTCUSDT", 95, t0+300_000)
	tr.AddPricePoint("ETHUSDT", 2000, t0)

	all := tr.GetAllChanges()
	if len(all) != 1 {
		t.Fatalf("changes = %v", all)
	}
	if all["BTCUSDT"] != -5.0 {
		t.Errorf("BTCUSDT = %v, want -5", all["BTCUSDT"])
	}
}

func TestSymbolsAreNormalized(t *testing.T) {
	tr := newTracker()
	tr.AddPricePoint(" btcusdt", 100, t0)
	tr.AddPricePoint("BTCUSDT", 101, t0+300_000)

	if tr.SymbolCount() != 1 {
		t.Fatalf("symbols = %d, want 1", tr.SymbolCount())
	}
	if change, ok := tr.GetChange("btcUSDT"); !ok || change != 1.0 {
		t.Errorf("change = %v (%v)", change, ok)
	}
}

func TestClearSymbolAndAll(t *testing.T) {
	tr := newTracker()
	tr.AddPricePoint("BTCUSDT", 100, t0)
	tr.AddPricePoint("ETHUSDT", 100, t0)

	tr.ClearSymbol("BTCUSDT")
	if tr.SymbolCount() != 1 || tr.GetHistory("BTCUSDT") != nil {
		t.Errorf("ClearSymbol left BTCUSDT behind")
	}

	tr.ClearAll()
	if tr.SymbolCount() != 0 {
		t.Errorf("ClearAll left %d symbols", tr.SymbolCount())
	}
}

func TestAddPriceUsesClock(t *testing.T) {
	tr := newTracker()
	now := t0
	tr.SetClock(func() int64 { return now })

	tr.AddPrice("DOGEUSDT", 0.1)
	now += 300_000
	tr.AddPrice("DOGEUSDT", 0.12)

	info := tr.DebugInfo()
	if len(info) != 1 {
		t.Fatalf("debug entries = %d", len(info))
	}
	d := info[0]
	if d.DataPoints != 2 || d.Oldest != t0 || d.Newest != t0+300_000 || d.LastUpdate != now {
		t.Errorf("debug = %+v", d)
	}
	if d.Change == nil || *d.Change != 20.0 {
		t.Errorf("debug change = %v", d.Change)
	}
}

func TestConcurrentWriters(t *testing.T) {
	tr := newTracker()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			symbol := fmt.Sprintf("C%dUSDT", g%4)
			for i := 0; i < 200; i++ {
				tr.AddPricePoint(symbol, float64(100+i), t0+int64(i)*1000)
				tr.GetAllChanges()
			}
		}(g)
	}
	wg.Wait()

	if tr.SymbolCount() != 4 {
		t.Errorf("symbols = %d, want 4", tr.SymbolCount())
	}
	for _, d := range tr.DebugInfo() {
		if d.DataPoints > 100 {
			t.Errorf("%s holds %d points", d.Symbol, d.DataPoints)
		}
	}
}
