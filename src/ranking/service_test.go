package ranking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"coin-observer/src/cache"
	"coin-observer/src/config"
	"coin-observer/src/helpers"
	"coin-observer/src/logger"
	"coin-observer/src/models"
)

type fakeMarket struct {
	mu          sync.Mutex
	universe    []string
	universeErr error
	tickers     []models.MTicker24h
	tickerErr   error
	candles5m   map[string][]models.MCandle
	daily       map[string][]models.MCandle
	failing     map[string]bool
	gates       map[string]chan struct{}

	universeCalls int
	tickerCalls   int
}

func (f *fakeMarket) Name() string { return "fake" }

func (f *fakeMarket) FetchUniverse(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.universeCalls++
	if f.universeErr != nil {
		return nil, f.universeErr
	}
	return append([]string(nil), f.universe...), nil
}

func (f *fakeMarket) FetchTicker24h(ctx context.Context, symbols []string) ([]models.MTicker24h, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickerCalls++
	if f.tickerErr != nil {
		return nil, f.tickerErr
	}
	if len(symbols) == 0 {
		return f.tickers, nil
	}
	var out []models.MTicker24h
	for _, t := range f.tickers {
		for _, s := range symbols {
			if t.Symbol == s {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (f *fakeMarket) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]models.MCandle, error) {
	f.mu.Lock()
	gate := f.gates[symbol]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing[symbol] {
		return nil, helpers.NewFetchError("klines", symbol, 500, errors.New("boom"))
	}
	switch interval {
	case models.Interval5m:
		return f.candles5m[symbol], nil
	case models.Interval1d:
		return f.daily[symbol], nil
	}
	return nil, nil
}

type fakeExchanger struct {
	mu      sync.Mutex
	updates []*models.MLatestData
}

func (f *fakeExchanger) Broadcast(update *models.MLatestData) {
	f.mu.Lock()
	f.updates = append(f.updates, update)
	f.mu.Unlock()
}
func (f *fakeExchanger) UpdateAllDatas(update *models.MLatestData) {}
func (f *fakeExchanger) Start() error                              { return nil }
func (f *fakeExchanger) Stop() error                               { return nil }

type fakeJournal struct {
	mu    sync.Mutex
	saved map[string]int
	err   error
}

func (f *fakeJournal) Initialize() error { return nil }
func (f *fakeJournal) SaveRanking(cycleID, partition string, coins []*models.MCoinAnalytics, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.saved == nil {
		f.saved = make(map[string]int)
	}
	f.saved[partition] += len(coins)
	return nil
}
func (f *fakeJournal) CleanupOldData() error { return nil }
func (f *fakeJournal) Close() error          { return nil }

type fakeSink struct {
	symbols []string
}

func (f *fakeSink) UpdateSymbols(symbols []string) error {
	f.symbols = symbols
	return nil
}

// fiveMinute builds 5m candles whose last two closes give the wanted change.
func fiveMinute(prev, last float64) []models.MCandle {
	closes := []float64{prev, prev, prev, prev, prev, prev, prev, prev, prev, prev, prev, last}
	out := make([]models.MCandle, len(closes))
	for i, c := range closes {
		out[i] = models.MCandle{
			OpenTime:    int64(i) * 300_000,
			CloseTime:   int64(i+1)*300_000 - 1,
			Open:        c,
			High:        c,
			Low:         c,
			Close:       c,
			QuoteVolume: 1000,
		}
	}
	return out
}

func daily(open float64, closes ...float64) []models.MCandle {
	out := make([]models.MCandle, len(closes))
	prev := open
	for i, c := range closes {
		out[i] = models.MCandle{OpenTime: int64(i) * 86_400_000, Open: prev, High: c, Low: prev, Close: c}
		prev = c
	}
	return out
}

func newService(t *testing.T, policy string, market *fakeMarket) (*Service, *int) {
	t.Helper()
	cfg := config.Default().MConfig
	cfg.Ranking.Policy = policy

	svc, err := NewService(cfg, market, nil, logger.NewLogger(nil, "test"))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	sleeps := 0
	svc.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps++
		return ctx.Err()
	}
	return svc, &sleeps
}

func symbols(coins []*models.MCoinAnalytics) []string {
	out := make([]string, len(coins))
	for i, c := range coins {
		out[i] = c.Symbol
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func hotMarket() *fakeMarket {
	return &fakeMarket{
		universe: []string{"AAAUSDT", "BBBUSDT", "CCCUSDT", "DDDUSDT"},
		tickers: []models.MTicker24h{
			{Symbol: "AAAUSDT", LastPrice: 101, PriceChangePercent: 1, QuoteVolume: 500_000},
			{Symbol: "BBBUSDT", LastPrice: 103, PriceChangePercent: 1, QuoteVolume: 400_000},
			{Symbol: "CCCUSDT", LastPrice: 100.5, PriceChangePercent: 1, QuoteVolume: 300_000},
			{Symbol: "DDDUSDT", LastPrice: 110, PriceChangePercent: 1, QuoteVolume: 50_000},
			{Symbol: "EEEUSDT", LastPrice: 110, PriceChangePercent: 1, QuoteVolume: 900_000},
		},
		candles5m: map[string][]models.MCandle{
			"AAAUSDT": fiveMinute(100, 101),
			"BBBUSDT": fiveMinute(100, 103),
			"CCCUSDT": fiveMinute(100, 100.5),
			"DDDUSDT": fiveMinute(100, 110),
			"EEEUSDT": fiveMinute(100, 110),
		},
	}
}

func TestHotCoinsFiltersAndSorts(t *testing.T) {
	market := hotMarket()
	svc, _ := newService(t, "relaxed", market)

	got := symbols(svc.HotCoins(context.Background(), 10))
	// DDD is under the volume floor, EEE is not in the universe, CCC is not hot
	want := []string{"BBBUSDT", "AAAUSDT"}
	if !equal(got, want) {
		t.Fatalf("hot = %v, want %v", got, want)
	}

	if got := symbols(svc.HotCoins(context.Background(), 1)); !equal(got, []string{"BBBUSDT"}) {
		t.Errorf("hot limit 1 = %v", got)
	}
	if market.tickerCalls != 1 {
		t.Errorf("ticker calls = %d, want 1 (second read served from cache)", market.tickerCalls)
	}
	if all := svc.AllCoins(); len(all) != 3 {
		t.Errorf("snapshots = %d, want 3 analyzed symbols", len(all))
	}
}

func TestHotCoinsPreferLiveChange(t *testing.T) {
	market := hotMarket()
	svc, _ := newService(t, "relaxed", market)

	// live +5% on CCC beats its candle change of 0.5%
	svc.Tracker.AddPricePoint("CCCUSDT", 100, 1_000_000)
	svc.Tracker.AddPricePoint("CCCUSDT", 105, 1_300_000)

	hot := svc.HotCoins(context.Background(), 10)
	if len(hot) != 3 || hot[0].Symbol != "CCCUSDT" {
		t.Fatalf("hot = %v, want CCCUSDT first", symbols(hot))
	}
	if hot[0].LiveChange5m == nil || *hot[0].LiveChange5m != 5 {
		t.Errorf("live change = %v, want 5", hot[0].LiveChange5m)
	}
	if hot[1].LiveChange5m != nil {
		t.Errorf("%s has live change without ticks", hot[1].Symbol)
	}
}

func TestHotCoinsSkipFailedSymbols(t *testing.T) {
	market := hotMarket()
	market.failing = map[string]bool{"BBBUSDT": true}
	svc, _ := newService(t, "relaxed", market)
	exchanger := &fakeExchanger{}
	svc.Exchanger = exchanger

	got := symbols(svc.HotCoins(context.Background(), 10))
	if !equal(got, []string{"AAAUSDT"}) {
		t.Fatalf("hot = %v, want [AAAUSDT]", got)
	}

	if len(exchanger.updates) != 1 {
		t.Fatalf("broadcasts = %d, want 1", len(exchanger.updates))
	}
	m := exchanger.updates[0].ProcessingMetrics
	if m.Partition != cache.PartitionHot || m.CandidateSymbols != 3 || m.FailedSymbols != 1 || m.Ranked != 1 {
		t.Errorf("metrics = %+v", m)
	}
	if exchanger.updates[0].CycleID == "" {
		t.Error("broadcast has no cycle id")
	}
}

func TestHotCoinsKeepLastGoodOnTickerFailure(t *testing.T) {
	market := hotMarket()
	svc, _ := newService(t, "relaxed", market)
	ctx := context.Background()

	if got := svc.HotCoins(ctx, 10); len(got) != 2 {
		t.Fatalf("warm hot = %d, want 2", len(got))
	}

	market.tickerErr = helpers.NewFetchError("ticker", "", 503, errors.New("unavailable"))
	if err := svc.RefreshPartition(ctx, cache.PartitionHot); err == nil {
		t.Fatal("expected refresh error")
	}
	if got := svc.HotCoins(ctx, 10); len(got) != 2 {
		t.Errorf("hot after failure = %d, want last good 2", len(got))
	}
}

func TestAnalyzeAllPausesBetweenBatches(t *testing.T) {
	market := &fakeMarket{candles5m: map[string][]models.MCandle{}}
	for _, s := range []string{"AUSDT", "BUSDT", "CUSDT", "DUSDT", "EUSDT", "FUSDT", "GUSDT"} {
		market.universe = append(market.universe, s)
		market.tickers = append(market.tickers, models.MTicker24h{Symbol: s, LastPrice: 1, QuoteVolume: 200_000})
		market.candles5m[s] = fiveMinute(1, 1.02)
	}
	svc, sleeps := newService(t, "relaxed", market)

	hot := svc.HotCoins(context.Background(), 10)
	if len(hot) != 7 {
		t.Fatalf("hot = %d, want 7", len(hot))
	}
	// 7 symbols in batches of 5
	if *sleeps != 1 {
		t.Errorf("pauses = %d, want 1", *sleeps)
	}
}

func TestStableCoinsStrict(t *testing.T) {
	market := &fakeMarket{
		universe: []string{"AAAUSDT", "BBBUSDT", "CCCUSDT", "DDDUSDT"},
		tickers: []models.MTicker24h{
			{Symbol: "AAAUSDT", LastPrice: 114, PriceChangePercent: 2, QuoteVolume: 100_000},
			{Symbol: "BBBUSDT", LastPrice: 114, PriceChangePercent: 4, QuoteVolume: 100_000},
			{Symbol: "CCCUSDT", LastPrice: 130, PriceChangePercent: 5, QuoteVolume: 100_000},
			{Symbol: "DDDUSDT", LastPrice: 114, PriceChangePercent: -1, QuoteVolume: 100_000},
		},
		candles5m: map[string][]models.MCandle{},
		daily: map[string][]models.MCandle{
			"AAAUSDT": daily(100, 102, 104, 106, 108, 110, 112, 114),
			"BBBUSDT": daily(100, 102, 104, 106, 108, 110, 112, 114),
			"CCCUSDT": daily(100, 101, 102, 103, 104, 105, 106, 130),
			"DDDUSDT": daily(100, 102, 104, 106, 108, 110, 112, 114),
		},
	}
	svc, _ := newService(t, "strict", market)
	journal := &fakeJournal{}
	svc.Journal = journal

	got := symbols(svc.StableCoins(context.Background(), 10))
	// CCC jumps more than 15% in a day, DDD is down on the day
	want := []string{"BBBUSDT", "AAAUSDT"}
	if !equal(got, want) {
		t.Fatalf("stable = %v, want %v", got, want)
	}
	if journal.saved[cache.PartitionStable] != 2 {
		t.Errorf("journaled = %v", journal.saved)
	}
}

func TestUniverseFallback(t *testing.T) {
	market := &fakeMarket{universeErr: errors.New("down")}
	svc, _ := newService(t, "strict", market)
	sink := &fakeSink{}
	svc.Symbols = sink
	ctx := context.Background()

	got := svc.Universe(ctx)
	if !equal(got, svc.Config.DataSource.FallbackSymbols) {
		t.Fatalf("universe = %v, want fallback", got)
	}

	market.universeErr = nil
	market.universe = []string{"AAAUSDT", "BBBUSDT"}
	if err := svc.RefreshPartition(ctx, cache.PartitionUniverse); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !equal(sink.symbols, market.universe) {
		t.Errorf("sink symbols = %v", sink.symbols)
	}

	market.universeErr = errors.New("down again")
	if err := svc.RefreshPartition(ctx, cache.PartitionUniverse); err == nil {
		t.Fatal("expected refresh error")
	}
	if got := svc.Universe(ctx); !equal(got, []string{"AAAUSDT", "BBBUSDT"}) {
		t.Errorf("universe = %v, want last good", got)
	}
}

func TestRefreshPartitionRejectsUnknownName(t *testing.T) {
	svc, _ := newService(t, "strict", hotMarket())
	err := svc.RefreshPartition(context.Background(), "weekly")
	var ve *helpers.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestCoinOnDemand(t *testing.T) {
	market := hotMarket()
	svc, _ := newService(t, "relaxed", market)
	ctx := context.Background()

	coin, err := svc.Coin(ctx, "bbbusdt")
	if err != nil {
		t.Fatalf("Coin: %v", err)
	}
	if coin.Symbol != "BBBUSDT" || coin.Name != "BBB" || !coin.IsHot {
		t.Errorf("coin = %+v", coin)
	}

	calls := market.tickerCalls
	if _, err := svc.Coin(ctx, "BBBUSDT"); err != nil {
		t.Fatalf("Coin again: %v", err)
	}
	if market.tickerCalls != calls {
		t.Error("fresh snapshot was refetched")
	}

	if _, err := svc.Coin(ctx, "BTC-USD"); !helpers.IsInvalidSymbol(err) {
		t.Errorf("err = %v, want invalid symbol", err)
	}
	if _, err := svc.Coin(ctx, "ZZZUSDT"); !helpers.IsFetchError(err) {
		t.Errorf("err = %v, want fetch error for unlisted symbol", err)
	}
}

func TestClearCacheKeepsUniverse(t *testing.T) {
	market := hotMarket()
	svc, _ := newService(t, "relaxed", market)
	ctx := context.Background()
	svc.Tracker.AddPricePoint("AAAUSDT", 1, 1)

	svc.HotCoins(ctx, 10)
	svc.ClearCache()

	if n := len(svc.Cache.Hot.Peek()); n != 0 {
		t.Errorf("hot after clear = %d", n)
	}
	if n := len(svc.AllCoins()); n != 0 {
		t.Errorf("snapshots after clear = %d", n)
	}
	if n := svc.Tracker.SymbolCount(); n != 0 {
		t.Errorf("tracked symbols after clear = %d", n)
	}
	if n := len(svc.Cache.Universe.Peek()); n != 4 {
		t.Errorf("universe after clear = %d, want 4", n)
	}
}

func TestSortHotTieBreak(t *testing.T) {
	change := func(v float64) *float64 { return &v }
	a := &models.MCoinAnalytics{Symbol: "A", LiveChange5m: change(2.0), ScoreMomentum: 1}
	b := &models.MCoinAnalytics{Symbol: "B", LiveChange5m: change(2.05), ScoreMomentum: 5}
	c := &models.MCoinAnalytics{Symbol: "C", LiveChange5m: change(3.0), ScoreMomentum: 0}

	coins := []*models.MCoinAnalytics{a, b, c}
	SortHot(coins, 0.1)
	if got := symbols(coins); !equal(got, []string{"C", "B", "A"}) {
		t.Errorf("order = %v", got)
	}

	a.ScoreMomentum = 9
	coins = []*models.MCoinAnalytics{b, a}
	SortHot(coins, 0.1)
	if got := symbols(coins); !equal(got, []string{"A", "B"}) {
		t.Errorf("tie order = %v, want momentum to decide", got)
	}
}

func TestStartAndShutdown(t *testing.T) {
	market := hotMarket()
	svc, _ := newService(t, "relaxed", market)

	ticks := make(chan models.MTick, 4)
	if err := svc.Start(context.Background(), ticks); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := svc.Start(context.Background(), ticks); err == nil {
		t.Error("second Start should fail")
	}

	ticks <- models.MTick{Symbol: "AAAUSDT", Price: 100, Timestamp: 1_000}
	deadline := time.Now().Add(2 * time.Second)
	for svc.Tracker.SymbolCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if svc.Tracker.SymbolCount() != 1 {
		t.Error("tick was not consumed")
	}

	svc.Shutdown()
	svc.Shutdown()
}

func TestStartRefreshesPartitionsIndependently(t *testing.T) {
	gate := make(chan struct{})
	market := &fakeMarket{
		universe: []string{"HOTUSDT", "AAAUSDT"},
		tickers: []models.MTicker24h{
			{Symbol: "HOTUSDT", LastPrice: 110, PriceChangePercent: -1, QuoteVolume: 900_000},
			{Symbol: "AAAUSDT", LastPrice: 101, PriceChangePercent: 3, QuoteVolume: 500_000},
		},
		candles5m: map[string][]models.MCandle{
			"HOTUSDT": fiveMinute(100, 110),
			"AAAUSDT": fiveMinute(100, 101),
		},
		gates: map[string]chan struct{}{"HOTUSDT": gate},
	}
	svc, _ := newService(t, "relaxed", market)
	defer svc.Shutdown()
	defer close(gate)

	if err := svc.Start(context.Background(), nil); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// HOTUSDT only qualifies for the hot list, whose refresh is held
	deadline := time.Now().Add(2 * time.Second)
	for svc.Cache.Stable.Status().LastRefresh == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if svc.Cache.Stable.Status().LastRefresh == 0 {
		t.Fatal("stable partition waited for the hot refresh")
	}
	if svc.Cache.Hot.Status().LastRefresh != 0 {
		t.Error("hot partition refreshed while its candles were held")
	}
}
