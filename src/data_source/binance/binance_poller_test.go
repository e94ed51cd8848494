package binance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"coin-observer/src/config"
	"coin-observer/src/logger"
	"coin-observer/src/models"
)

type fakeTickerSource struct {
	mu      sync.Mutex
	tickers []models.MTicker24h
	err     error
	calls   int
}

func (f *fakeTickerSource) Name() string { return "fake" }

func (f *fakeTickerSource) FetchUniverse(ctx context.Context) ([]string, error) { return nil, nil }

func (f *fakeTickerSource) FetchTicker24h(ctx context.Context, symbols []string) ([]models.MTicker24h, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.tickers, f.err
}

func (f *fakeTickerSource) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]models.MCandle, error) {
	return nil, nil
}

func TestTickerPollerPushesFilteredTicks(t *testing.T) {
	source := &fakeTickerSource{tickers: []models.MTicker24h{
		{Symbol: "BTCUSDT", LastPrice: 100, QuoteVolume: 1},
		{Symbol: "ETHUSDT", LastPrice: 10, QuoteVolume: 2},
	}}
	poller := NewTickerPoller(config.Default().MConfig, source, logger.NewLogger(nil, "test"))
	poller.now = func() int64 { return 42 }
	poller.UpdateSymbols([]string{"ETHUSDT"})

	out := make(chan models.MTick, 4)
	poller.poll(context.Background(), out)

	if len(out) != 1 {
		t.Fatalf("ticks = %d, want 1", len(out))
	}
	tick := <-out
	if tick.Symbol != "ETHUSDT" || tick.Price != 10 || tick.Timestamp != 42 {
		t.Errorf("tick = %+v", tick)
	}
}

func TestTickerPollerDropsWhenFull(t *testing.T) {
	source := &fakeTickerSource{tickers: []models.MTicker24h{
		{Symbol: "AUSDT", LastPrice: 1},
		{Symbol: "BUSDT", LastPrice: 2},
	}}
	poller := NewTickerPoller(config.Default().MConfig, source, logger.NewLogger(nil, "test"))

	out := make(chan models.MTick, 1)
	poller.poll(context.Background(), out)
	if len(out) != 1 {
		t.Errorf("buffered ticks = %d", len(out))
	}

	source.err = errors.New("down")
	<-out
	poller.poll(context.Background(), out)
	if len(out) != 0 {
		t.Error("failed poll pushed ticks")
	}
}

func TestTickerPollerStartStop(t *testing.T) {
	source := &fakeTickerSource{}
	poller := NewTickerPoller(config.Default().MConfig, source, logger.NewLogger(nil, "test"))
	poller.Interval = time.Hour

	var wg sync.WaitGroup
	out := make(chan models.MTick, 1)
	if err := poller.Start(context.Background(), out, &wg); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := poller.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	wg.Wait()

	if err := poller.Stop(); err == nil {
		t.Error("second Stop should fail")
	}
	source.mu.Lock()
	defer source.mu.Unlock()
	if source.calls != 1 {
		t.Errorf("polls = %d, want the initial one", source.calls)
	}
}
