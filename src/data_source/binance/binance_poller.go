package binance

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"coin-observer/src/interfaces"
	"coin-observer/src/logger"
	"coin-observer/src/models"
	"coin-observer/src/utils"
)

// -----------------------------------------------------------------------------
// TickerPoller produces ticks by polling the 24h ticker endpoint. It is used
// when the websocket stream is disabled or blocked.
// -----------------------------------------------------------------------------

type TickerPoller struct {
	Source   interfaces.IMarketDataSource
	Logger   *logger.Logger
	Interval time.Duration

	symbols    atomic.Value // []string, empty means all
	isRunning  atomic.Bool
	cancelFunc context.CancelFunc
	mu         sync.Mutex
	now        func() int64
}

// -----------------------------------------------------------------------------

func NewTickerPoller(cfg *models.MConfig, source interfaces.IMarketDataSource, log *logger.Logger) *TickerPoller {
	if log == nil {
		log = logger.NewLogger(cfg, "TickerPoller")
	}
	window := time.Duration(cfg.Tracker.WindowSeconds) * time.Second
	if window <= 0 {
		window = utils.DefaultWindowSeconds * time.Second
	}
	maxPoints := cfg.Tracker.MaxPoints
	if maxPoints <= 0 {
		maxPoints = utils.DefaultMaxPoints
	}

	p := &TickerPoller{
		Source:   source,
		Logger:   log,
		Interval: utils.SampleInterval(window, maxPoints),
		now:      utils.NowMillis,
	}
	p.symbols.Store([]string{})
	return p
}

// -----------------------------------------------------------------------------

func (p *TickerPoller) Name() string {
	return "binance-ticker-poller"
}

// -----------------------------------------------------------------------------

func (p *TickerPoller) UpdateSymbols(symbols []string) error {
	p.symbols.Store(append([]string(nil), symbols...))
	p.Logger.Info("Updated symbol list. New count: %d", len(symbols))
	return nil
}

// -----------------------------------------------------------------------------

func (p *TickerPoller) Start(parentCtx context.Context, out chan<- models.MTick, wg *sync.WaitGroup) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isRunning.Load() {
		return fmt.Errorf("source %s is already running", p.Name())
	}

	ctx, cancel := context.WithCancel(parentCtx)
	p.cancelFunc = cancel
	p.isRunning.Store(true)

	wg.Add(1)
	go p.runLoop(ctx, out, wg)
	p.Logger.Info("Started %s (every %v)", p.Name(), p.Interval)
	return nil
}

// -----------------------------------------------------------------------------

func (p *TickerPoller) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.isRunning.Load() {
		return fmt.Errorf("source %s is not running", p.Name())
	}
	if p.cancelFunc != nil {
		p.cancelFunc()
	}
	p.isRunning.Store(false)
	p.Logger.Info("Stopped %s", p.Name())
	return nil
}

// -----------------------------------------------------------------------------

func (p *TickerPoller) runLoop(ctx context.Context, out chan<- models.MTick, wg *sync.WaitGroup) {
	defer wg.Done()
	defer p.isRunning.Store(false)

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	p.poll(ctx, out)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx, out)
		}
	}
}

// -----------------------------------------------------------------------------

// poll fetches one round of tickers. Ticks share the poll time since the
// ticker endpoint carries no per-symbol event time.
func (p *TickerPoller) poll(ctx context.Context, out chan<- models.MTick) {
	symbols := p.symbols.Load().([]string)

	var filter map[string]struct{}
	if len(symbols) > 0 {
		filter = make(map[string]struct{}, len(symbols))
		for _, s := range symbols {
			filter[s] = struct{}{}
		}
	}

	// the full list is one request; large symbol filters would need many
	tickers, err := p.Source.FetchTicker24h(ctx, nil)
	if err != nil {
		p.Logger.Warning("Polling tickers failed: %v", err)
		return
	}

	now := p.now()
	sent, dropped := 0, 0
	for _, t := range tickers {
		if filter != nil {
			if _, ok := filter[t.Symbol]; !ok {
				continue
			}
		}
		tick := models.MTick{Symbol: t.Symbol, Price: t.LastPrice, QuoteVolume: t.QuoteVolume, Timestamp: now}
		select {
		case out <- tick:
			sent++
		default:
			dropped++
		}
	}
	if dropped > 0 {
		p.Logger.Warning("Tick channel full, dropped %d of %d ticks", dropped, sent+dropped)
	}
}
