package ranking

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"coin-observer/src/analysis"
	"coin-observer/src/cache"
	"coin-observer/src/helpers"
	"coin-observer/src/interfaces"
	"coin-observer/src/logger"
	"coin-observer/src/models"
	"coin-observer/src/tracker"
)

const (
	journalRetries   = 2
	journalBaseDelay = 500 * time.Millisecond
)

// SymbolSink receives the tradable universe whenever it is reloaded, so live
// tick sources can narrow their subscriptions.
type SymbolSink interface {
	UpdateSymbols(symbols []string) error
}

// -----------------------------------------------------------------------------
// Service ranks hot and stable symbols. Rankings are cached per partition and
// refreshed by three independent timers; readers never wait on the exchange
// while a fresh payload exists.
// -----------------------------------------------------------------------------

type Service struct {
	Config   *models.MConfig
	Source   interfaces.IMarketDataSource
	Tracker  *tracker.RollingWindowTracker
	Analyzer *analysis.AnalysisFacade
	Cache    *cache.AnalyticsCache
	Logger   *logger.Logger
	Errors   *helpers.ErrorHandler

	// optional collaborators
	Exchanger interfaces.IDataExchanger
	Journal   interfaces.IDatabase
	Symbols   SymbolSink

	BatchDelay time.Duration

	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
	cancelFunc context.CancelFunc
	isRunning  atomic.Bool
	wg         sync.WaitGroup
	mu         sync.Mutex
}

// -----------------------------------------------------------------------------

func NewService(
	cfg *models.MConfig,
	source interfaces.IMarketDataSource,
	tr *tracker.RollingWindowTracker,
	log *logger.Logger,
) (*Service, error) {

	if source == nil {
		return nil, &helpers.ConfigurationError{ObserverError: helpers.ObserverError{Message: "ranking service needs a market data source"}}
	}
	if log == nil {
		log = logger.NewLogger(cfg, "RankingService")
	}
	if tr == nil {
		tr = tracker.NewRollingWindowTracker(cfg, log.Named("RollingWindowTracker"))
	}

	analyzer, err := analysis.NewAnalysisFacade(cfg, log.Named("AnalysisFacade"))
	if err != nil {
		return nil, &helpers.ConfigurationError{ObserverError: helpers.ObserverError{Message: "invalid classification policy", Cause: err}}
	}

	return &Service{
		Config:     cfg,
		Source:     source,
		Tracker:    tr,
		Analyzer:   analyzer,
		Cache:      cache.NewAnalyticsCache(cfg, log.Named("AnalyticsCache")),
		Logger:     log,
		Errors:     helpers.NewErrorHandler(log.Named("ErrorHandler")),
		BatchDelay: time.Duration(cfg.Ranking.BatchDelayMs) * time.Millisecond,
		now:        time.Now,
		sleep:      sleepContext,
	}, nil
}

// -----------------------------------------------------------------------------

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// -----------------------------------------------------------------------------

// SetClock replaces the wall clock of the service and of its cache.
func (s *Service) SetClock(clock func() time.Time) {
	s.now = clock
	s.Cache.SetClock(cache.Clock(clock))
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start refreshes every partition right away and then on its own TTL, each
// on an independent timer. Ticks read from ticks feed the rolling tracker; a
// nil channel disables that.
func (s *Service) Start(parentCtx context.Context, ticks <-chan models.MTick) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning.Load() {
		return fmt.Errorf("ranking service is already running")
	}

	ctx, cancel := context.WithCancel(parentCtx)
	s.cancelFunc = cancel
	s.isRunning.Store(true)
	s.Cache.SetLifetime(ctx)

	if ticks != nil {
		s.wg.Add(1)
		go s.consumeTicks(ctx, ticks)
	}

	schedule := map[string]time.Duration{
		cache.PartitionUniverse: s.Cache.Universe.TTL,
		cache.PartitionHot:      s.Cache.Hot.TTL,
		cache.PartitionStable:   s.Cache.Stable.TTL,
	}
	for name, every := range schedule {
		s.wg.Add(1)
		go s.refreshLoop(ctx, name, every)
	}

	s.Logger.Info("Ranking service started (policy %s, hot every %v, stable every %v)",
		s.PolicyName(), s.Cache.Hot.TTL, s.Cache.Stable.TTL)
	return nil
}

// -----------------------------------------------------------------------------

// Shutdown stops the timers and the tick consumer and waits for them.
func (s *Service) Shutdown() {
	s.mu.Lock()
	if !s.isRunning.Load() {
		s.mu.Unlock()
		return
	}
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.isRunning.Store(false)
	s.mu.Unlock()

	s.wg.Wait()
	s.Logger.Info("Ranking service stopped")
}

// -----------------------------------------------------------------------------

func (s *Service) refreshLoop(ctx context.Context, name string, every time.Duration) {
	defer s.wg.Done()

	s.refresh(ctx, name)
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx, name)
		}
	}
}

// -----------------------------------------------------------------------------

func (s *Service) refresh(ctx context.Context, name string) {
	if ctx.Err() != nil {
		return
	}
	if err := s.RefreshPartition(ctx, name); err != nil {
		s.Logger.Warning("Scheduled refresh of %s failed: %v", name, err)
	}
	if name == cache.PartitionUniverse && s.Journal != nil {
		if err := s.Journal.CleanupOldData(); err != nil {
			s.Errors.Handle(err, "journal cleanup")
		}
	}
}

// -----------------------------------------------------------------------------

func (s *Service) consumeTicks(ctx context.Context, ticks <-chan models.MTick) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case tick, ok := <-ticks:
			if !ok {
				s.Logger.Info("Tick channel closed")
				return
			}
			s.Tracker.AddPricePoint(tick.Symbol, tick.Price, tick.Timestamp)
		}
	}
}

// -----------------------------------------------------------------------------
// Universe
// -----------------------------------------------------------------------------

// Universe returns the tradable symbols. When the exchange cannot be reached
// the last good universe is used, and before any success the configured
// fallback list.
func (s *Service) Universe(ctx context.Context) []string {
	symbols := s.Cache.Universe.Read(ctx, s.loadUniverse)
	if len(symbols) > 0 {
		return symbols
	}
	s.Logger.Warning("No universe available, using %d fallback symbols", len(s.Config.DataSource.FallbackSymbols))
	return append([]string(nil), s.Config.DataSource.FallbackSymbols...)
}

// -----------------------------------------------------------------------------

func (s *Service) loadUniverse(ctx context.Context) ([]string, error) {
	symbols, err := s.Source.FetchUniverse(ctx)
	if err != nil {
		return nil, err
	}
	if s.Symbols != nil {
		if err := s.Symbols.UpdateSymbols(symbols); err != nil {
			s.Logger.Warning("Updating tick source symbols failed: %v", err)
		}
	}
	return symbols, nil
}

// -----------------------------------------------------------------------------
// Read side
// -----------------------------------------------------------------------------

func (s *Service) limit(limit int) int {
	if limit <= 0 {
		return s.Config.Ranking.DefaultLimit
	}
	return limit
}

func truncate(coins []*models.MCoinAnalytics, limit int) []*models.MCoinAnalytics {
	if limit > 0 && len(coins) > limit {
		coins = coins[:limit]
	}
	out := make([]*models.MCoinAnalytics, len(coins))
	copy(out, coins)
	return out
}

// -----------------------------------------------------------------------------

// HotCoins returns at most limit hot symbols; limit <= 0 uses the default.
func (s *Service) HotCoins(ctx context.Context, limit int) []*models.MCoinAnalytics {
	return truncate(s.Cache.Hot.Read(ctx, s.rankHot), s.limit(limit))
}

// -----------------------------------------------------------------------------

// StableCoins returns at most limit stable growers; limit <= 0 uses the default.
func (s *Service) StableCoins(ctx context.Context, limit int) []*models.MCoinAnalytics {
	return truncate(s.Cache.Stable.Read(ctx, s.rankStable), s.limit(limit))
}

// -----------------------------------------------------------------------------

func (s *Service) AllCoins() []*models.MCoinAnalytics {
	return s.Cache.Snapshots.All()
}

// -----------------------------------------------------------------------------

// Coin returns the stored record of symbol while it is younger than the hot
// TTL, and computes a fresh one otherwise.
func (s *Service) Coin(ctx context.Context, symbol string) (*models.MCoinAnalytics, error) {
	symbol, err := helpers.ValidateSymbol(symbol, s.Analyzer.QuoteAsset())
	if err != nil {
		return nil, err
	}

	if coin, ok := s.Cache.Snapshots.Get(symbol); ok {
		age := s.now().Sub(time.UnixMilli(coin.LastUpdate))
		if age < s.Cache.Hot.TTL {
			return coin, nil
		}
	}

	tickers, err := s.Source.FetchTicker24h(ctx, []string{symbol})
	if err != nil {
		return nil, err
	}
	for _, t := range tickers {
		if t.Symbol != symbol {
			continue
		}
		coin, err := s.analyze(ctx, t)
		if err != nil {
			return nil, err
		}
		s.Cache.Snapshots.Put(coin)
		return coin, nil
	}
	return nil, helpers.NewFetchError("ticker", symbol, 404, fmt.Errorf("symbol not listed"))
}

// -----------------------------------------------------------------------------

func (s *Service) LiveChanges() map[string]float64 {
	return s.Tracker.GetAllChanges()
}

// -----------------------------------------------------------------------------

func (s *Service) TrackerDebug() []models.MSymbolDebug {
	return s.Tracker.DebugInfo()
}

// -----------------------------------------------------------------------------

func (s *Service) CacheStatus() []models.MPartitionStatus {
	return s.Cache.Status()
}

// -----------------------------------------------------------------------------

// RefreshPartition recomputes one partition now. The previous payload stays
// in place when the recompute fails.
func (s *Service) RefreshPartition(ctx context.Context, name string) error {
	var err error
	switch strings.ToLower(name) {
	case cache.PartitionUniverse:
		_, err = s.Cache.Universe.Refresh(ctx, s.loadUniverse)
	case cache.PartitionHot:
		_, err = s.Cache.Hot.Refresh(ctx, s.rankHot)
	case cache.PartitionStable:
		_, err = s.Cache.Stable.Refresh(ctx, s.rankStable)
	default:
		return &helpers.ValidationError{ObserverError: helpers.ObserverError{
			Message: fmt.Sprintf("unknown partition %q", name),
		}}
	}
	return err
}

// -----------------------------------------------------------------------------

// ClearCache drops the rankings, the stored records and the tracker history.
// The universe is kept.
func (s *Service) ClearCache() {
	s.Cache.Clear()
	s.Tracker.ClearAll()
}

// -----------------------------------------------------------------------------

func (s *Service) PolicyName() string {
	return s.Analyzer.Policy.Name()
}
