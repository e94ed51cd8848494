package ranking

import (
	"context"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"coin-observer/src/cache"
	"coin-observer/src/models"
)

// cycle carries the bookkeeping of one partition refresh.
type cycle struct {
	id        string
	partition string
	started   time.Time
	failed    atomic.Int64
}

// -----------------------------------------------------------------------------

// rankHot recomputes the full hot list. Truncation happens on read so every
// limit is served from the same payload.
func (s *Service) rankHot(ctx context.Context) ([]*models.MCoinAnalytics, error) {
	c := s.newCycle(cache.PartitionHot)
	r := s.Config.Ranking

	candidates, err := s.candidates(ctx, func(t models.MTicker24h) bool {
		return t.QuoteVolume > r.HotMinQuoteVolume
	}, r.HotMaxSymbols)
	if err != nil {
		return nil, err
	}

	analytics, err := s.analyzeAll(ctx, c, candidates)
	if err != nil {
		return nil, err
	}

	hot := make([]*models.MCoinAnalytics, 0, len(analytics))
	for _, coin := range analytics {
		if coin.IsHot {
			hot = append(hot, coin)
		}
	}
	SortHot(hot, r.TieBreakEpsilon)

	s.Logger.Info("[%s] %d hot of %d analyzed symbols", c.id, len(hot), len(analytics))
	s.publish(c, hot, len(candidates), len(analytics))
	return hot, nil
}

// -----------------------------------------------------------------------------

// rankStable recomputes the full stable list.
func (s *Service) rankStable(ctx context.Context) ([]*models.MCoinAnalytics, error) {
	c := s.newCycle(cache.PartitionStable)
	r := s.Config.Ranking

	candidates, err := s.candidates(ctx, func(t models.MTicker24h) bool {
		return t.QuoteVolume > r.StableMinQuoteVolume && t.PriceChangePercent > 0
	}, r.StableMaxSymbols)
	if err != nil {
		return nil, err
	}

	analytics, err := s.analyzeAll(ctx, c, candidates)
	if err != nil {
		return nil, err
	}

	stable := make([]*models.MCoinAnalytics, 0, len(analytics))
	for _, coin := range analytics {
		if coin.IsStableGrowth {
			stable = append(stable, coin)
		}
	}
	SortStable(stable)

	s.Logger.Info("[%s] %d stable of %d analyzed symbols", c.id, len(stable), len(analytics))
	s.publish(c, stable, len(candidates), len(analytics))
	return stable, nil
}

// -----------------------------------------------------------------------------

func (s *Service) newCycle(partition string) *cycle {
	return &cycle{
		id:        uuid.NewString(),
		partition: partition,
		started:   time.Now(),
	}
}

// -----------------------------------------------------------------------------

// candidates returns the tickers of universe symbols accepted by keep, the
// max highest quote volumes first.
func (s *Service) candidates(ctx context.Context, keep func(models.MTicker24h) bool, max int) ([]models.MTicker24h, error) {
	universe := s.Universe(ctx)
	allowed := make(map[string]struct{}, len(universe))
	for _, symbol := range universe {
		allowed[symbol] = struct{}{}
	}

	tickers, err := s.Source.FetchTicker24h(ctx, nil)
	if err != nil {
		return nil, err
	}

	out := make([]models.MTicker24h, 0, len(tickers))
	for _, t := range tickers {
		if _, ok := allowed[t.Symbol]; !ok {
			continue
		}
		if keep(t) {
			out = append(out, t)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].QuoteVolume > out[j].QuoteVolume })
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// analyzeAll builds analytics in batches of BatchSize concurrent symbols with
// BatchDelay between batches. Symbols whose candles cannot be fetched are
// logged and skipped. Every result is stored in the snapshot store.
func (s *Service) analyzeAll(ctx context.Context, c *cycle, tickers []models.MTicker24h) ([]*models.MCoinAnalytics, error) {
	batchSize := s.Config.Ranking.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}

	results := make([]*models.MCoinAnalytics, len(tickers))
	for start := 0; start < len(tickers); start += batchSize {
		if start > 0 {
			if err := s.sleep(ctx, s.BatchDelay); err != nil {
				return nil, err
			}
		}
		end := start + batchSize
		if end > len(tickers) {
			end = len(tickers)
		}

		var g errgroup.Group
		g.SetLimit(batchSize)
		for i := start; i < end; i++ {
			g.Go(func() error {
				coin, err := s.analyze(ctx, tickers[i])
				if err != nil {
					c.failed.Add(1)
					s.Logger.Warning("[%s] Skipping %s: %v", c.id, tickers[i].Symbol, err)
					return nil
				}
				results[i] = coin
				return nil
			})
		}
		_ = g.Wait()

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	out := make([]*models.MCoinAnalytics, 0, len(results))
	for _, coin := range results {
		if coin != nil {
			out = append(out, coin)
		}
	}
	s.Cache.Snapshots.Put(out...)
	return out, nil
}

// -----------------------------------------------------------------------------

// analyze fetches the candles of one symbol and builds its analytics. The
// tracker change is used as the 5 minute change when it has one.
func (s *Service) analyze(ctx context.Context, ticker models.MTicker24h) (*models.MCoinAnalytics, error) {
	candles, err := s.fetchCandleSet(ctx, ticker.Symbol)
	if err != nil {
		return nil, err
	}

	var live *float64
	if change, ok := s.Tracker.GetChange(ticker.Symbol); ok {
		live = &change
	}
	return s.Analyzer.BuildAnalytics(ticker, candles, live), nil
}

// -----------------------------------------------------------------------------

func (s *Service) fetchCandleSet(ctx context.Context, symbol string) (models.MCandleSet, error) {
	ds := s.Config.DataSource
	var set models.MCandleSet
	var err error

	if set.Candles5m, err = s.Source.FetchCandles(ctx, symbol, models.Interval5m, ds.CandleLimit5m); err != nil {
		return set, err
	}
	if set.Candles1h, err = s.Source.FetchCandles(ctx, symbol, models.Interval1h, ds.CandleLimit1h); err != nil {
		return set, err
	}
	if set.Candles1d, err = s.Source.FetchCandles(ctx, symbol, models.Interval1d, ds.CandleLimit1d); err != nil {
		return set, err
	}
	return set, nil
}

// -----------------------------------------------------------------------------

// SortHot orders by 5 minute change, best first. Changes within epsilon of
// each other are ordered by momentum score instead.
func SortHot(coins []*models.MCoinAnalytics, epsilon float64) {
	sort.SliceStable(coins, func(i, j int) bool {
		a, b := coins[i], coins[j]
		diff := a.Change5m() - b.Change5m()
		if math.Abs(diff) > epsilon {
			return diff > 0
		}
		return a.ScoreMomentum > b.ScoreMomentum
	})
}

// -----------------------------------------------------------------------------

// SortStable orders by 24h change, best first.
func SortStable(coins []*models.MCoinAnalytics) {
	sort.SliceStable(coins, func(i, j int) bool {
		return coins[i].Change24h > coins[j].Change24h
	})
}

// -----------------------------------------------------------------------------

// publish pushes the new ranking to the dashboard and appends it to the
// journal. Neither is required.
func (s *Service) publish(c *cycle, ranked []*models.MCoinAnalytics, candidates, classified int) {
	metrics := models.MProcessingMetrics{
		Partition:          c.partition,
		RefreshTimeSeconds: time.Since(c.started).Seconds(),
		CandidateSymbols:   candidates,
		ClassifiedSymbols:  classified,
		FailedSymbols:      int(c.failed.Load()),
		Ranked:             len(ranked),
	}

	if s.Exchanger != nil {
		limit := s.Config.Ranking.DefaultLimit
		update := &models.MLatestData{
			Type:              "UPDATE",
			CycleID:           c.id,
			Timestamp:         s.now().UnixMilli(),
			ProcessingMetrics: metrics,
		}
		// the partition being refreshed is not stored yet
		if c.partition == cache.PartitionHot {
			update.Hot = truncate(ranked, limit)
			update.Stable = truncate(s.Cache.Stable.Peek(), limit)
		} else {
			update.Hot = truncate(s.Cache.Hot.Peek(), limit)
			update.Stable = truncate(ranked, limit)
		}
		s.Exchanger.UpdateAllDatas(update)
		s.Exchanger.Broadcast(update)
	}

	if s.Journal != nil {
		at := s.now()
		err := s.Errors.ExecuteWithRetry("save ranking", func() error {
			return s.Journal.SaveRanking(c.id, c.partition, ranked, at)
		}, journalRetries, journalBaseDelay)
		if err != nil {
			s.Logger.Warning("[%s] Ranking not journaled: %v", c.id, err)
		}
	}
}
