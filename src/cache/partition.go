package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"coin-observer/src/logger"
	"coin-observer/src/models"
)

// Clock returns the current time.
type Clock func() time.Time

// Recompute produces a fresh payload for a partition.
type Recompute[E any] func(ctx context.Context) ([]E, error)

// minRecomputeTimeout bounds a recompute when the TTL is shorter.
const minRecomputeTimeout = time.Minute

// -----------------------------------------------------------------------------
// Partition is one TTL bound slot of the analytics cache. A payload is only
// ever replaced as a whole; failed recomputes keep the last good one.
// -----------------------------------------------------------------------------

type Partition[E any] struct {
	Name   string
	TTL    time.Duration
	Logger *logger.Logger
	// ServeEmpty lets Read answer from a fresh empty payload.
	ServeEmpty bool

	mu          sync.RWMutex
	payload     []E
	lastRefresh time.Time
	lastError   error
	clock       Clock
	lifetime    context.Context
	group       singleflight.Group
}

// -----------------------------------------------------------------------------

func NewPartition[E any](name string, ttl time.Duration, log *logger.Logger) *Partition[E] {
	if log == nil {
		log = logger.NewLogger(nil, "Partition")
	}
	return &Partition[E]{
		Name:   name,
		TTL:    ttl,
		Logger: log,
		clock:  time.Now,
	}
}

// -----------------------------------------------------------------------------

// SetClock replaces the wall clock, for tests.
func (p *Partition[E]) SetClock(clock Clock) {
	p.mu.Lock()
	p.clock = clock
	p.mu.Unlock()
}

// -----------------------------------------------------------------------------

// SetLifetime ties in-flight recomputes to ctx instead of to the caller that
// started them. Cancelling ctx aborts them.
func (p *Partition[E]) SetLifetime(ctx context.Context) {
	p.mu.Lock()
	p.lifetime = ctx
	p.mu.Unlock()
}

// -----------------------------------------------------------------------------

// IsStale reports whether the TTL has elapsed since the last successful
// refresh. A partition that was never filled is stale.
func (p *Partition[E]) IsStale() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.staleLocked()
}

func (p *Partition[E]) staleLocked() bool {
	if p.lastRefresh.IsZero() {
		return true
	}
	return p.clock().Sub(p.lastRefresh) >= p.TTL
}

// -----------------------------------------------------------------------------

// Peek returns the current payload without recomputing.
func (p *Partition[E]) Peek() []E {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.payload
}

// -----------------------------------------------------------------------------

// Read returns the payload while it is fresh and non-empty (or fresh and
// empty with ServeEmpty); otherwise it recomputes. Concurrent callers share
// one in-flight recompute. Failures are logged and answered with the last good
// payload, or an empty one.
func (p *Partition[E]) Read(ctx context.Context, recompute Recompute[E]) []E {
	p.mu.RLock()
	if !p.staleLocked() && (len(p.payload) > 0 || p.ServeEmpty) {
		payload := p.payload
		p.mu.RUnlock()
		return payload
	}
	p.mu.RUnlock()

	payload, err := p.Refresh(ctx, recompute)
	if err != nil && payload == nil {
		return []E{}
	}
	return payload
}

// -----------------------------------------------------------------------------

// Refresh recomputes the payload regardless of its age. On failure the last
// good payload is returned together with the error. The recompute outlives
// ctx: a caller that gives up gets the last good payload, while the others
// sharing the flight still receive its result.
func (p *Partition[E]) Refresh(ctx context.Context, recompute Recompute[E]) ([]E, error) {
	ch := p.group.DoChan(p.Name, func() (interface{}, error) {
		flightCtx, cancel := p.flightContext(ctx)
		defer cancel()
		return p.recompute(flightCtx, recompute)
	})

	select {
	case <-ctx.Done():
		return p.Peek(), ctx.Err()
	case res := <-ch:
		if res.Shared {
			p.Logger.Debug("Partition %s joined an in-flight refresh", p.Name)
		}
		if res.Err != nil {
			return p.Peek(), res.Err
		}
		return res.Val.([]E), nil
	}
}

// -----------------------------------------------------------------------------

// flightContext keeps the values of ctx but not its cancellation. It ends
// with the partition lifetime or after max(TTL, minRecomputeTimeout).
func (p *Partition[E]) flightContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := p.TTL
	if timeout < minRecomputeTimeout {
		timeout = minRecomputeTimeout
	}
	flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)

	p.mu.RLock()
	lifetime := p.lifetime
	p.mu.RUnlock()
	if lifetime == nil {
		return flightCtx, cancel
	}
	stop := context.AfterFunc(lifetime, cancel)
	return flightCtx, func() {
		stop()
		cancel()
	}
}

// -----------------------------------------------------------------------------

func (p *Partition[E]) recompute(ctx context.Context, recompute Recompute[E]) ([]E, error) {
	start := time.Now()
	payload, err := recompute(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	if err != nil {
		p.lastError = err
		p.Logger.Error("Refreshing %s failed, keeping %d cached entries: %v", p.Name, len(p.payload), err)
		return nil, err
	}
	if payload == nil {
		payload = []E{}
	}

	p.payload = payload
	p.lastRefresh = p.clock()
	p.lastError = nil
	p.Logger.Debug("Refreshed %s with %d entries in %v", p.Name, len(payload), time.Since(start))
	return payload, nil
}

// -----------------------------------------------------------------------------

// Invalidate drops the payload so the next Read recomputes.
func (p *Partition[E]) Invalidate() {
	p.mu.Lock()
	p.payload = nil
	p.lastRefresh = time.Time{}
	p.lastError = nil
	p.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Status describes the partition for the debug endpoints.
func (p *Partition[E]) Status() models.MPartitionStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	status := models.MPartitionStatus{
		Name:       p.Name,
		Size:       len(p.payload),
		TTLSeconds: int64(p.TTL / time.Second),
		Stale:      p.staleLocked(),
	}
	if !p.lastRefresh.IsZero() {
		status.LastRefresh = p.lastRefresh.UnixMilli()
		status.AgeSeconds = int64(p.clock().Sub(p.lastRefresh) / time.Second)
	}
	if p.lastError != nil {
		status.LastError = p.lastError.Error()
	}
	return status
}
