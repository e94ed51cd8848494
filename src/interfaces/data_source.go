package interfaces

import (
	"context"
	"sync"

	"coin-observer/src/models"
)

// -----------------------------------------------------------------------------
// IMarketDataSource fetches reference data and candles from an exchange.
// -----------------------------------------------------------------------------

type IMarketDataSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// FetchUniverse returns every tradable symbol quoted in the configured asset.
	FetchUniverse(ctx context.Context) ([]string, error)

	// -----------------------------------------------------------------------------

	// FetchTicker24h returns 24h summaries. An empty symbols slice means all.
	FetchTicker24h(ctx context.Context, symbols []string) ([]models.MTicker24h, error)

	// -----------------------------------------------------------------------------

	// FetchCandles returns up to limit candles in ascending open time.
	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]models.MCandle, error)
}

// -----------------------------------------------------------------------------
// ITickSource pushes live ticks until ctx is cancelled.
// -----------------------------------------------------------------------------

type ITickSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// Start begins streaming.
	// ctx: controls the lifecycle (cancellation stops the source)
	// out: ticks are sent without blocking; a full channel drops the tick
	// wg: signalled when the source has fully stopped
	Start(ctx context.Context, out chan<- models.MTick, wg *sync.WaitGroup) error

	// -----------------------------------------------------------------------------

	// Stop stops the source
	Stop() error

	// -----------------------------------------------------------------------------

	// UpdateSymbols restricts the source to symbols; empty means all.
	UpdateSymbols(symbols []string) error
}
