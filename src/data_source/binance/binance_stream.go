package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"coin-observer/src/helpers"
	"coin-observer/src/logger"
	"coin-observer/src/models"
	"coin-observer/src/utils"
)

const (
	dialAttempts   = 3
	reconnectDelay = 5 * time.Second
	readTimeout    = 60 * time.Second
)

// miniTicker is one entry of the !miniTicker@arr stream.
type miniTicker struct {
	EventTime   int64  `json:"E"`
	Symbol      string `json:"s"`
	Close       string `json:"c"`
	QuoteVolume string `json:"q"`
}

// -----------------------------------------------------------------------------
// MiniTickerStream feeds live prices from the all-market mini ticker stream.
// Each symbol is sampled at most once per SampleInterval so a bounded price
// history still spans the whole retention period.
// -----------------------------------------------------------------------------

type MiniTickerStream struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	Dialer   *websocket.Dialer
	Interval time.Duration

	symbols    atomic.Value // map[string]struct{}, empty means all
	connected  atomic.Bool
	isRunning  atomic.Bool
	cancelFunc context.CancelFunc
	mu         sync.Mutex
}

// -----------------------------------------------------------------------------

func NewMiniTickerStream(cfg *models.MConfig, log *logger.Logger) *MiniTickerStream {
	if log == nil {
		log = logger.NewLogger(cfg, "MiniTickerStream")
	}
	window := time.Duration(cfg.Tracker.WindowSeconds) * time.Second
	if window <= 0 {
		window = utils.DefaultWindowSeconds * time.Second
	}
	maxPoints := cfg.Tracker.MaxPoints
	if maxPoints <= 0 {
		maxPoints = utils.DefaultMaxPoints
	}

	s := &MiniTickerStream{
		Config:   cfg,
		Logger:   log,
		Dialer:   websocket.DefaultDialer,
		Interval: utils.SampleInterval(window, maxPoints),
	}
	s.symbols.Store(map[string]struct{}{})
	return s
}

// -----------------------------------------------------------------------------

func (s *MiniTickerStream) Name() string {
	return "binance-miniticker"
}

// -----------------------------------------------------------------------------

// IsConnected reports whether the websocket is currently open.
func (s *MiniTickerStream) IsConnected() bool {
	return s.connected.Load()
}

// -----------------------------------------------------------------------------

// UpdateSymbols restricts forwarded ticks to symbols. An empty list lets
// every symbol through.
func (s *MiniTickerStream) UpdateSymbols(symbols []string) error {
	set := make(map[string]struct{}, len(symbols))
	for _, sym := range symbols {
		set[helpers.NormalizeSymbol(sym)] = struct{}{}
	}
	s.symbols.Store(set)
	s.Logger.Info("Updated symbol filter. New count: %d", len(set))
	return nil
}

func (s *MiniTickerStream) accepts(symbol string) bool {
	set := s.symbols.Load().(map[string]struct{})
	if len(set) == 0 {
		return true
	}
	_, ok := set[symbol]
	return ok
}

// -----------------------------------------------------------------------------

// Start connects in the background and keeps reconnecting until ctx is
// cancelled or Stop is called.
func (s *MiniTickerStream) Start(parentCtx context.Context, out chan<- models.MTick, wg *sync.WaitGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning.Load() {
		return fmt.Errorf("source %s is already running", s.Name())
	}

	ctx, cancel := context.WithCancel(parentCtx)
	s.cancelFunc = cancel
	s.isRunning.Store(true)

	wg.Add(1)
	go s.runLoop(ctx, out, wg)
	s.Logger.Info("Started %s on %s (sampling every %v)", s.Name(), s.Config.DataSource.StreamURL, s.Interval)
	return nil
}

// -----------------------------------------------------------------------------

// Stop signals the run loop to exit
func (s *MiniTickerStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning.Load() {
		return fmt.Errorf("source %s is not running", s.Name())
	}
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.isRunning.Store(false)
	s.Logger.Info("Stopped %s", s.Name())
	return nil
}

// -----------------------------------------------------------------------------

func (s *MiniTickerStream) runLoop(ctx context.Context, out chan<- models.MTick, wg *sync.WaitGroup) {
	defer wg.Done()
	defer s.isRunning.Store(false)

	// only this goroutine touches lastSample
	lastSample := make(map[string]int64)

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := helpers.RetryWithBackoff(ctx, dialAttempts, time.Second, nil, func() (*websocket.Conn, error) {
			conn, _, err := s.Dialer.DialContext(ctx, s.Config.DataSource.StreamURL, nil)
			return conn, err
		})
		if err != nil {
			s.Logger.Error("Connecting to %s failed: %v", s.Config.DataSource.StreamURL, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(reconnectDelay):
			}
			continue
		}

		s.connected.Store(true)
		s.Logger.Info("Connected to %s", s.Config.DataSource.StreamURL)
		err = s.readStream(ctx, conn, out, lastSample)
		s.connected.Store(false)
		if ctx.Err() != nil {
			return
		}
		s.Logger.Warning("Stream closed, reconnecting: %v", err)
	}
}

// -----------------------------------------------------------------------------

func (s *MiniTickerStream) readStream(ctx context.Context, conn *websocket.Conn, out chan<- models.MTick, lastSample map[string]int64) error {
	defer conn.Close()

	// unblock ReadMessage on shutdown
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	intervalMs := s.Interval.Milliseconds()
	dropped := 0
	for {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		ticks, err := parseMiniTickers(message)
		if err != nil {
			s.Logger.Debug("Skipping malformed stream message: %v", err)
			continue
		}

		for _, tick := range ticks {
			if !s.accepts(tick.Symbol) {
				continue
			}
			if last, ok := lastSample[tick.Symbol]; ok && tick.Timestamp-last < intervalMs {
				continue
			}
			lastSample[tick.Symbol] = tick.Timestamp

			select {
			case out <- tick:
			default:
				dropped++
				if dropped%1000 == 1 {
					s.Logger.Warning("Tick channel full, %d ticks dropped so far", dropped)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

// parseMiniTickers decodes one stream frame into ticks, skipping entries
// with unparsable prices.
func parseMiniTickers(message []byte) ([]models.MTick, error) {
	var entries []miniTicker
	if err := json.Unmarshal(message, &entries); err != nil {
		return nil, err
	}

	ticks := make([]models.MTick, 0, len(entries))
	for _, e := range entries {
		price, err := strconv.ParseFloat(e.Close, 64)
		if err != nil || e.Symbol == "" {
			continue
		}
		quoteVolume, _ := strconv.ParseFloat(e.QuoteVolume, 64)
		ticks = append(ticks, models.MTick{
			Symbol:      helpers.NormalizeSymbol(e.Symbol),
			Price:       price,
			QuoteVolume: quoteVolume,
			Timestamp:   e.EventTime,
		})
	}
	return ticks, nil
}
