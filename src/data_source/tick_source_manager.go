package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"coin-observer/src/interfaces"
	"coin-observer/src/logger"
	"coin-observer/src/models"
)

// TickSourceManager runs a set of ITickSource instances into one channel.
type TickSourceManager struct {
	Sources    map[string]interfaces.ITickSource
	Logger     *logger.Logger
	mu         sync.RWMutex
	outputChan chan<- models.MTick // Send-only, managed by parent
	ctx        context.Context     // Lifecycle context (derived)
	cancelFunc context.CancelFunc  // To stop all sources
	wg         *sync.WaitGroup     // Shared WaitGroup (ptr)
}

// -----------------------------------------------------------------------------

func NewTickSourceManager(sources []interfaces.ITickSource, log *logger.Logger) *TickSourceManager {
	if log == nil {
		log = logger.NewLogger(nil, "TickSourceManager")
	}
	m := &TickSourceManager{
		Sources: make(map[string]interfaces.ITickSource),
		Logger:  log,
	}

	for _, s := range sources {
		m.Sources[s.Name()] = s
	}

	return m
}

// -----------------------------------------------------------------------------

// AddSource adds a new source and starts it if the manager is running
func (m *TickSourceManager) AddSource(source interfaces.ITickSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := source.Name()
	if _, exists := m.Sources[name]; exists {
		return fmt.Errorf("source %s already exists", name)
	}

	m.Sources[name] = source
	m.Logger.Info("Added source: %s", name)

	if m.ctx != nil {
		if err := source.Start(m.ctx, m.outputChan, m.wg); err != nil {
			return fmt.Errorf("failed to start source %s: %w", name, err)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// SourceNames lists the registered sources, sorted.
func (m *TickSourceManager) SourceNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.Sources))
	for name := range m.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// -----------------------------------------------------------------------------

// IsRunning reports whether Start succeeded and Stop was not called since.
func (m *TickSourceManager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ctx != nil
}

// -----------------------------------------------------------------------------

// Start starts all sources. Ticks go to outputChan; wg is released by each
// source when it has stopped.
func (m *TickSourceManager) Start(parentCtx context.Context, outputChan chan<- models.MTick, wg *sync.WaitGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx != nil {
		return fmt.Errorf("TickSourceManager is already running")
	}

	ctx, cancel := context.WithCancel(parentCtx)
	m.ctx = ctx
	m.cancelFunc = cancel
	m.outputChan = outputChan
	m.wg = wg

	for _, src := range m.Sources {
		if err := src.Start(m.ctx, m.outputChan, m.wg); err != nil {
			m.Logger.Error("Failed to start source %s: %v", src.Name(), err)
			cancel()
			m.ctx = nil
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// Stop stops all sources by cancelling the shared context
func (m *TickSourceManager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx == nil {
		return nil
	}

	m.Logger.Info("Stopping TickSourceManager...")
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	m.cancelFunc = nil
	m.ctx = nil
	return nil
}

// -----------------------------------------------------------------------------

// UpdateSymbols forwards the symbol universe to every source.
func (m *TickSourceManager) UpdateSymbols(symbols []string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, src := range m.Sources {
		if err := src.UpdateSymbols(symbols); err != nil {
			m.Logger.Error("Failed to update symbols for %s: %v", src.Name(), err)
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// Name returns "TickSourceManager"
func (m *TickSourceManager) Name() string {
	return "TickSourceManager"
}
