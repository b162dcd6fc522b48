package chrome

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/telewebsaver/engine/internal/render/metrics"
	"github.com/telewebsaver/engine/internal/render/snapshot"
)

// Pool bounds the number of concurrent browser sessions with a FIFO queue of slots.
// It wraps another Engine; a slot is held from Open until the session is closed.
type Pool struct {
	engine           snapshot.Engine
	config           *Config
	logger           *zap.Logger
	queue            chan int // FIFO queue of free slot IDs
	poolSize         int
	activeRenders    atomic.Int32
	totalRenders     atomic.Int64
	totalRejected    atomic.Int64
	createdAt        time.Time
	ctx              context.Context
	cancel           context.CancelFunc
	metricsCollector *metrics.MetricsCollector

	// Sessions currently holding a slot, closed forcibly if shutdown times out
	active   map[int]*pooledSession
	activeMu sync.Mutex
}

var _ snapshot.Engine = (*Pool)(nil)

// NewPool creates a slot pool in front of engine. metricsCollector may be nil.
func NewPool(engine snapshot.Engine, config *Config, metricsCollector *metrics.MetricsCollector, logger *zap.Logger) (*Pool, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	poolSize := config.CalculatePoolSize()
	ctx, cancel := context.WithCancel(context.Background())

	p := &Pool{
		engine:           engine,
		config:           config,
		logger:           logger,
		queue:            make(chan int, poolSize),
		poolSize:         poolSize,
		createdAt:        time.Now().UTC(),
		ctx:              ctx,
		cancel:           cancel,
		metricsCollector: metricsCollector,
		active:           make(map[int]*pooledSession),
	}

	for i := 0; i < poolSize; i++ {
		p.queue <- i
	}
	p.updateGauges()

	logger.Info("Render pool initialized", zap.Int("pool_size", poolSize))
	return p, nil
}

// Open waits for a free slot, then opens a session on the wrapped engine.
// Returns ErrPoolShutdown after Shutdown, ErrPoolExhausted when ctx ends first.
func (p *Pool) Open(ctx context.Context, vp snapshot.Viewport) (snapshot.Session, error) {
	slot, err := p.acquire(ctx)
	if err != nil {
		p.totalRejected.Add(1)
		return nil, err
	}

	sess, err := p.engine.Open(ctx, vp)
	if err != nil {
		p.release(slot)
		return nil, err
	}

	ps := &pooledSession{Session: sess, pool: p, slot: slot}

	p.activeMu.Lock()
	p.active[slot] = ps
	p.activeMu.Unlock()

	return ps, nil
}

func (p *Pool) acquire(ctx context.Context) (int, error) {
	if p.ctx.Err() != nil {
		return 0, ErrPoolShutdown
	}

	select {
	case <-p.ctx.Done():
		return 0, ErrPoolShutdown
	case <-ctx.Done():
		return 0, fmt.Errorf("%w: %v", ErrPoolExhausted, ctx.Err())
	case slot := <-p.queue:
		// Shutdown may have happened while we were waiting on the queue
		if p.ctx.Err() != nil {
			p.queue <- slot
			return 0, ErrPoolShutdown
		}

		p.activeRenders.Add(1)
		p.updateGauges()

		p.logger.Debug("Render slot acquired",
			zap.Int("slot", slot),
			zap.Int32("active_renders", p.activeRenders.Load()),
			zap.Int("pool_size", p.poolSize))
		return slot, nil
	}
}

func (p *Pool) release(slot int) {
	p.activeMu.Lock()
	delete(p.active, slot)
	p.activeMu.Unlock()

	p.activeRenders.Add(-1)
	p.totalRenders.Add(1)

	select {
	case p.queue <- slot:
	default:
		// Queue full - should never happen, indicates bug
		p.logger.Error("Queue full when returning slot - possible leak",
			zap.Int("slot", slot),
			zap.Int("queue_len", len(p.queue)))
	}
	p.updateGauges()

	p.logger.Debug("Render slot released",
		zap.Int("slot", slot),
		zap.Int32("active_renders", p.activeRenders.Load()))
}

func (p *Pool) updateGauges() {
	if p.metricsCollector == nil {
		return
	}
	p.metricsCollector.UpdatePoolSize(p.poolSize)
	p.metricsCollector.UpdatePoolAvailable(len(p.queue))
}

// GetStats returns current pool statistics
func (p *Pool) GetStats() PoolStats {
	return PoolStats{
		TotalSlots:     p.poolSize,
		AvailableSlots: len(p.queue),
		ActiveRenders:  int(p.activeRenders.Load()),
		TotalRenders:   p.totalRenders.Load(),
		TotalRejected:  p.totalRejected.Load(),
		ShuttingDown:   p.ctx.Err() != nil,
		Uptime:         time.Since(p.createdAt),
	}
}

// PoolSize returns the number of render slots
func (p *Pool) PoolSize() int {
	return p.poolSize
}

// AvailableSlots returns the number of free slots
func (p *Pool) AvailableSlots() int {
	return len(p.queue)
}

// Shutdown stops accepting renders and waits up to the configured timeout for active ones
func (p *Pool) Shutdown() error {
	return p.ShutdownWithTimeout(p.config.ShutdownTimeout)
}

// ShutdownWithTimeout stops accepting renders, waits for active renders to finish,
// then closes the sessions of any render still running
func (p *Pool) ShutdownWithTimeout(timeout time.Duration) error {
	p.logger.Info("Initiating render pool shutdown",
		zap.Duration("timeout", timeout),
		zap.Int32("active_renders", p.activeRenders.Load()))

	p.cancel()

	if p.waitForActiveRenders(timeout) {
		p.logger.Info("All active renders completed gracefully")
	} else {
		p.logger.Warn("Shutdown timeout exceeded, closing remaining sessions",
			zap.Int32("stuck_renders", p.activeRenders.Load()))
	}

	p.activeMu.Lock()
	stuck := make([]*pooledSession, 0, len(p.active))
	for _, ps := range p.active {
		stuck = append(stuck, ps)
	}
	p.activeMu.Unlock()

	var errs []error
	for _, ps := range stuck {
		if err := ps.Close(); err != nil {
			p.logger.Error("Error closing session",
				zap.Int("slot", ps.slot),
				zap.Error(err))
			errs = append(errs, err)
		}
	}

	stats := p.GetStats()
	p.logger.Info("Render pool shut down",
		zap.Int64("total_renders", stats.TotalRenders),
		zap.Int64("total_rejected", stats.TotalRejected),
		zap.Duration("uptime", stats.Uptime))

	if len(errs) > 0 {
		return fmt.Errorf("encountered %d errors during shutdown: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// waitForActiveRenders returns true if all renders completed before timeout
func (p *Pool) waitForActiveRenders(timeout time.Duration) bool {
	deadline := time.Now().UTC().Add(timeout)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if p.activeRenders.Load() == 0 {
			return true
		}

		<-ticker.C
		if time.Now().UTC().After(deadline) {
			return false
		}
	}
}

// pooledSession returns its slot when closed
type pooledSession struct {
	snapshot.Session
	pool *Pool
	slot int

	once     sync.Once
	closeErr error
}

func (s *pooledSession) Close() error {
	s.once.Do(func() {
		s.closeErr = s.Session.Close()
		s.pool.release(s.slot)
	})
	return s.closeErr
}
