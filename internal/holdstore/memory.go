package holdstore

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/clock"
	"github.com/EvgenyLat/whatsapp-saas-sub010/internal/domain"
)

// Memory is a process-local hold store guarded by a single mutex. Hold
// volumes are small (one pending hold per customer), so a coarse lock is
// enough.
type Memory struct {
	mu    sync.Mutex
	holds map[domain.HoldKey]domain.Hold

	clock clock.Clock
	ttl   time.Duration
}

type MemoryOption func(*Memory)

// WithTTL overrides the default hold TTL.
func WithTTL(d time.Duration) MemoryOption {
	return func(m *Memory) {
		if d > 0 {
			m.ttl = d
		}
	}
}

func NewMemory(clk clock.Clock, opts ...MemoryOption) *Memory {
	m := &Memory{
		holds: make(map[domain.HoldKey]domain.Hold),
		clock: clk,
		ttl:   DefaultTTL,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) Put(_ context.Context, hold domain.Hold) (domain.Hold, error) {
	now := m.clock.Now()
	hold.CreatedAt = now
	hold.ExpiresAt = now.Add(m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.holds[hold.Key()] = hold
	return hold, nil
}

func (m *Memory) Get(_ context.Context, key domain.HoldKey) (domain.Hold, bool, error) {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	hold, ok := m.holds[key]
	if !ok {
		return domain.Hold{}, false, nil
	}
	if !hold.ExpiresAt.After(now) {
		// Lazy eviction: an expired hold is already absent.
		delete(m.holds, key)
		return domain.Hold{}, false, nil
	}
	return hold, true, nil
}

func (m *Memory) Remove(_ context.Context, key domain.HoldKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.holds, key)
	return nil
}

// Sweep evicts all expired holds and returns how many were removed.
func (m *Memory) Sweep(_ context.Context) (int, error) {
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, hold := range m.holds {
		if !hold.ExpiresAt.After(now) {
			delete(m.holds, key)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of stored holds, expired or not. Used by tests and
// the sweeper log line.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.holds)
}

// RunSweeper sweeps the store every interval until ctx is cancelled.
func RunSweeper(ctx context.Context, store Store, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("hold sweeper started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			logger.Info("hold sweeper stopped")
			return
		case <-ticker.C:
			removed, err := store.Sweep(ctx)
			if err != nil {
				logger.Warn("hold sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Info("expired holds evicted", zap.Int("count", removed))
			}
		}
	}
}
