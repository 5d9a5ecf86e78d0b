package courtstatus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/codr1/courtside/internal/models"
)

const maxConcurrentRefreshes = 4

// Manager owns one Poller per court, all built from the same configuration.
type Manager struct {
	cfg PollerConfig

	mu      sync.RWMutex
	pollers map[int64]*Poller
}

func NewManager(cfg PollerConfig) *Manager {
	return &Manager{
		cfg:     cfg,
		pollers: make(map[int64]*Poller),
	}
}

// Add registers a court, returning the existing poller if one is already present.
func (m *Manager) Add(court models.Court) *Poller {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.pollers[court.ID]; ok {
		return existing
	}
	p := NewPoller(court, m.cfg)
	m.pollers[court.ID] = p
	return p
}

func (m *Manager) Poller(courtID int64) (*Poller, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pollers[courtID]
	return p, ok
}

// Courts lists managed courts ordered by court number.
func (m *Manager) Courts() []models.Court {
	pollers := m.snapshot()
	courts := make([]models.Court, 0, len(pollers))
	for _, p := range pollers {
		courts = append(courts, p.Court())
	}
	return courts
}

func (m *Manager) StartAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRefreshes)
	for _, p := range m.snapshot() {
		g.Go(func() error {
			return p.Start(ctx)
		})
	}
	return g.Wait()
}

// Refresh refreshes a single court; ok is false if the court is not managed.
func (m *Manager) Refresh(ctx context.Context, courtID int64) (DerivedStatus, bool) {
	p, ok := m.Poller(courtID)
	if !ok {
		return DerivedStatus{}, false
	}
	return p.Refresh(ctx), true
}

func (m *Manager) RefreshAll(ctx context.Context) map[int64]DerivedStatus {
	pollers := m.snapshot()

	var mu sync.Mutex
	results := make(map[int64]DerivedStatus, len(pollers))

	var g errgroup.Group
	g.SetLimit(maxConcurrentRefreshes)
	for _, p := range pollers {
		g.Go(func() error {
			status := p.Refresh(ctx)
			mu.Lock()
			results[p.Court().ID] = status
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (m *Manager) StopAll() error {
	var errs []error
	for _, p := range m.snapshot() {
		if err := p.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) Close() error {
	var errs []error
	for _, p := range m.snapshot() {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close court %d poller: %w", p.Court().ID, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) snapshot() []*Poller {
	m.mu.RLock()
	pollers := make([]*Poller, 0, len(m.pollers))
	for _, p := range m.pollers {
		pollers = append(pollers, p)
	}
	m.mu.RUnlock()

	sort.Slice(pollers, func(i, j int) bool {
		a, b := pollers[i].Court(), pollers[j].Court()
		if a.CourtNumber != b.CourtNumber {
			return a.CourtNumber < b.CourtNumber
		}
		return a.ID < b.ID
	})
	return pollers
}
