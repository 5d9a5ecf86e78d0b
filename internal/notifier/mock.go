package notifier

import (
	"context"
	"sync"
)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	NotifyStatusChangeFunc func(ctx context.Context, change StatusChange) error

	// Call records
	Changes []StatusChange
}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) NotifyStatusChange(ctx context.Context, change StatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Changes = append(m.Changes, change)
	if m.NotifyStatusChangeFunc != nil {
		return m.NotifyStatusChangeFunc(ctx, change)
	}
	return nil
}

// Calls returns a copy of the recorded changes.
func (m *Mock) Calls() []StatusChange {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]StatusChange(nil), m.Changes...)
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Changes = nil
}
