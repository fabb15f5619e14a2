// Package operation provides label-scoped operation preemption: starting
// a new operation under a label cancels whatever operation is currently
// running under that same label. The supervisor uses a single label for
// all move requests, so a fresh Move always preempts one in flight rather
// than queuing behind it.
package operation

import (
	"context"
	"sync"
)

// Manager tracks the single active operation per label.
type Manager struct {
	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{active: map[string]context.CancelFunc{}}
}

// CancelOtherWithLabel cancels whatever operation is currently registered
// under label, then registers and returns a new context derived from ctx
// that becomes the label's active operation. The returned context is
// canceled either by ctx itself or by a later call to
// CancelOtherWithLabel with the same label.
func (m *Manager) CancelOtherWithLabel(ctx context.Context, label string) context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cancel, ok := m.active[label]; ok {
		cancel()
	}

	opCtx, cancel := context.WithCancel(ctx)
	m.active[label] = cancel
	return opCtx
}

// Done clears label's active-operation slot once the operation that
// registered it has finished on its own, so a future CancelOtherWithLabel
// for the same label doesn't cancel a context nobody holds anymore.
func (m *Manager) Done(label string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, label)
}
