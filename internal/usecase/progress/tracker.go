// Package progress holds the latest run snapshot for concurrent readers.
package progress

import (
	"maps"
	"sync"

	"github.com/kailas-cloud/querygen/internal/domain"
)

// Tracker stores the most recent Progress. Safe for concurrent use.
type Tracker struct {
	mu       sync.RWMutex
	snapshot domain.Progress
	set      bool
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Publish replaces the current snapshot with a copy of p.
func (t *Tracker) Publish(p domain.Progress) {
	p.CategoriesDone = maps.Clone(p.CategoriesDone)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.snapshot = p
	t.set = true
}

// Snapshot returns a copy of the latest snapshot and whether one was published.
func (t *Tracker) Snapshot() (domain.Progress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p := t.snapshot
	p.CategoriesDone = maps.Clone(p.CategoriesDone)
	return p, t.set
}
