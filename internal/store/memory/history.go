// Package memory keeps run history in process memory. It is the fallback
// when Redis is not configured.
package memory

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/medic/internal/domain"
	"github.com/MrSnakeDoc/medic/internal/store"
)

// DefaultLimit bounds the number of retained runs.
const DefaultLimit = 200

// History is a bounded, insertion-ordered run store.
type History struct {
	mu      sync.RWMutex
	limit   int
	records map[string]domain.RunRecord // ID -> record
	order   []string                    // IDs, oldest first
}

var _ store.History = (*History)(nil)

// NewHistory creates a store retaining at most limit runs.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{
		limit:   limit,
		records: make(map[string]domain.RunRecord, limit),
	}
}

// Save inserts or updates a record. Updates keep the original position.
func (h *History) Save(_ context.Context, rec domain.RunRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.records[rec.ID]; !ok {
		h.order = append(h.order, rec.ID)
	}
	h.records[rec.ID] = rec

	// Evict oldest
	for len(h.order) > h.limit {
		delete(h.records, h.order[0])
		h.order = h.order[1:]
	}
	return nil
}

// Get retrieves a run by ID
func (h *History) Get(_ context.Context, id string) (domain.RunRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rec, ok := h.records[id]
	if !ok {
		return domain.RunRecord{}, domain.ErrRunNotFound
	}
	return rec, nil
}

// Recent returns up to limit runs, newest first.
func (h *History) Recent(_ context.Context, target string, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = store.DefaultRecentLimit
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]domain.RunRecord, 0, min(limit, len(h.order)))
	for i := len(h.order) - 1; i >= 0 && len(out) < limit; i-- {
		rec := h.records[h.order[i]]
		if target != "" && rec.Target != target {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Count returns the number of retained runs
func (h *History) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.order)
}
