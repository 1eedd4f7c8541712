package index

import (
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/medic/internal/domain"
)

// TargetIndex holds the current set of service targets in memory.
// Readers always see a complete set: updates replace it atomically.
type TargetIndex struct {
	mu         sync.RWMutex
	targets    map[string]domain.ServiceTarget // Name -> target
	fallback   string                          // Target used when an alert names none
	lastReload time.Time                       // Timestamp of last reload
	generation uint64                          // Incremented on every reload
}

// NewTargetIndex creates an empty index. fallback names the target used by
// Default; it may be empty.
func NewTargetIndex(fallback string) *TargetIndex {
	return &TargetIndex{
		targets:  make(map[string]domain.ServiceTarget),
		fallback: fallback,
	}
}

// Update replaces all targets in the index
func (idx *TargetIndex) Update(targets []domain.ServiceTarget) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	// Clear and rebuild
	idx.targets = make(map[string]domain.ServiceTarget, len(targets))
	for _, t := range targets {
		idx.targets[t.Name] = t
	}
	idx.lastReload = time.Now()
	idx.generation++
}

// Get retrieves a target by name
func (idx *TargetIndex) Get(name string) (domain.ServiceTarget, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	t, ok := idx.targets[name]
	return t, ok
}

// Default returns the fallback target, or the only target when exactly one
// is loaded.
func (idx *TargetIndex) Default() (domain.ServiceTarget, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if t, ok := idx.targets[idx.fallback]; ok {
		return t, true
	}
	if len(idx.targets) == 1 {
		for _, t := range idx.targets {
			return t, true
		}
	}
	return domain.ServiceTarget{}, false
}

// All returns every target sorted by name
func (idx *TargetIndex) All() []domain.ServiceTarget {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]domain.ServiceTarget, 0, len(idx.targets))
	for _, t := range idx.targets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count returns the number of targets in the index
func (idx *TargetIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.targets)
}

// LastReload returns the timestamp of the last reload
func (idx *TargetIndex) LastReload() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastReload
}

// Generation returns how many times the index was reloaded
func (idx *TargetIndex) Generation() uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.generation
}
