package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/MrSnakeDoc/medic/internal/domain"
)

func TestHistorySaveGet(t *testing.T) {
	h := NewHistory(10)
	ctx := context.Background()

	rec := domain.RunRecord{ID: "r1", Target: "webapp", Status: domain.RunQueued}
	if err := h.Save(ctx, rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	rec.Status = domain.RunDone
	if err := h.Save(ctx, rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := h.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != domain.RunDone {
		t.Errorf("Get() status = %v, want %v", got.Status, domain.RunDone)
	}
	if h.Count() != 1 {
		t.Errorf("Count() = %d, want 1 after update", h.Count())
	}
}

func TestHistoryGetUnknown(t *testing.T) {
	h := NewHistory(10)
	if _, err := h.Get(context.Background(), "nope"); err != domain.ErrRunNotFound {
		t.Errorf("Get() error = %v, want ErrRunNotFound", err)
	}
}

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(3)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_ = h.Save(ctx, domain.RunRecord{ID: fmt.Sprintf("r%d", i), Target: "webapp"})
	}

	if h.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", h.Count())
	}
	if _, err := h.Get(ctx, "r2"); err != domain.ErrRunNotFound {
		t.Errorf("r2 should have been evicted")
	}
	if _, err := h.Get(ctx, "r5"); err != nil {
		t.Errorf("r5 should be retained: %v", err)
	}
}

func TestHistoryRecent(t *testing.T) {
	h := NewHistory(10)
	ctx := context.Background()

	_ = h.Save(ctx, domain.RunRecord{ID: "a1", Target: "api"})
	_ = h.Save(ctx, domain.RunRecord{ID: "w1", Target: "webapp"})
	_ = h.Save(ctx, domain.RunRecord{ID: "w2", Target: "webapp"})
	_ = h.Save(ctx, domain.RunRecord{ID: "w3", Target: "webapp"})

	tests := []struct {
		name   string
		target string
		limit  int
		want   []string
	}{
		{"all targets", "", 10, []string{"w3", "w2", "w1", "a1"}},
		{"one target", "webapp", 2, []string{"w3", "w2"}},
		{"other target", "api", 5, []string{"a1"}},
		{"unknown target", "db", 5, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.Recent(ctx, tt.target, tt.limit)
			if err != nil {
				t.Fatalf("Recent() error = %v", err)
			}
			ids := make([]string, 0, len(got))
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			if fmt.Sprint(ids) != fmt.Sprint(tt.want) {
				t.Errorf("Recent() = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestHistoryConcurrentAccess(t *testing.T) {
	h := NewHistory(50)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_ = h.Save(ctx, domain.RunRecord{ID: fmt.Sprintf("r%d", i), Target: "webapp"})
		}(i)
		go func() {
			defer wg.Done()
			_, _ = h.Recent(ctx, "webapp", 5)
		}()
	}
	wg.Wait()

	if h.Count() != 20 {
		t.Errorf("Count() = %d, want 20", h.Count())
	}
}
