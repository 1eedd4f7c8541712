package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MrSnakeDoc/medic/internal/domain"
	"github.com/MrSnakeDoc/medic/internal/index"
	"github.com/MrSnakeDoc/medic/internal/logger"
)

// DefaultDebounce coalesces bursts of file events into one reload.
const DefaultDebounce = 500 * time.Millisecond

// TargetLoader produces a validated target set.
type TargetLoader interface {
	Load() ([]domain.ServiceTarget, error)
}

// LoaderFunc adapts a function to TargetLoader.
type LoaderFunc func() ([]domain.ServiceTarget, error)

func (f LoaderFunc) Load() ([]domain.ServiceTarget, error) { return f() }

// TargetsReloader keeps the target index in sync with its source: on an
// interval, on manual trigger and, when a file path is given, on change.
// A failed reload keeps the previous set.
type TargetsReloader struct {
	loader        TargetLoader
	index         *index.TargetIndex
	logger        logger.Logger
	interval      time.Duration
	watchPath     string
	debounce      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewTargetsReloader creates a new targets reloader. An empty watchPath
// disables file watching; a zero interval disables periodic reloads.
func NewTargetsReloader(
	loader TargetLoader,
	idx *index.TargetIndex,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
	watchPath string,
) *TargetsReloader {
	return &TargetsReloader{
		loader:        loader,
		index:         idx,
		logger:        log,
		interval:      interval,
		watchPath:     watchPath,
		debounce:      DefaultDebounce,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start loads once, failing if that load fails, then keeps reloading in the
// background.
func (tr *TargetsReloader) Start(ctx context.Context) error {
	// Load immediately on start
	if err := tr.Reload(ctx); err != nil {
		return fmt.Errorf("initial reload failed: %w", err)
	}

	var tick <-chan time.Time
	var ticker *time.Ticker
	if tr.interval > 0 {
		ticker = time.NewTicker(tr.interval)
		tick = ticker.C
	}

	changed, closeWatch := tr.watch(ctx)

	go func() {
		if ticker != nil {
			defer ticker.Stop()
		}
		defer closeWatch()
		for {
			select {
			case <-tick:
				tr.reloadLogged(ctx, "interval")
			case <-tr.manualTrigger:
				tr.logger.Info("manual reload triggered")
				tr.reloadLogged(ctx, "manual")
			case <-changed:
				tr.logger.Info("targets file changed", logger.String("path", tr.watchPath))
				tr.reloadLogged(ctx, "watch")
			case <-tr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader
func (tr *TargetsReloader) Stop() {
	close(tr.stopCh)
}

// Reload loads targets and replaces the index content
func (tr *TargetsReloader) Reload(ctx context.Context) error {
	targets, err := tr.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load targets: %w", err)
	}

	added, removed := diffNames(tr.index.All(), targets)
	tr.index.Update(targets)

	tr.logger.Info("targets loaded",
		logger.Int("count", len(targets)),
		logger.Strings("added", added),
		logger.Strings("removed", removed))
	return nil
}

func (tr *TargetsReloader) reloadLogged(ctx context.Context, reason string) {
	if err := tr.Reload(ctx); err != nil {
		tr.logger.Error("failed to reload targets, keeping previous set",
			logger.String("reason", reason),
			logger.Error(err))
	}
}

// watch starts an fsnotify watcher on the directory holding watchPath and
// returns a channel receiving one value per debounced change. Watching the
// directory survives editors that replace the file by rename.
func (tr *TargetsReloader) watch(ctx context.Context) (<-chan struct{}, func()) {
	noop := func() {}
	if tr.watchPath == "" {
		return nil, noop
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		tr.logger.Warn("targets file watching disabled", logger.Error(err))
		return nil, noop
	}
	dir := filepath.Dir(tr.watchPath)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		tr.logger.Warn("targets file watching disabled",
			logger.String("dir", dir),
			logger.Error(err))
		return nil, noop
	}

	changed := make(chan struct{}, 1)
	name := filepath.Base(tr.watchPath)
	var timer *time.Timer

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != name || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(tr.debounce, func() {
					select {
					case changed <- struct{}{}:
					default:
					}
				})
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				tr.logger.Warn("targets watcher error", logger.Error(err))
			case <-ctx.Done():
				return
			}
		}
	}()

	tr.logger.Info("watching targets file", logger.String("path", tr.watchPath))
	return changed, func() { _ = w.Close() }
}

func diffNames(before, after []domain.ServiceTarget) (added, removed []string) {
	old := make(map[string]bool, len(before))
	for _, t := range before {
		old[t.Name] = true
	}
	cur := make(map[string]bool, len(after))
	for _, t := range after {
		cur[t.Name] = true
		if !old[t.Name] {
			added = append(added, t.Name)
		}
	}
	for name := range old {
		if !cur[name] {
			removed = append(removed, name)
		}
	}
	sort.Strings(added)
	sort.Strings(removed)
	return added, removed
}
