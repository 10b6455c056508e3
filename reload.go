package contracts

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/aswhitehouse/behavioural-contracts/internal/contract"
)

// SpecWatcher watches a contract spec file for changes and hot-swaps the
// spec on a running Enforcer. A spec that fails validation is rejected
// and the previous one stays active.
type SpecWatcher struct {
	watcher  *fsnotify.Watcher
	enforcer *Enforcer
	path     string
	lastHash string
	log      *zap.Logger
}

// NewSpecWatcher creates a file watcher for the given spec path.
func NewSpecWatcher(enforcer *Enforcer, path string) (*SpecWatcher, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("contracts: cannot watch spec: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("contracts: failed to create file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("contracts: failed to watch %q: %w", path, err)
	}

	return &SpecWatcher{
		watcher:  watcher,
		enforcer: enforcer,
		path:     path,
		log:      enforcer.log,
	}, nil
}

// Run watches for file changes and reloads the spec. Blocks until ctx is
// cancelled.
func (w *SpecWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	// Debounce: wait 500ms after the last write before reloading
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, w.reload)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("spec watcher error", zap.Error(err))
		}
	}
}

func (w *SpecWatcher) reload() {
	spec, hash, err := contract.LoadWithHash(w.path)
	if err != nil {
		w.log.Warn("spec hot-reload failed", zap.String("path", w.path), zap.Error(err))
		return
	}
	if hash == w.lastHash {
		return
	}
	if err := w.enforcer.SetSpec(spec); err != nil {
		w.log.Warn("spec hot-reload rejected", zap.String("path", w.path), zap.Error(err))
		return
	}
	w.lastHash = hash
	w.log.Info("spec hot-reloaded", zap.String("path", w.path), zap.String("hash", hash))
}
