package service

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/keywatch/keywatch/internal/conf"
	"github.com/keywatch/keywatch/internal/matching"
)

// ConfigWatcher hot-reloads the matching config file. A malformed file is
// a ConfigurationError: it is logged and the last-known-good tables stay
// installed; detection never sees a half-applied config.
type ConfigWatcher struct {
	path    string
	engine  *matching.Engine
	log     *zap.Logger
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewConfigWatcher creates a watcher for the given matching config path.
func NewConfigWatcher(path string, engine *matching.Engine, log *zap.Logger) *ConfigWatcher {
	return &ConfigWatcher{path: path, engine: engine, log: log}
}

// Start begins watching. Watching the directory instead of the file keeps
// the watch alive across editors that replace the file on save.
func (w *ConfigWatcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		watcher.Close()
		return err
	}
	w.watcher = watcher

	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.loop(ctx)
	w.log.Info("watching matching config", zap.String("path", w.path))
	return nil
}

// Stop ends the watch and waits for the loop to exit.
func (w *ConfigWatcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.watcher != nil {
		w.watcher.Close()
	}
	w.wg.Wait()
}

func (w *ConfigWatcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Name != w.path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watch error", zap.Error(err))
		}
	}
}

func (w *ConfigWatcher) reload() {
	cfg, err := conf.LoadMatchingConfig(w.path)
	if err != nil {
		w.log.Error("matching config reload failed, keeping last known good", zap.Error(err))
		return
	}
	if err := w.engine.SetConfig(cfg); err != nil {
		w.log.Error("matching config rejected, keeping last known good", zap.Error(err))
		return
	}
	w.log.Info("matching config reloaded", zap.String("path", w.path))
}
