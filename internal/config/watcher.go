package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"gridbalancer/internal/types"
)

// Watcher watches the configuration file and reloads on change.
// Subscribers decide what to apply live; components that cannot be
// retuned at runtime keep their startup values.
type Watcher struct {
	loader    *Loader
	logger    types.Logger
	callbacks []func(*types.Config)
	mu        sync.RWMutex
	watcher   *fsnotify.Watcher
	debounce  *time.Timer
	stopCh    chan struct{}
}

// NewWatcher creates a new configuration watcher
func NewWatcher(loader *Loader, logger types.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		loader:  loader,
		logger:  logger,
		watcher: fsWatcher,
		stopCh:  make(chan struct{}),
	}, nil
}

// Start starts watching for configuration changes
func (w *Watcher) Start(ctx context.Context) error {
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		w.logger.Debug("no config file in use, watcher disabled")
		return nil
	}

	if err := w.watcher.Add(configFile); err != nil {
		return fmt.Errorf("failed to watch config file: %w", err)
	}
	w.logger.Info("Watching configuration file", "file", configFile)

	go w.watch(ctx)
	return nil
}

// Stop stops the configuration watcher. An armed debounce timer is
// disarmed so no reload fires after Stop returns.
func (w *Watcher) Stop() error {
	close(w.stopCh)

	w.mu.Lock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.mu.Unlock()

	return w.watcher.Close()
}

// OnChange registers a callback for configuration changes
func (w *Watcher) OnChange(callback func(*types.Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

func (w *Watcher) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.armReload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

// armReload (re)starts the debounce timer. Editors fire several events
// per save; only the last one within the window triggers a reload.
func (w *Watcher) armReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(250*time.Millisecond, w.reload)
}

func (w *Watcher) reload() {
	// The timer can still fire while Stop is disarming it.
	select {
	case <-w.stopCh:
		return
	default:
	}

	cfg, err := w.loader.LoadConfig()
	if err != nil {
		w.logger.Error("config reload failed, keeping previous configuration", "error", err)
		return
	}

	w.logger.Info("configuration reloaded")

	w.mu.RLock()
	callbacks := make([]func(*types.Config), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()

	for _, callback := range callbacks {
		callback(cfg)
	}
}
