package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ReloadCallback is invoked after a successful reload with the old and new
// configuration. A callback error is logged but does not roll back the
// reload.
type ReloadCallback func(oldCfg, newCfg *Config) error

// Reloader watches the config file and swaps in a freshly parsed Config when
// it changes. Used by long-running serve mode; one-shot invocations read the
// file once and never construct one.
type Reloader struct {
	mu         sync.RWMutex
	cfg        *Config
	configPath string
	watcher    *fsnotify.Watcher
	callbacks  []ReloadCallback
	stopChan   chan struct{}
	log        *zap.Logger
}

// NewReloader creates a reloader for an existing config file. The directory
// is watched rather than the file itself, because editors replace files by
// rename.
func NewReloader(cfg *Config, configPath string, log *zap.Logger) (*Reloader, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}
	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", absPath)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch config directory: %w", err)
	}

	if log == nil {
		log = zap.NewNop()
	}
	return &Reloader{
		cfg:        cfg,
		configPath: absPath,
		watcher:    watcher,
		stopChan:   make(chan struct{}),
		log:        log,
	}, nil
}

// OnReload registers a callback to run after each successful reload.
func (r *Reloader) OnReload(cb ReloadCallback) {
	r.mu.Lock()
	r.callbacks = append(r.callbacks, cb)
	r.mu.Unlock()
}

// Current returns the most recently loaded configuration.
func (r *Reloader) Current() *Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// Start launches the watch loop.
func (r *Reloader) Start() {
	go r.watchLoop()
}

// Stop shuts the watcher down.
func (r *Reloader) Stop() error {
	close(r.stopChan)
	return r.watcher.Close()
}

func (r *Reloader) watchLoop() {
	for {
		select {
		case <-r.stopChan:
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != r.configPath {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := r.reload(); err != nil {
				r.log.Warn("config reload failed", zap.Error(err))
			} else {
				r.log.Info("config reloaded", zap.String("path", r.configPath))
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.log.Warn("config watcher error", zap.Error(err))
		}
	}
}

func (r *Reloader) reload() error {
	newCfg, err := Load(r.configPath)
	if err != nil {
		return err
	}

	r.mu.Lock()
	oldCfg := r.cfg
	r.cfg = newCfg
	callbacks := append([]ReloadCallback(nil), r.callbacks...)
	r.mu.Unlock()

	for _, cb := range callbacks {
		if err := cb(oldCfg, newCfg); err != nil {
			r.log.Warn("reload callback failed", zap.Error(err))
		}
	}
	return nil
}
