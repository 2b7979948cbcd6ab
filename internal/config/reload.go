// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	xglog "github.com/strmforge/mediapack/internal/log"
)

// Manager holds the live configuration and swaps it atomically when the
// file changes on disk. Readers call Current on every request; a reload
// never tears a config in half.
type Manager struct {
	path    string
	current atomic.Pointer[Config]
}

// NewManager loads the initial configuration.
func NewManager(path string) (*Manager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	m := &Manager{path: path}
	m.current.Store(&cfg)
	return m, nil
}

// Current returns the live configuration snapshot.
func (m *Manager) Current() Config {
	return *m.current.Load()
}

// Watch re-loads the file on change until ctx is cancelled. Invalid
// configurations are rejected and the previous one stays live.
func (m *Manager) Watch(ctx context.Context) error {
	if m.path == "" {
		<-ctx.Done()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()
	if err := watcher.Add(m.path); err != nil {
		return err
	}

	logger := xglog.WithComponent("config")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(m.path)
			if err != nil {
				logger.Error().Err(err).Msg("config reload rejected")
				continue
			}
			m.current.Store(&cfg)
			logger.Info().Str(xglog.FieldPath, m.path).Msg("configuration reloaded")
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("config watcher error")
		}
	}
}
