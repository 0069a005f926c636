package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Manager keeps a Config current against an optional JSON override file.
// Chunking budgets and DI limits are the tunables operators change at runtime;
// a reload replaces the whole Ingest/Metadata sections.
type Manager struct {
	config       *Config
	watchers     []ConfigWatcher
	mu           sync.RWMutex
	overridePath string
	fileWatcher  *fsnotify.Watcher
	stopChan     chan struct{}
}

// ConfigWatcher is called when configuration changes
type ConfigWatcher func(oldConfig, newConfig *Config) error

// overrideFile is the on-disk shape of the reloadable sections
type overrideFile struct {
	Ingest   *IngestConfig   `json:"ingest,omitempty"`
	Metadata *MetadataConfig `json:"metadata,omitempty"`
}

// NewManager creates a manager seeded from the environment
func NewManager() *Manager {
	return &Manager{
		config:   Load(),
		stopChan: make(chan struct{}),
	}
}

// LoadOverrides applies the JSON override file on top of the env config
func (m *Manager) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read override file %s: %w", path, err)
	}

	var overrides overrideFile
	if err := json.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("failed to parse override file %s: %w", path, err)
	}

	m.mu.Lock()
	if overrides.Ingest != nil {
		m.config.Ingest = *overrides.Ingest
	}
	if overrides.Metadata != nil {
		m.config.Metadata = *overrides.Metadata
	}
	m.overridePath = path
	m.mu.Unlock()

	m.mu.RLock()
	err = m.config.Validate()
	m.mu.RUnlock()
	return err
}

// StartWatching reloads the override file whenever it changes
func (m *Manager) StartWatching() error {
	if m.overridePath == "" {
		return nil
	}

	var err error
	m.fileWatcher, err = fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := m.fileWatcher.Add(m.overridePath); err != nil {
		return fmt.Errorf("failed to watch %s: %w", m.overridePath, err)
	}

	go m.watchLoop()
	return nil
}

// StopWatching stops the file watcher
func (m *Manager) StopWatching() {
	if m.fileWatcher != nil {
		close(m.stopChan)
		m.fileWatcher.Close()
	}
}

// AddWatcher registers a configuration change callback
func (m *Manager) AddWatcher(watcher ConfigWatcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchers = append(m.watchers, watcher)
}

// GetConfig returns a copy of the current configuration
func (m *Manager) GetConfig() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	configCopy := *m.config
	return &configCopy
}

func (m *Manager) watchLoop() {
	for {
		select {
		case event, ok := <-m.fileWatcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write == fsnotify.Write {
				// Let the writer finish before re-reading
				time.Sleep(100 * time.Millisecond)
				oldConfig := m.GetConfig()
				if err := m.LoadOverrides(m.overridePath); err != nil {
					fmt.Fprintf(os.Stderr, "failed to reload config overrides: %v\n", err)
					continue
				}
				newConfig := m.GetConfig()
				m.notifyWatchers(oldConfig, newConfig)
			}
		case _, ok := <-m.fileWatcher.Errors:
			if !ok {
				return
			}
		case <-m.stopChan:
			return
		}
	}
}

func (m *Manager) notifyWatchers(oldConfig, newConfig *Config) {
	m.mu.RLock()
	watchers := m.watchers
	m.mu.RUnlock()

	for _, watcher := range watchers {
		if err := watcher(oldConfig, newConfig); err != nil {
			fmt.Fprintf(os.Stderr, "config watcher failed: %v\n", err)
		}
	}
}
