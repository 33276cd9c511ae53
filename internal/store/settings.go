package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// SettingsStore is the file-backed per-group settings snapshot. The scan
// loop re-reads it at the start of each sweep so admin changes take effect
// without a restart.
type SettingsStore struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]*Settings
}

// NewSettingsStore loads (or initializes) the settings snapshot at filePath.
func NewSettingsStore(filePath string) (*SettingsStore, error) {
	s := &SettingsStore{
		filePath: filePath,
		data:     make(map[string]*Settings),
	}
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load settings store: %w", err)
	}
	return s, nil
}

// Get returns the settings for chatID, or zero-value settings when the
// group has none recorded.
func (s *SettingsStore) Get(chatID string) Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if cfg, ok := s.data[chatID]; ok {
		return *cfg
	}
	return Settings{}
}

// Update applies mutate to the group's settings and persists the snapshot.
func (s *SettingsStore) Update(chatID string, mutate func(*Settings)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, ok := s.data[chatID]
	if !ok {
		cfg = &Settings{}
		s.data[chatID] = cfg
	}
	mutate(cfg)
	return s.save()
}

// Reload re-reads the snapshot from disk, picking up edits made by another
// process. A missing file leaves the current snapshot in place.
func (s *SettingsStore) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// load reads the snapshot from disk. Callers hold s.mu.
func (s *SettingsStore) load() error {
	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}
	var data map[string]*Settings
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("settings snapshot corrupted: %w", err)
	}
	if data == nil {
		data = make(map[string]*Settings)
	}
	s.data = data
	return nil
}

// save writes the snapshot atomically. Callers hold s.mu.
func (s *SettingsStore) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings snapshot: %w", err)
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0600); err != nil {
		return fmt.Errorf("failed to write settings snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename settings snapshot: %w", err)
	}
	return nil
}
