package store

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// ArchiveStore holds tasks moved out of the active list. Archived tasks are
// excluded from reminder scanning and from default listings but remain
// available for review.
type ArchiveStore struct {
	mu       sync.RWMutex
	filePath string
	data     map[string][]*Task
}

// NewArchiveStore loads (or initializes) the archive snapshot at filePath.
func NewArchiveStore(filePath string) (*ArchiveStore, error) {
	s := &ArchiveStore{
		filePath: filePath,
		data:     make(map[string][]*Task),
	}
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load archive store: %w", err)
	}
	return s, nil
}

// Add appends a task to the group's archive and persists the snapshot.
func (s *ArchiveStore) Add(chatID string, task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[chatID] = append(s.data[chatID], task)
	return s.save()
}

// List returns the group's archived tasks.
func (s *ArchiveStore) List(chatID string) []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[chatID]
}

func (s *ArchiveStore) load() error {
	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}
	var data map[string][]*Task
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("archive snapshot corrupted: %w", err)
	}
	if data == nil {
		data = make(map[string][]*Task)
	}
	s.data = data
	return nil
}

func (s *ArchiveStore) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal archive snapshot: %w", err)
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0600); err != nil {
		return fmt.Errorf("failed to write archive snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename archive snapshot: %w", err)
	}
	return nil
}
