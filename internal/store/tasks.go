package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kelasbot/remindd/internal/deadline"
)

// Errors for task store operations.
var (
	ErrGroupNotFound = errors.New("group not found")
	ErrTaskNotFound  = errors.New("task not found")
)

// TaskStore is the file-backed group/task snapshot plus the reminder state
// store: which reminder tiers have fired for which task is persisted inline
// with the task records, so one successful Save covers both.
type TaskStore struct {
	mu       sync.RWMutex
	filePath string
	data     map[string]*Group
}

// NewTaskStore loads (or initializes) the task snapshot at filePath.
// Legacy task records without an ID are assigned one on load; the assignment
// is persisted on the next save.
func NewTaskStore(filePath string) (*TaskStore, error) {
	s := &TaskStore{
		filePath: filePath,
		data:     make(map[string]*Group),
	}
	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load task store: %w", err)
	}
	return s, nil
}

// EnsureGroup returns the group for chatID, creating it with the given
// display name on first access.
func (s *TaskStore) EnsureGroup(chatID, name string) *Group {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g, ok := s.data[chatID]; ok {
		return g
	}
	g := &Group{Name: name, Tasks: []*Task{}}
	s.data[chatID] = g
	return g
}

// Group returns the group for chatID.
func (s *TaskStore) Group(chatID string) (*Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.data[chatID]
	if !ok {
		return nil, ErrGroupNotFound
	}
	return g, nil
}

// GroupIDs returns all tracked chat IDs in a stable order.
func (s *TaskStore) GroupIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AddTask appends a task to the group, assigning it a fresh ID, and saves.
func (s *TaskStore) AddTask(chatID string, task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.data[chatID]
	if !ok {
		return ErrGroupNotFound
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	g.Tasks = append(g.Tasks, task)
	return s.save()
}

// EditTask applies mutate to the identified task and saves. Editing clears
// the task's fired-tier record so reminders re-arm against the new deadline.
func (s *TaskStore) EditTask(chatID, taskID string, mutate func(*Task)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.find(chatID, taskID)
	if err != nil {
		return err
	}
	mutate(t)
	t.ReminderState = nil
	return s.save()
}

// MarkDone flags the task as done, removing it from reminder consideration
// and from default listings.
func (s *TaskStore) MarkDone(chatID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.find(chatID, taskID)
	if err != nil {
		return err
	}
	t.Done = true
	return s.save()
}

// DeleteTask removes the task outright and saves.
func (s *TaskStore) DeleteTask(chatID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.data[chatID]
	if !ok {
		return ErrGroupNotFound
	}
	for i, t := range g.Tasks {
		if t.ID == taskID {
			g.Tasks = append(g.Tasks[:i], g.Tasks[i+1:]...)
			return s.save()
		}
	}
	return ErrTaskNotFound
}

// RemoveTask detaches the task from its group without saving, returning it
// for hand-off to the archive store. The caller is responsible for saving.
func (s *TaskStore) RemoveTask(chatID, taskID string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.data[chatID]
	if !ok {
		return nil, ErrGroupNotFound
	}
	for i, t := range g.Tasks {
		if t.ID == taskID {
			g.Tasks = append(g.Tasks[:i], g.Tasks[i+1:]...)
			return t, nil
		}
	}
	return nil, ErrTaskNotFound
}

// ActiveTasks returns the group's non-done tasks.
func (s *TaskStore) ActiveTasks(chatID string) []*Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.data[chatID]
	if !ok {
		return nil
	}
	var active []*Task
	for _, t := range g.Tasks {
		if !t.Done {
			active = append(active, t)
		}
	}
	return active
}

// SortedTasks returns the group's non-done tasks ordered by resolved
// deadline, nearest first. Tasks with unparseable deadlines sort last.
func (s *TaskStore) SortedTasks(chatID string, now time.Time, loc *time.Location) []*Task {
	tasks := s.ActiveTasks(chatID)
	sort.SliceStable(tasks, func(i, j int) bool {
		di, erri := deadline.ParseValue(tasks[i].Deadline, now, loc)
		dj, errj := deadline.ParseValue(tasks[j].Deadline, now, loc)
		if erri != nil {
			return false
		}
		if errj != nil {
			return true
		}
		return di.Before(dj)
	})
	return tasks
}

// MarkFired records that the given reminder tier was sent for the task at
// the given instant. It does not save; the scan loop saves once per firing
// so the tier cannot be re-sent after a restart that follows a successful
// save.
func (s *TaskStore) MarkFired(chatID, taskID, ruleKey string, when time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.find(chatID, taskID)
	if err != nil {
		return err
	}
	if t.ReminderState == nil {
		t.ReminderState = make(map[string]string)
	}
	t.ReminderState[ruleKey] = when.Format(time.RFC3339)
	return nil
}

// Save persists the current snapshot atomically.
func (s *TaskStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// find locates a task by ID within a group. Callers hold s.mu.
func (s *TaskStore) find(chatID, taskID string) (*Task, error) {
	g, ok := s.data[chatID]
	if !ok {
		return nil, ErrGroupNotFound
	}
	for _, t := range g.Tasks {
		if t.ID == taskID {
			return t, nil
		}
	}
	return nil, ErrTaskNotFound
}

// load reads the snapshot from disk and assigns IDs to legacy records.
func (s *TaskStore) load() error {
	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}
	var data map[string]*Group
	if err := json.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("task snapshot corrupted: %w", err)
	}
	for _, g := range data {
		if g.Tasks == nil {
			g.Tasks = []*Task{}
		}
		for _, t := range g.Tasks {
			if t.ID == "" {
				t.ID = uuid.New().String()
			}
		}
	}
	s.data = data
	return nil
}

// save writes the snapshot atomically. Callers hold s.mu.
func (s *TaskStore) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal task snapshot: %w", err)
	}

	tmpPath := s.filePath + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0600); err != nil {
		return fmt.Errorf("failed to write task snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename task snapshot: %w", err)
	}
	return nil
}
