package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wib = time.FixedZone("WIB", 7*60*60)

func newTestTaskStore(t *testing.T) *TaskStore {
	t.Helper()
	s, err := NewTaskStore(filepath.Join(t.TempDir(), "groups.json"))
	require.NoError(t, err)
	return s
}

func TestTaskStore_EnsureGroupIsLazyAndIdempotent(t *testing.T) {
	s := newTestTaskStore(t)

	g := s.EnsureGroup("g1@chat", "Kelas A")
	assert.Equal(t, "Kelas A", g.Name)
	assert.Empty(t, g.Tasks)

	again := s.EnsureGroup("g1@chat", "other name ignored")
	assert.Same(t, g, again)
}

func TestTaskStore_AddAssignsID(t *testing.T) {
	s := newTestTaskStore(t)
	s.EnsureGroup("g1@chat", "Kelas A")

	task := &Task{Name: "Laporan", Course: "Fisika", Deadline: "10/3/25"}
	require.NoError(t, s.AddTask("g1@chat", task))
	assert.NotEmpty(t, task.ID)
}

func TestTaskStore_AddToUnknownGroup(t *testing.T) {
	s := newTestTaskStore(t)
	err := s.AddTask("nope", &Task{Name: "x"})
	assert.ErrorIs(t, err, ErrGroupNotFound)
}

func TestTaskStore_MarkFiredPersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.json")
	s, err := NewTaskStore(path)
	require.NoError(t, err)

	s.EnsureGroup("g1@chat", "Kelas A")
	task := &Task{Name: "Laporan", Deadline: "10/3/25"}
	require.NoError(t, s.AddTask("g1@chat", task))

	when := time.Date(2025, 3, 9, 8, 0, 0, 0, wib)
	require.NoError(t, s.MarkFired("g1@chat", task.ID, "1d", when))
	require.NoError(t, s.Save())

	// Simulated restart.
	reloaded, err := NewTaskStore(path)
	require.NoError(t, err)
	g, err := reloaded.Group("g1@chat")
	require.NoError(t, err)
	require.Len(t, g.Tasks, 1)
	assert.True(t, g.Tasks[0].TierFired("1d"))
	assert.False(t, g.Tasks[0].TierFired("6h"))
}

func TestTaskStore_LegacyRecordsGetIDsAndScanCleanly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.json")
	legacy := `{
	  "g1@chat": {
	    "name": "Kelas A",
	    "tasks": [{"name": "Tugas lama", "deadline": "10/3/25"}]
	  }
	}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0600))

	s, err := NewTaskStore(path)
	require.NoError(t, err)

	g, err := s.Group("g1@chat")
	require.NoError(t, err)
	require.Len(t, g.Tasks, 1)
	assert.NotEmpty(t, g.Tasks[0].ID, "legacy task should be assigned an ID on load")
	assert.False(t, g.Tasks[0].TierFired("1d"), "absent reminder state means nothing fired")
}

func TestTaskStore_EditClearsReminderState(t *testing.T) {
	s := newTestTaskStore(t)
	s.EnsureGroup("g1@chat", "Kelas A")
	task := &Task{Name: "Laporan", Deadline: "10/3/25"}
	require.NoError(t, s.AddTask("g1@chat", task))
	require.NoError(t, s.MarkFired("g1@chat", task.ID, "3d", time.Now()))

	require.NoError(t, s.EditTask("g1@chat", task.ID, func(t *Task) {
		t.Deadline = "20/3/25"
	}))

	g, err := s.Group("g1@chat")
	require.NoError(t, err)
	assert.False(t, g.Tasks[0].TierFired("3d"), "editing re-arms reminder tiers")
}

func TestTaskStore_MarkDoneExcludesFromActive(t *testing.T) {
	s := newTestTaskStore(t)
	s.EnsureGroup("g1@chat", "Kelas A")
	task := &Task{Name: "Laporan", Deadline: "10/3/25"}
	require.NoError(t, s.AddTask("g1@chat", task))

	require.NoError(t, s.MarkDone("g1@chat", task.ID))
	assert.Empty(t, s.ActiveTasks("g1@chat"))
}

func TestTaskStore_DeleteTask(t *testing.T) {
	s := newTestTaskStore(t)
	s.EnsureGroup("g1@chat", "Kelas A")
	task := &Task{Name: "Laporan", Deadline: "10/3/25"}
	require.NoError(t, s.AddTask("g1@chat", task))

	require.NoError(t, s.DeleteTask("g1@chat", task.ID))
	assert.ErrorIs(t, s.DeleteTask("g1@chat", task.ID), ErrTaskNotFound)
}

func TestTaskStore_SortedTasksNearestFirst(t *testing.T) {
	s := newTestTaskStore(t)
	s.EnsureGroup("g1@chat", "Kelas A")
	far := &Task{Name: "far", Deadline: "2025-04-01"}
	near := &Task{Name: "near", Deadline: "2025-03-05"}
	broken := &Task{Name: "broken", Deadline: "not a date"}
	require.NoError(t, s.AddTask("g1@chat", far))
	require.NoError(t, s.AddTask("g1@chat", broken))
	require.NoError(t, s.AddTask("g1@chat", near))

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, wib)
	sorted := s.SortedTasks("g1@chat", now, wib)
	require.Len(t, sorted, 3)
	assert.Equal(t, "near", sorted[0].Name)
	assert.Equal(t, "far", sorted[1].Name)
	assert.Equal(t, "broken", sorted[2].Name, "unparseable deadlines sort last")
}

func TestArchiveStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.json")
	a, err := NewArchiveStore(path)
	require.NoError(t, err)

	require.NoError(t, a.Add("g1@chat", &Task{ID: "t1", Name: "Selesai"}))

	reloaded, err := NewArchiveStore(path)
	require.NoError(t, err)
	require.Len(t, reloaded.List("g1@chat"), 1)
	assert.Equal(t, "Selesai", reloaded.List("g1@chat")[0].Name)
}

func TestSettingsStore_UpdateAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	s, err := NewSettingsStore(path)
	require.NoError(t, err)

	require.NoError(t, s.Update("g1@chat", func(cfg *Settings) {
		cfg.ReminderRules = []string{"3d", "1h"}
	}))

	other, err := NewSettingsStore(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"3d", "1h"}, other.Get("g1@chat").ReminderRules)

	// An out-of-process edit is picked up by Reload.
	require.NoError(t, other.Update("g1@chat", func(cfg *Settings) {
		cfg.ReminderSnoozeUntil = "2025-03-01T12:00:00+07:00"
	}))
	require.NoError(t, s.Reload())
	assert.Equal(t, "2025-03-01T12:00:00+07:00", s.Get("g1@chat").ReminderSnoozeUntil)
}

func TestSettingsStore_MissingGroupYieldsZeroValue(t *testing.T) {
	s, err := NewSettingsStore(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)
	cfg := s.Get("unknown")
	assert.Nil(t, cfg.ReminderRules)
	assert.Empty(t, cfg.ReminderSnoozeUntil)
}
