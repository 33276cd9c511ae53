package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestWatchSettings_ReloadsOnRewrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0600))

	settings, err := NewSettingsStore(path)
	require.NoError(t, err)

	w, err := WatchSettings(path, settings, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer w.Close()

	// Simulate another process doing an atomic replace.
	tmp := path + ".new"
	content := `{"group-1": {"reminder_rules": ["3d"]}}`
	require.NoError(t, os.WriteFile(tmp, []byte(content), 0600))
	require.NoError(t, os.Rename(tmp, path))

	require.Eventually(t, func() bool {
		return len(settings.Get("group-1").ReminderRules) == 1
	}, 3*time.Second, 10*time.Millisecond)
}

func TestWatchSettings_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0600))

	settings, err := NewSettingsStore(path)
	require.NoError(t, err)

	w, err := WatchSettings(path, settings, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer w.Close()

	other := filepath.Join(dir, "groups.json")
	require.NoError(t, os.WriteFile(other, []byte(`{"group-1": {"name": "X", "tasks": []}}`), 0600))

	// Give the watcher a beat; settings must stay untouched.
	time.Sleep(100 * time.Millisecond)
	require.Empty(t, settings.Get("group-1").ReminderRules)
}
