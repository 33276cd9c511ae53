package reminder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kelasbot/remindd/internal/store"
)

func TestFormatTimeLeft(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{2*24*time.Hour + 3*time.Hour + 15*time.Minute, "2h 3j 15m"},
		{3*time.Hour + 15*time.Minute, "3j 15m"},
		{45 * time.Minute, "45m"},
		{30 * time.Second, "0m"},
		{-time.Hour, "Lewat deadline"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTimeLeft(tt.in))
	}
}

func TestBuildReminderText_UrgentTone(t *testing.T) {
	task := &store.Task{
		Name:        "Laporan Praktikum",
		Course:      "Fisika Dasar",
		Description: "Bab 3",
		SubmitVia:   "LMS",
		Deadline:    "10/3/25 18:00",
	}
	text := BuildReminderText(task, Rule{Key: "3h", Label: "3 jam", Lead: 3 * time.Hour}, 3*time.Hour)
	assert.Contains(t, text, "URGENT")
	assert.Contains(t, text, "Laporan Praktikum")
	assert.Contains(t, text, "Fisika Dasar")
	assert.Contains(t, text, "LMS")
}

func TestBuildReminderText_DailyTone(t *testing.T) {
	task := &store.Task{Name: "Esai", Deadline: "10/3/25"}
	text := BuildReminderText(task, Rule{Key: "3d", Label: "3 hari", Lead: 72 * time.Hour}, 72*time.Hour)
	assert.NotContains(t, text, "URGENT")
	assert.Contains(t, text, "3 hari")
	assert.Contains(t, text, "10/3/25", "display uses the raw deadline value")
}

func TestBuildTaskListText(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, wib)
	near := &store.Task{Name: "near", Deadline: now.Add(2 * time.Hour).Format(time.RFC3339)}
	mid := &store.Task{Name: "mid", Deadline: now.Add(48 * time.Hour).Format(time.RFC3339)}
	far := &store.Task{Name: "far", Deadline: now.Add(10 * 24 * time.Hour).Format(time.RFC3339)}

	resolve := func(task *store.Task) (time.Time, error) {
		return time.Parse(time.RFC3339, task.Deadline.(string))
	}

	text := BuildTaskListText([]*store.Task{near, mid, far}, now, resolve)
	assert.Contains(t, text, "🔴")
	assert.Contains(t, text, "🟡")
	assert.Contains(t, text, "🟢")
	assert.Contains(t, text, "NEAR")

	empty := BuildTaskListText(nil, now, resolve)
	assert.Contains(t, empty, "Tidak ada tugas")
}
