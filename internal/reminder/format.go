package reminder

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelasbot/remindd/internal/store"
)

// urgentLead is the threshold at or below which the reminder switches to the
// urgent tone.
const urgentLead = 12 * time.Hour

// FormatTimeLeft renders the remaining duration the way the bot speaks:
// "2h 3j 15m" (hari/jam/menit).
func FormatTimeLeft(remaining time.Duration) string {
	if remaining <= 0 {
		return "Lewat deadline"
	}
	mins := int(remaining.Minutes())
	days := mins / (60 * 24)
	hours := (mins % (60 * 24)) / 60
	minutes := mins % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dj", hours))
	}
	parts = append(parts, fmt.Sprintf("%dm", minutes))
	return strings.Join(parts, " ")
}

// BuildReminderText builds the notification for one task hitting one tier.
// Tiers with short leads use the urgent tone, longer leads the daily one.
func BuildReminderText(task *store.Task, rule Rule, remaining time.Duration) string {
	course := task.Course
	if course == "" {
		course = "-"
	}
	detail := task.Description
	if detail == "" {
		detail = "-"
	}

	if rule.Lead <= urgentLead {
		return fmt.Sprintf(
			"🚨 *REMINDER URGENT* 🚨\n\n"+
				"Deadline *%s* tinggal *%s lagi!*\n"+
				"📚 Matkul: *%s*\n"+
				"⏳ Sisa: %s\n"+
				"📝 Detail: %s\n"+
				"📮 Pengumpulan: %s\n\n"+
				"_Ayo kerjain sekarang!_",
			task.Name, rule.Label, course, FormatTimeLeft(remaining), detail,
			submitVia(task))
	}

	return fmt.Sprintf(
		"⏰ *Reminder Tugas*\n\n"+
			"Jangan lupa, deadline *%s* %s lagi:\n"+
			"📚 Matkul: *%s*\n"+
			"📅 Deadline: %s\n"+
			"📝 Detail: %s\n"+
			"📮 Pengumpulan: %s\n\n"+
			"Dicicil ya biar nggak numpuk! 😉",
		task.Name, rule.Label, course, task.DeadlineText(), detail,
		submitVia(task))
}

// BuildTaskListText renders the group's active tasks sorted by deadline with
// an urgency marker per task.
func BuildTaskListText(tasks []*store.Task, now time.Time, resolve func(*store.Task) (time.Time, error)) string {
	if len(tasks) == 0 {
		return "🎉 *Tidak ada tugas!* Selamat bersantai."
	}

	var b strings.Builder
	b.WriteString("📋 *DAFTAR TUGAS KELAS*\n")
	for i, t := range tasks {
		marker := "🟢"
		sisa := "-"
		if dl, err := resolve(t); err == nil {
			remaining := dl.Sub(now)
			sisa = FormatTimeLeft(remaining)
			switch {
			case remaining <= 24*time.Hour:
				marker = "🔴"
			case remaining <= 3*24*time.Hour:
				marker = "🟡"
			}
		}
		fmt.Fprintf(&b, "\n*%d. %s* %s\n", i+1, strings.ToUpper(t.Name), marker)
		fmt.Fprintf(&b, "   📚 Matkul: %s\n", orDash(t.Course))
		fmt.Fprintf(&b, "   ⏰ Deadline: %s\n", t.DeadlineText())
		fmt.Fprintf(&b, "   ⏳ Sisa: %s\n", sisa)
		fmt.Fprintf(&b, "   📝 Detail: %s\n", orDash(t.Description))
		fmt.Fprintf(&b, "   📮 Pengumpulan: %s\n", submitVia(t))
	}
	b.WriteString("\n_Semangat ngerjainnya!_")
	return b.String()
}

func submitVia(t *store.Task) string {
	return orDash(t.SubmitVia)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
