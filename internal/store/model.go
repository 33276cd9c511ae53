// Package store provides the file-backed persistence layer for groups,
// tasks, archives, and per-group settings.
//
// Persistence is whole-snapshot JSON: one file maps group chat IDs to their
// display name and task list, a second maps group chat IDs to settings, and a
// third holds archived tasks. Saves are atomic (write to a temp file, then
// rename) and every store guards its in-memory snapshot with a mutex so a
// sweep's save and a concurrent admin mutation cannot clobber each other.
package store

// Task is one tracked piece of coursework owned by a group.
//
// Deadline holds the raw value exactly as entered (string) or as pushed in by
// the AI intake path (epoch number); the canonical instant is derived by the
// deadline parser and never stored as a second source of truth. ReminderState
// maps a reminder rule key to the ISO timestamp at which that tier was sent;
// a missing key means the tier has not fired. Records written by earlier
// revisions may lack both ID and ReminderState.
type Task struct {
	ID            string            `json:"id,omitempty"`
	Name          string            `json:"name"`
	Course        string            `json:"course,omitempty"`
	Description   string            `json:"description,omitempty"`
	SubmitVia     string            `json:"submit_via,omitempty"`
	Kind          string            `json:"kind,omitempty"`
	Deadline      any               `json:"deadline"`
	Done          bool              `json:"done,omitempty"`
	ReminderState map[string]string `json:"reminder_state,omitempty"`
}

// DeadlineText renders the raw deadline for display.
func (t *Task) DeadlineText() string {
	switch d := t.Deadline.(type) {
	case string:
		return d
	case nil:
		return "-"
	default:
		return "-"
	}
}

// TierFired reports whether the given reminder tier has already been sent.
func (t *Task) TierFired(ruleKey string) bool {
	if t.ReminderState == nil {
		return false
	}
	_, ok := t.ReminderState[ruleKey]
	return ok
}

// Group is one chat the bot tracks, created lazily on the first observed
// message from that chat.
type Group struct {
	Name  string  `json:"name"`
	Tasks []*Task `json:"tasks"`
}

// Settings holds per-group admin configuration.
//
// ReminderRules, when non-nil, restricts which rule keys may fire for the
// group; nil means the full default rule set. ReminderSnoozeUntil is an ISO
// timestamp; while now is before it, the whole group is skipped by the scan
// loop.
type Settings struct {
	Class               string   `json:"kelas,omitempty"`
	ReminderRules       []string `json:"reminder_rules,omitempty"`
	ReminderSnoozeUntil string   `json:"reminder_snooze_until,omitempty"`
}
