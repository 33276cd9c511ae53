// Package command applies typed admin/user operations to the stores and
// produces the chat replies.
//
// The chat-facing text router lives in the bridge process; it parses the
// ~40 bot commands and forwards each as one structured request. This package
// is the typed surface those requests land on: task CRUD, archiving,
// listings, search, and reminder configuration. Replies travel back through
// the same outbound dispatch queue the reminders use.
package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kelasbot/remindd/internal/deadline"
	"github.com/kelasbot/remindd/internal/reminder"
	"github.com/kelasbot/remindd/internal/session"
	"github.com/kelasbot/remindd/internal/store"
)

// Request is one inbound operation from the chat bridge.
type Request struct {
	ChatID   string            `json:"chat_id"`
	ChatName string            `json:"chat_name,omitempty"`
	Action   string            `json:"action"`
	Admin    bool              `json:"admin,omitempty"`
	Args     map[string]string `json:"args,omitempty"`
}

// Errors surfaced to the chat. Messages are user-facing.
var (
	ErrNotAdmin     = errors.New("fitur ini khusus admin grup")
	ErrUnknownTask  = errors.New("nomor tugas tidak ditemukan")
	ErrBadDeadline  = errors.New("format waktu salah atau tanggal sudah lewat")
	ErrMissingField = errors.New("data tugas belum lengkap")
	ErrUnknownCmd   = errors.New("perintah tidak dikenali")
)

// adminActions require the admin flag from the bridge.
var adminActions = map[string]bool{
	"add_task":     true,
	"edit_task":    true,
	"done_task":    true,
	"delete_task":  true,
	"archive_task": true,
	"set_rules":    true,
	"snooze":       true,
}

// Handler executes requests against the stores.
type Handler struct {
	tasks    *store.TaskStore
	archive  *store.ArchiveStore
	settings *reminder.SettingsService
	sessions *session.Store[session.SearchState]
	clock    reminder.Clock
	loc      *time.Location
	logger   *zap.Logger
}

// NewHandler creates the command handler.
func NewHandler(tasks *store.TaskStore, archive *store.ArchiveStore, settings *reminder.SettingsService, clock reminder.Clock, loc *time.Location, logger *zap.Logger) (*Handler, error) {
	if tasks == nil {
		return nil, fmt.Errorf("task store cannot be nil")
	}
	if archive == nil {
		return nil, fmt.Errorf("archive store cannot be nil")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings service cannot be nil")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock cannot be nil")
	}
	if loc == nil {
		return nil, fmt.Errorf("location cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	return &Handler{
		tasks:    tasks,
		archive:  archive,
		settings: settings,
		sessions: session.NewStore[session.SearchState](),
		clock:    clock,
		loc:      loc,
		logger:   logger,
	}, nil
}

// Handle executes one request and returns the reply text. Rejections come
// back as errors whose messages the bridge relays verbatim.
func (h *Handler) Handle(_ context.Context, req Request) (string, error) {
	if adminActions[req.Action] && !req.Admin {
		return "", ErrNotAdmin
	}

	// Groups appear lazily on the first observed message from that chat.
	h.tasks.EnsureGroup(req.ChatID, chatName(req))

	switch req.Action {
	case "add_task":
		return h.addTask(req)
	case "edit_task":
		return h.editTask(req)
	case "done_task":
		return h.doneTask(req)
	case "delete_task":
		return h.deleteTask(req)
	case "archive_task":
		return h.archiveTask(req)
	case "list_tasks":
		return h.listTasks(req), nil
	case "list_archive":
		return h.listArchive(req), nil
	case "set_rules":
		return h.settings.ConfigureRules(req.ChatID, req.Args["input"])
	case "show_rules":
		return "Reminder grup saat ini: " + h.settings.CurrentRules(req.ChatID), nil
	case "snooze":
		return h.settings.Snooze(req.ChatID, req.Args["input"])
	case "search":
		return h.search(req)
	case "search_page":
		return h.searchPage(req)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownCmd, req.Action)
	}
}

func (h *Handler) addTask(req Request) (string, error) {
	name := strings.TrimSpace(req.Args["name"])
	raw := strings.TrimSpace(req.Args["deadline"])
	if name == "" || raw == "" {
		return "", fmt.Errorf("%w: butuh nama tugas dan deadline", ErrMissingField)
	}

	now := h.clock.Now()
	due, err := deadline.Parse(raw, now, h.loc)
	warning := ""
	switch {
	case err != nil:
		// Stored as-is; reminders stay off until the deadline is corrected.
		warning = "\n⚠️ Deadline belum dikenali, reminder tidak aktif untuk tugas ini."
	case !due.After(now):
		return "", fmt.Errorf("%w: %s", ErrBadDeadline, raw)
	}

	task := &store.Task{
		Name:        name,
		Course:      req.Args["course"],
		Description: req.Args["description"],
		SubmitVia:   req.Args["submit_via"],
		Kind:        req.Args["kind"],
		Deadline:    raw,
	}
	if err := h.tasks.AddTask(req.ChatID, task); err != nil {
		return "", err
	}
	h.logger.Info("task added",
		zap.String("chat_id", req.ChatID),
		zap.String("task", name))
	return fmt.Sprintf("✅ Tugas *%s* berhasil disimpan. Deadline: %s.%s", name, raw, warning), nil
}

func (h *Handler) editTask(req Request) (string, error) {
	task, err := h.resolveTask(req)
	if err != nil {
		return "", err
	}

	if raw, ok := req.Args["deadline"]; ok && strings.TrimSpace(raw) != "" {
		now := h.clock.Now()
		if due, err := deadline.Parse(raw, now, h.loc); err == nil && !due.After(now) {
			return "", fmt.Errorf("%w: %s", ErrBadDeadline, raw)
		}
	}

	err = h.tasks.EditTask(req.ChatID, task.ID, func(t *store.Task) {
		applyIfSet(req.Args, "name", &t.Name)
		applyIfSet(req.Args, "course", &t.Course)
		applyIfSet(req.Args, "description", &t.Description)
		applyIfSet(req.Args, "submit_via", &t.SubmitVia)
		applyIfSet(req.Args, "kind", &t.Kind)
		if raw, ok := req.Args["deadline"]; ok && strings.TrimSpace(raw) != "" {
			t.Deadline = strings.TrimSpace(raw)
		}
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("✏️ Tugas *%s* diperbarui.", task.Name), nil
}

func (h *Handler) doneTask(req Request) (string, error) {
	task, err := h.resolveTask(req)
	if err != nil {
		return "", err
	}
	if err := h.tasks.MarkDone(req.ChatID, task.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("🎉 Tugas *%s* ditandai selesai!", task.Name), nil
}

func (h *Handler) deleteTask(req Request) (string, error) {
	task, err := h.resolveTask(req)
	if err != nil {
		return "", err
	}
	if err := h.tasks.DeleteTask(req.ChatID, task.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("🗑️ Tugas *%s* dihapus.", task.Name), nil
}

func (h *Handler) archiveTask(req Request) (string, error) {
	task, err := h.resolveTask(req)
	if err != nil {
		return "", err
	}
	removed, err := h.tasks.RemoveTask(req.ChatID, task.ID)
	if err != nil {
		return "", err
	}
	if err := h.archive.Add(req.ChatID, removed); err != nil {
		return "", err
	}
	if err := h.tasks.Save(); err != nil {
		return "", err
	}
	return fmt.Sprintf("📦 Tugas *%s* diarsipkan.", removed.Name), nil
}

func (h *Handler) listTasks(req Request) string {
	now := h.clock.Now()
	tasks := h.tasks.SortedTasks(req.ChatID, now, h.loc)
	return reminder.BuildTaskListText(tasks, now, func(t *store.Task) (time.Time, error) {
		return deadline.ParseValue(t.Deadline, now, h.loc)
	})
}

func (h *Handler) listArchive(req Request) string {
	archived := h.archive.List(req.ChatID)
	if len(archived) == 0 {
		return "📦 Arsip kosong."
	}
	var b strings.Builder
	b.WriteString("📦 *ARSIP TUGAS*\n")
	for i, t := range archived {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, t.Name, t.DeadlineText())
	}
	return b.String()
}

// search runs a substring match over the group's active tasks and stores
// the paged result set in the session store.
func (h *Handler) search(req Request) (string, error) {
	query := strings.TrimSpace(req.Args["query"])
	if query == "" {
		return "", fmt.Errorf("%w: butuh kata kunci", ErrMissingField)
	}

	needle := strings.ToLower(query)
	var results []string
	for _, t := range h.tasks.ActiveTasks(req.ChatID) {
		if strings.Contains(strings.ToLower(t.Name), needle) ||
			strings.Contains(strings.ToLower(t.Course), needle) {
			results = append(results, fmt.Sprintf("- *%s* (%s), deadline %s",
				t.Name, orDash(t.Course), t.DeadlineText()))
		}
	}

	state := session.SearchState{Type: "tugas", Query: query, Results: results, Page: 1}
	h.sessions.Put(req.ChatID, state)
	return renderSearch(state), nil
}

// searchPage moves the stored result set forward or backward.
func (h *Handler) searchPage(req Request) (string, error) {
	state, ok := h.sessions.Get(req.ChatID)
	if !ok {
		return "", fmt.Errorf("%w: belum ada pencarian aktif", ErrUnknownCmd)
	}
	switch req.Args["direction"] {
	case "next":
		state.Page++
	case "prev":
		state.Page--
	}
	if state.Page < 1 {
		state.Page = 1
	}
	if max := state.TotalPages(); state.Page > max {
		state.Page = max
	}
	h.sessions.Put(req.ChatID, state)
	return renderSearch(state), nil
}

func renderSearch(state session.SearchState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔎 Hasil cari: *%s*\n", state.Query)
	if len(state.Results) == 0 {
		b.WriteString("Tidak ada data yang cocok.")
		return b.String()
	}
	for _, item := range state.PageSlice() {
		b.WriteString(item + "\n")
	}
	if pages := state.TotalPages(); pages > 1 {
		fmt.Fprintf(&b, "\nHalaman %d/%d (next/prev untuk pindah)", state.Page, pages)
	}
	return b.String()
}

// resolveTask maps the user-visible 1-based number (in deadline-sorted
// order, the order listings show) onto the task record.
func (h *Handler) resolveTask(req Request) (*store.Task, error) {
	ref := strings.TrimSpace(req.Args["task"])
	n, err := strconv.Atoi(ref)
	if err != nil || n < 1 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, ref)
	}
	tasks := h.tasks.SortedTasks(req.ChatID, h.clock.Now(), h.loc)
	if n > len(tasks) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTask, ref)
	}
	return tasks[n-1], nil
}

func chatName(req Request) string {
	if req.ChatName != "" {
		return req.ChatName
	}
	return "Grup"
}

func applyIfSet(args map[string]string, key string, dst *string) {
	if v, ok := args[key]; ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
