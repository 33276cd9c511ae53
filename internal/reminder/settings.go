package reminder

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kelasbot/remindd/internal/store"
)

// Errors for admin configuration operations. The messages are user-facing:
// the command router relays them to the chat verbatim.
var (
	ErrNoValidRules     = errors.New("tidak ada opsi reminder yang dikenali")
	ErrBadSnoozeRequest = errors.New("durasi snooze harus 1-3 jam")
)

// Clock supplies the current instant. The production clock is the system
// clock in the configured timezone; tests substitute a fixed one.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in a fixed location.
type SystemClock struct {
	Loc *time.Location
}

// Now returns the current instant in the clock's location.
func (c SystemClock) Now() time.Time {
	return time.Now().In(c.Loc)
}

// SettingsService applies admin reminder configuration to a group. Invalid
// requests are rejected whole: the previous configuration is retained and
// the returned error explains the expected format.
type SettingsService struct {
	settings *store.SettingsStore
	clock    Clock
	logger   *zap.Logger
}

// NewSettingsService creates the admin settings operations.
func NewSettingsService(settings *store.SettingsStore, clock Clock, logger *zap.Logger) (*SettingsService, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings store cannot be nil")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	return &SettingsService{settings: settings, clock: clock, logger: logger}, nil
}

// ConfigureRules restricts the group's reminder tiers to the keys named in
// input ("3d, 1d 6h"). "default" or "reset" clears the restriction. If no
// token normalizes to a known key the request is rejected and the old
// configuration is kept. Returns the reply text for the chat.
func (s *SettingsService) ConfigureRules(chatID, input string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	if trimmed == "default" || trimmed == "reset" {
		if err := s.settings.Update(chatID, func(cfg *store.Settings) {
			cfg.ReminderRules = nil
		}); err != nil {
			return "", err
		}
		s.logger.Info("reminder rules reset to default", zap.String("chat_id", chatID))
		return "Reminder grup direset ke default.", nil
	}

	keys := ParseRuleTokens(input)
	if len(keys) == 0 {
		return "", fmt.Errorf("%w. Format: 3d,1d,6h (opsi: %s)",
			ErrNoValidRules, strings.Join(RuleKeys(), ", "))
	}

	if err := s.settings.Update(chatID, func(cfg *store.Settings) {
		cfg.ReminderRules = keys
	}); err != nil {
		return "", err
	}

	labels := make([]string, len(keys))
	for i, k := range keys {
		labels[i] = RuleLabel(k)
	}
	s.logger.Info("reminder rules configured",
		zap.String("chat_id", chatID),
		zap.Strings("rules", keys))
	return "Reminder grup diset ke: " + strings.Join(labels, ", "), nil
}

// CurrentRules describes the group's effective rule configuration.
func (s *SettingsService) CurrentRules(chatID string) string {
	cfg := s.settings.Get(chatID)
	if len(cfg.ReminderRules) == 0 {
		return "default"
	}
	labels := make([]string, len(cfg.ReminderRules))
	for i, k := range cfg.ReminderRules {
		labels[i] = RuleLabel(k)
	}
	return strings.Join(labels, ", ")
}

var snoozePattern = regexp.MustCompile(`^(\d+)\s*h$`)

// Snooze suppresses all the group's reminders for 1-3 hours ("2h"), or
// lifts the suppression ("off"/"reset"). Returns the reply text.
func (s *SettingsService) Snooze(chatID, input string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(input))
	if trimmed == "off" || trimmed == "reset" {
		if err := s.settings.Update(chatID, func(cfg *store.Settings) {
			cfg.ReminderSnoozeUntil = ""
		}); err != nil {
			return "", err
		}
		s.logger.Info("reminder snooze lifted", zap.String("chat_id", chatID))
		return "Snooze reminder dimatikan.", nil
	}

	m := snoozePattern.FindStringSubmatch(trimmed)
	if m == nil {
		return "", fmt.Errorf("%w. Contoh: 2h atau off", ErrBadSnoozeRequest)
	}
	hours, err := strconv.Atoi(m[1])
	if err != nil || hours < 1 || hours > 3 {
		return "", fmt.Errorf("%w. Contoh: 2h atau off", ErrBadSnoozeRequest)
	}

	until := s.clock.Now().Add(time.Duration(hours) * time.Hour)
	if err := s.settings.Update(chatID, func(cfg *store.Settings) {
		cfg.ReminderSnoozeUntil = until.Format(time.RFC3339)
	}); err != nil {
		return "", err
	}
	s.logger.Info("reminder snoozed",
		zap.String("chat_id", chatID),
		zap.Int("hours", hours),
		zap.Time("until", until))
	return fmt.Sprintf("Reminder disnooze selama %d jam.", hours), nil
}

// snoozedUntil resolves the group's snooze expiry; a missing or malformed
// value means not snoozed.
func snoozedUntil(cfg store.Settings) (time.Time, bool) {
	if cfg.ReminderSnoozeUntil == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, cfg.ReminderSnoozeUntil)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
