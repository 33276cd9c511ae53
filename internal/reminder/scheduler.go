package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kelasbot/remindd/internal/deadline"
	"github.com/kelasbot/remindd/internal/monitor"
	"github.com/kelasbot/remindd/internal/store"
)

// Dispatcher is the outbound queue the scan loop hands notifications to.
// Submit blocks until the send succeeds or its retry budget is exhausted.
type Dispatcher interface {
	Submit(ctx context.Context, chatID, text string) error
}

// defaultInterval is the sweep cadence. The firing window width must equal
// this interval so no tier is skipped entirely between two sweeps.
const defaultInterval = 5 * time.Minute

// defaultPace is the courtesy pause between successive sends within a
// sweep, distinct from the queue's retry backoff.
const defaultPace = 2 * time.Second

// Scheduler is the reminder scan loop.
//
// Each tick sweeps all groups and all active tasks, fires at most one
// not-yet-sent reminder tier per task, and persists the fired tier only
// after the send succeeds. A tier fires when the remaining time falls inside
// (lead − interval, lead]; that window is what keeps a crossed threshold
// from firing again on every later sweep, while the persisted fired state is
// what keeps an immediate re-run idempotent.
type Scheduler struct {
	tasks    *store.TaskStore
	settings *store.SettingsStore
	queue    Dispatcher
	clock    Clock
	loc      *time.Location
	logger   *zap.Logger
	metrics  *monitor.Metrics

	interval time.Duration
	pace     *rate.Limiter

	mu       sync.Mutex
	running  bool
	sweeping bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithInterval sets the sweep cadence. Default: 5 minutes.
func WithInterval(interval time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithClock substitutes the clock, for tests.
func WithClock(clock Clock) SchedulerOption {
	return func(s *Scheduler) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithPace sets the courtesy pause between successive sends. Default: 2s.
func WithPace(pause time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if pause > 0 {
			s.pace = rate.NewLimiter(rate.Every(pause), 1)
		}
	}
}

// WithMetrics attaches the metric set. Without it nothing is recorded.
func WithMetrics(m *monitor.Metrics) SchedulerOption {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// NewScheduler creates the scan loop. It does not start sweeping until
// Start is called.
func NewScheduler(tasks *store.TaskStore, settings *store.SettingsStore, queue Dispatcher, loc *time.Location, logger *zap.Logger, opts ...SchedulerOption) (*Scheduler, error) {
	if tasks == nil {
		return nil, fmt.Errorf("task store cannot be nil")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings store cannot be nil")
	}
	if queue == nil {
		return nil, fmt.Errorf("dispatcher cannot be nil")
	}
	if loc == nil {
		return nil, fmt.Errorf("location cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	s := &Scheduler{
		tasks:    tasks,
		settings: settings,
		queue:    queue,
		clock:    SystemClock{Loc: loc},
		loc:      loc,
		logger:   logger,
		interval: defaultInterval,
		pace:     rate.NewLimiter(rate.Every(defaultPace), 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start launches the background sweep loop. Returns an error if the
// scheduler is already running.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.running = true

	s.logger.Info("reminder scheduler started",
		zap.Duration("interval", s.interval))

	go s.run()
	return nil
}

// Stop signals the sweep loop to stop and waits for it to finish. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	doneCh := s.doneCh
	s.mu.Unlock()

	<-doneCh
	s.logger.Info("reminder scheduler stopped")
}

// run drives the ticker. Each tick runs one sweep to completion; a panic in
// a sweep is logged and the loop continues.
func (s *Scheduler) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.safeSweep()
		case <-s.stopCh:
			return
		}
	}
}

// safeSweep runs one guarded sweep. The overlap guard is a safety net for
// sweeps that outlast the tick interval; under normal load a sweep finishes
// well inside it.
func (s *Scheduler) safeSweep() {
	s.mu.Lock()
	if s.sweeping {
		s.mu.Unlock()
		s.logger.Warn("previous sweep still running, skipping tick")
		s.metrics.SweepOverlapped()
		return
	}
	s.sweeping = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sweeping = false
		s.mu.Unlock()
		if r := recover(); r != nil {
			s.logger.Error("sweep panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*s.interval)
	defer cancel()
	s.Sweep(ctx)
}

// Sweep runs one pass over all groups and tasks, firing due tiers.
// Exported so tests and one-shot tooling can drive sweeps directly.
func (s *Scheduler) Sweep(ctx context.Context) {
	started := time.Now()

	// Pick up admin rule/snooze changes made since the last sweep.
	if err := s.settings.Reload(); err != nil {
		s.logger.Warn("failed to reload settings, using last known", zap.Error(err))
	}

	groups := 0
	for _, chatID := range s.tasks.GroupIDs() {
		select {
		case <-ctx.Done():
			s.logger.Warn("sweep cancelled", zap.Error(ctx.Err()))
			return
		default:
		}
		s.sweepGroup(ctx, chatID)
		groups++
	}

	elapsed := time.Since(started)
	s.metrics.SweepCompleted(elapsed)
	s.logger.Debug("sweep completed",
		zap.Int("groups", groups),
		zap.Duration("elapsed", elapsed))
}

// sweepGroup evaluates one group's tasks against its effective rule set.
func (s *Scheduler) sweepGroup(ctx context.Context, chatID string) {
	cfg := s.settings.Get(chatID)
	now := s.clock.Now()

	if until, ok := snoozedUntil(cfg); ok && now.Before(until) {
		s.logger.Debug("group snoozed, skipping",
			zap.String("chat_id", chatID),
			zap.Time("until", until))
		return
	}

	rules := EffectiveRules(cfg.ReminderRules)

	for _, task := range s.tasks.ActiveTasks(chatID) {
		now = s.clock.Now()
		due, err := deadline.ParseValue(task.Deadline, now, s.loc)
		if err != nil {
			// Permanent skip until the deadline is corrected. Intentionally
			// silent toward the group; only visible here.
			s.logger.Debug("unparseable deadline, task skipped",
				zap.String("chat_id", chatID),
				zap.String("task", task.Name))
			s.metrics.UnparseableSkip()
			continue
		}

		remaining := due.Sub(now)
		if remaining <= 0 {
			continue
		}

		for _, rule := range rules {
			if task.TierFired(rule.Key) {
				continue
			}
			if remaining <= rule.Lead && remaining > rule.Lead-s.interval {
				s.fire(ctx, chatID, task, rule, remaining)
				// At most one notification per task per sweep.
				break
			}
		}
	}
}

// fire dispatches one tier and, only after a successful send, marks it
// fired and persists.
func (s *Scheduler) fire(ctx context.Context, chatID string, task *store.Task, rule Rule, remaining time.Duration) {
	// Courtesy pacing between sends, separate from the queue's retry backoff.
	if err := s.pace.Wait(ctx); err != nil {
		return
	}

	text := BuildReminderText(task, rule, remaining)
	if err := s.queue.Submit(ctx, chatID, text); err != nil {
		// Tier stays unfired; the next sweep that still finds it due will
		// re-attempt. At-least-once, not exactly-once.
		s.logger.Warn("reminder dispatch failed, tier left unfired",
			zap.String("chat_id", chatID),
			zap.String("task", task.Name),
			zap.String("rule", rule.Key),
			zap.Error(err))
		s.metrics.ReminderFailed()
		return
	}

	if err := s.tasks.MarkFired(chatID, task.ID, rule.Key, s.clock.Now()); err != nil {
		s.logger.Error("failed to mark tier fired",
			zap.String("chat_id", chatID),
			zap.String("task", task.Name),
			zap.String("rule", rule.Key),
			zap.Error(err))
		return
	}
	if err := s.tasks.Save(); err != nil {
		// In-memory state now diverges from disk until the next successful
		// save; a restart inside this window can duplicate the send.
		s.logger.Error("failed to persist fired tier",
			zap.String("chat_id", chatID),
			zap.String("rule", rule.Key),
			zap.Error(err))
		s.metrics.PersistenceFailure()
	}

	s.metrics.ReminderSent()
	s.logger.Info("reminder sent",
		zap.String("chat_id", chatID),
		zap.String("task", task.Name),
		zap.String("rule", rule.Key),
		zap.Duration("remaining", remaining))
}
