// Package dispatch serializes outbound notification sends into one global
// FIFO so the chat transport is never invoked concurrently, and applies a
// bounded retry with backoff to each send.
//
// The queue deliberately runs one job at a time: a stalled job blocks all
// later jobs. Notification volume is small and the external transport rate
// limits aggressively, so head-of-line blocking is the safer failure mode.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Transport is the external chat send primitive the queue drives. Any error
// is treated as retryable up to the queue's budget.
type Transport interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// ErrQueueClosed is returned by Submit after Stop.
var ErrQueueClosed = errors.New("dispatch queue is closed")

// defaultBackoff is the per-attempt delay schedule; the last entry is reused
// for any further attempt.
var defaultBackoff = []time.Duration{time.Second, 3 * time.Second, 6 * time.Second}

const defaultRetryBudget = 3

// Queue is the process-wide outbound send queue.
//
// Jobs submitted earlier are started earlier. Each job is attempted once
// plus up to the retry budget of additional attempts; exhausting the budget
// fails that submission only. Cross-sweep retry is not the queue's concern:
// a reminder tier is marked fired only after a successful send, so an
// undelivered tier is naturally re-attempted on the next sweep.
type Queue struct {
	transport Transport
	logger    *zap.Logger

	retryBudget int
	backoff     []time.Duration

	mu      sync.Mutex
	running bool
	jobs    chan *job
	stopCh  chan struct{}
	doneCh  chan struct{}
}

type job struct {
	ctx    context.Context
	chatID string
	text   string
	done   chan error
}

// Option configures a Queue.
type Option func(*Queue)

// WithRetryBudget sets the number of additional attempts after the first
// failure. Default: 3.
func WithRetryBudget(n int) Option {
	return func(q *Queue) {
		if n >= 0 {
			q.retryBudget = n
		}
	}
}

// WithBackoff sets the delay schedule between attempts; the last delay is
// reused for any further attempt. Default: 1s, 3s, 6s.
func WithBackoff(delays []time.Duration) Option {
	return func(q *Queue) {
		if len(delays) > 0 {
			q.backoff = delays
		}
	}
}

// NewQueue creates a dispatch queue over the given transport.
func NewQueue(transport Transport, logger *zap.Logger, opts ...Option) (*Queue, error) {
	if transport == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	q := &Queue{
		transport:   transport,
		logger:      logger,
		retryBudget: defaultRetryBudget,
		backoff:     defaultBackoff,
		jobs:        make(chan *job, 64),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Start launches the single worker goroutine. Idempotent.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.running = true
	go q.run()
}

// Stop drains no further jobs and waits for the in-flight job to finish.
// Pending jobs fail with ErrQueueClosed.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	close(q.stopCh)
	q.mu.Unlock()
	<-q.doneCh
}

// Submit enqueues a send and blocks until it succeeds, exhausts its retry
// budget, or ctx is done.
func (q *Queue) Submit(ctx context.Context, chatID, text string) error {
	j := &job{ctx: ctx, chatID: chatID, text: text, done: make(chan error, 1)}

	select {
	case q.jobs <- j:
	case <-q.stopCh:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the worker loop: one job in flight at a time, strict FIFO.
func (q *Queue) run() {
	defer close(q.doneCh)
	for {
		select {
		case j := <-q.jobs:
			j.done <- q.attempt(j)
		case <-q.stopCh:
			q.failPending()
			return
		}
	}
}

// failPending rejects jobs still queued at shutdown.
func (q *Queue) failPending() {
	for {
		select {
		case j := <-q.jobs:
			j.done <- ErrQueueClosed
		default:
			return
		}
	}
}

// attempt sends one job, retrying on failure per the backoff schedule.
func (q *Queue) attempt(j *job) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = q.transport.SendMessage(j.ctx, j.chatID, j.text)
		if err == nil {
			if attempt > 0 {
				q.logger.Info("send succeeded after retry",
					zap.String("chat_id", j.chatID),
					zap.Int("attempt", attempt+1))
			}
			return nil
		}
		if attempt >= q.retryBudget {
			q.logger.Error("send failed, retry budget exhausted",
				zap.String("chat_id", j.chatID),
				zap.Int("attempts", attempt+1),
				zap.Error(err))
			return fmt.Errorf("send to %s failed after %d attempts: %w", j.chatID, attempt+1, err)
		}

		delay := q.backoff[min(attempt, len(q.backoff)-1)]
		q.logger.Warn("send failed, retrying",
			zap.String("chat_id", j.chatID),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err))

		select {
		case <-time.After(delay):
		case <-j.ctx.Done():
			return j.ctx.Err()
		case <-q.stopCh:
			return ErrQueueClosed
		}
	}
}
