package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeTransport records sends and fails the first failN attempts per chat.
type fakeTransport struct {
	mu    sync.Mutex
	sent  []string
	calls int
	failN int
}

func (f *fakeTransport) SendMessage(_ context.Context, chatID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failN {
		return errors.New("transport rejected")
	}
	f.sent = append(f.sent, chatID+": "+text)
	return nil
}

func (f *fakeTransport) sentMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func newTestQueue(t *testing.T, transport Transport) *Queue {
	t.Helper()
	q, err := NewQueue(transport, zaptest.NewLogger(t),
		WithBackoff([]time.Duration{time.Millisecond}))
	require.NoError(t, err)
	q.Start()
	t.Cleanup(q.Stop)
	return q
}

func TestQueue_RequiresTransportAndLogger(t *testing.T) {
	_, err := NewQueue(nil, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "transport cannot be nil")

	_, err = NewQueue(&fakeTransport{}, nil)
	assert.ErrorContains(t, err, "logger cannot be nil")
}

func TestQueue_SubmitDelivers(t *testing.T) {
	transport := &fakeTransport{}
	q := newTestQueue(t, transport)

	require.NoError(t, q.Submit(context.Background(), "g1@chat", "halo"))
	assert.Equal(t, []string{"g1@chat: halo"}, transport.sentMessages())
}

func TestQueue_RetriesThenSucceeds(t *testing.T) {
	// Fails twice, succeeds on the third attempt: exactly one delivery.
	transport := &fakeTransport{failN: 2}
	q := newTestQueue(t, transport)

	require.NoError(t, q.Submit(context.Background(), "g1@chat", "halo"))
	assert.Len(t, transport.sentMessages(), 1)
	assert.Equal(t, 3, transport.calls)
}

func TestQueue_ExhaustsRetryBudget(t *testing.T) {
	transport := &fakeTransport{failN: 100}
	q := newTestQueue(t, transport)

	err := q.Submit(context.Background(), "g1@chat", "halo")
	require.Error(t, err)
	assert.ErrorContains(t, err, "after 4 attempts")
	assert.Empty(t, transport.sentMessages())
}

func TestQueue_CustomRetryBudget(t *testing.T) {
	transport := &fakeTransport{failN: 100}
	q, err := NewQueue(transport, zaptest.NewLogger(t),
		WithRetryBudget(0),
		WithBackoff([]time.Duration{time.Millisecond}))
	require.NoError(t, err)
	q.Start()
	defer q.Stop()

	err = q.Submit(context.Background(), "g1@chat", "halo")
	assert.ErrorContains(t, err, "after 1 attempts")
}

func TestQueue_FIFOOrdering(t *testing.T) {
	transport := &fakeTransport{}
	q := newTestQueue(t, transport)

	var wg sync.WaitGroup
	// Submissions happen from one goroutine in order; the worker must start
	// them in the same order.
	texts := []string{"a", "b", "c", "d"}
	for _, text := range texts {
		wg.Add(1)
		text := text
		go func() {
			defer wg.Done()
			_ = q.Submit(context.Background(), "g1@chat", text)
		}()
		// Give each submission time to enqueue before the next.
		time.Sleep(10 * time.Millisecond)
	}
	wg.Wait()

	assert.Equal(t, []string{
		"g1@chat: a", "g1@chat: b", "g1@chat: c", "g1@chat: d",
	}, transport.sentMessages())
}

func TestQueue_SubmitAfterStop(t *testing.T) {
	transport := &fakeTransport{}
	q, err := NewQueue(transport, zaptest.NewLogger(t))
	require.NoError(t, err)
	q.Start()
	q.Stop()

	err = q.Submit(context.Background(), "g1@chat", "halo")
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueue_SubmitHonorsContext(t *testing.T) {
	transport := &fakeTransport{failN: 100}
	q, err := NewQueue(transport, zaptest.NewLogger(t),
		WithBackoff([]time.Duration{time.Hour}))
	require.NoError(t, err)
	q.Start()
	defer q.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = q.Submit(ctx, "g1@chat", "halo")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
