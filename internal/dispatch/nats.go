package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSTransport publishes outbound notifications to per-chat NATS subjects.
// The chat bridge process subscribes to the subject tree and relays each
// message to the messaging platform; remindd itself never talks to the
// platform directly.
type NATSTransport struct {
	conn    *nats.Conn
	subject string
}

// outboundMessage is the wire payload consumed by the chat bridge.
type outboundMessage struct {
	ChatID   string    `json:"chat_id"`
	Text     string    `json:"text"`
	QueuedAt time.Time `json:"queued_at"`
}

// NewNATSTransport creates a transport publishing under subjectPrefix
// (e.g. "remindd.outbound").
func NewNATSTransport(conn *nats.Conn, subjectPrefix string) (*NATSTransport, error) {
	if conn == nil {
		return nil, fmt.Errorf("nats connection cannot be nil")
	}
	if subjectPrefix == "" {
		subjectPrefix = "remindd.outbound"
	}
	return &NATSTransport{conn: conn, subject: subjectPrefix}, nil
}

// SendMessage publishes the notification and flushes, so a broker rejection
// surfaces here as a retryable error rather than being lost in the client's
// buffer.
func (t *NATSTransport) SendMessage(ctx context.Context, chatID, text string) error {
	payload, err := json.Marshal(outboundMessage{
		ChatID:   chatID,
		Text:     text,
		QueuedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal outbound message: %w", err)
	}

	subject := t.subject + "." + subjectToken(chatID)
	if err := t.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	if err := t.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush publish to %s: %w", subject, err)
	}
	return nil
}

// subjectToken makes a chat ID safe for use as a NATS subject token.
func subjectToken(chatID string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', ' ', '*', '>':
			return '_'
		default:
			return r
		}
	}, chatID)
}
