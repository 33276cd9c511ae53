package command

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Dispatcher sends a reply to a chat. Satisfied by the dispatch queue.
type Dispatcher interface {
	Submit(ctx context.Context, chatID, text string) error
}

const handleTimeout = 30 * time.Second

// Consumer subscribes to the inbound command subject and feeds requests to
// the handler. Each request gets exactly one reply, routed through the same
// outbound queue the reminders use so chat pacing applies to both.
type Consumer struct {
	handler *Handler
	queue   Dispatcher
	logger  *zap.Logger
	sub     *nats.Subscription
}

// NewConsumer creates the inbound consumer.
func NewConsumer(handler *Handler, queue Dispatcher, logger *zap.Logger) (*Consumer, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler cannot be nil")
	}
	if queue == nil {
		return nil, fmt.Errorf("queue cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	return &Consumer{handler: handler, queue: queue, logger: logger}, nil
}

// Subscribe starts consuming requests on subject (e.g. "remindd.inbound").
func (c *Consumer) Subscribe(conn *nats.Conn, subject string) error {
	if conn == nil {
		return fmt.Errorf("nats connection cannot be nil")
	}
	if subject == "" {
		subject = "remindd.inbound"
	}

	sub, err := conn.Subscribe(subject, c.onMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	c.sub = sub
	c.logger.Info("command consumer subscribed", zap.String("subject", subject))
	return nil
}

// Close drains the subscription.
func (c *Consumer) Close() error {
	if c.sub == nil {
		return nil
	}
	return c.sub.Drain()
}

func (c *Consumer) onMessage(msg *nats.Msg) {
	var req Request
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		c.logger.Warn("dropping malformed command", zap.Error(err))
		return
	}
	if req.ChatID == "" || req.Action == "" {
		c.logger.Warn("dropping command without chat_id or action")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	reply, err := c.handler.Handle(ctx, req)
	if err != nil {
		c.logger.Info("command rejected",
			zap.String("chat_id", req.ChatID),
			zap.String("action", req.Action),
			zap.Error(err))
		reply = "❌ " + err.Error()
	}

	if err := c.queue.Submit(ctx, req.ChatID, reply); err != nil {
		c.logger.Error("failed to queue command reply",
			zap.String("chat_id", req.ChatID),
			zap.String("action", req.Action),
			zap.Error(err))
	}
}
