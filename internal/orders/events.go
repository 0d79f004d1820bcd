package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// EventType names an order lifecycle transition.
type EventType string

// Order lifecycle events
const (
	EventOrderCreated EventType = "order.created"
	EventOrderUpdated EventType = "order.updated"
	EventOrderDeleted EventType = "order.deleted"
)

// Event is the payload sent from the API -> SQS -> worker.
type Event struct {
	ID          string    `json:"event_id"`
	Type        EventType `json:"event_type"`
	OrderNumber int64     `json:"order_number"`
	AccountID   int64     `json:"account_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Notifier receives order lifecycle events.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// QueueSender enqueues a message body with string attributes.
type QueueSender interface {
	Send(ctx context.Context, body string, attributes map[string]string) (string, error)
}

// EventNotifier JSON-encodes events onto a queue.
type EventNotifier struct {
	sender  QueueSender
	nowFunc func() time.Time
}

// NewEventNotifier returns a Notifier that publishes through sender.
func NewEventNotifier(sender QueueSender) *EventNotifier {
	return &EventNotifier{sender: sender, nowFunc: time.Now}
}

// Notify fills in the event id and timestamp when missing and enqueues the event.
func (n *EventNotifier) Notify(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = n.nowFunc().UTC()
	}

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	attrs := map[string]string{
		"event_id":     e.ID,
		"event_type":   string(e.Type),
		"order_number": strconv.FormatInt(e.OrderNumber, 10),
	}
	if _, err := n.sender.Send(ctx, string(body), attrs); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}
