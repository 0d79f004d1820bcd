package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/derrick-solstice/e-commerce-order/internal/orders"
)

const (
	eventKeyPrefix  = "event:"
	eventMetricName = "OrderEvents"
)

// EventKeys guards against handling the same event twice.
type EventKeys interface {
	Begin(ctx context.Context, key string) (bool, error)
	Complete(ctx context.Context, key, responseBody string, responseStatus int) error
	Fail(ctx context.Context, key, note string) error
}

// EventMetrics records a counter with dimensions.
type EventMetrics interface {
	Count(ctx context.Context, metric string, value float64, dimensions map[string]string) error
}

// Processor consumes order lifecycle events from SQS.
type Processor struct {
	keys    EventKeys
	metrics EventMetrics
}

// NewProcessor creates a worker processor.
func NewProcessor(keys EventKeys, metrics EventMetrics) *Processor {
	return &Processor{keys: keys, metrics: metrics}
}

// Handle receives an SQS batch event and processes each message.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) error {
	log.Printf("[worker] received %d SQS messages", len(ev.Records))
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			// Lambda retries the batch; repeated failures end up in the DLQ
			log.Printf("[worker] error: %v", err)
			return err
		}
	}
	return nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var e orders.Event
	if err := json.Unmarshal([]byte(rec.Body), &e); err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if e.ID == "" {
		e.ID = rec.MessageId
	}
	if e.ID == "" || e.Type == "" {
		return fmt.Errorf("event missing id or type: %s", rec.Body)
	}

	key := eventKeyPrefix + e.ID
	claimed, err := p.keys.Begin(ctx, key)
	if err != nil {
		return fmt.Errorf("claim event %s: %w", e.ID, err)
	}
	if !claimed {
		log.Printf("[worker] duplicate event=%s type=%s order=%d", e.ID, e.Type, e.OrderNumber)
		return nil
	}

	log.Printf("[worker] processing event=%s type=%s order=%d", e.ID, e.Type, e.OrderNumber)

	if err := p.metrics.Count(ctx, eventMetricName, 1, map[string]string{"EventType": string(e.Type)}); err != nil {
		if ferr := p.keys.Fail(ctx, key, err.Error()); ferr != nil {
			log.Printf("[worker] failed to release event=%s: %v", e.ID, ferr)
		}
		return fmt.Errorf("record metric for event %s: %w", e.ID, err)
	}

	if err := p.keys.Complete(ctx, key, rec.Body, http.StatusOK); err != nil {
		return fmt.Errorf("mark event %s done: %w", e.ID, err)
	}
	return nil
}
