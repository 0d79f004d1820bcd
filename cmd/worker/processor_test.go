package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/derrick-solstice/e-commerce-order/internal/aws"
	"github.com/derrick-solstice/e-commerce-order/internal/aws/dynamotest"
	"github.com/derrick-solstice/e-commerce-order/internal/idempotency"
	"github.com/derrick-solstice/e-commerce-order/internal/orders"
)

// --- mock implementations ---

type mockCloudWatch struct {
	calls []*cloudwatch.PutMetricDataInput
	err   error
}

func (m *mockCloudWatch) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.calls = append(m.calls, in)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func newTestProcessor() (*Processor, *dynamotest.Fake, *mockCloudWatch) {
	fake := dynamotest.New(map[string]string{"idempotency": idempotency.KeyAttribute})
	cw := &mockCloudWatch{}
	p := NewProcessor(
		idempotency.NewStore(fake, "idempotency", time.Hour),
		aws.NewMetricsRecorder(cw, "ECommerceOrder"),
	)
	return p, fake, cw
}

func sqsEvent(t *testing.T, evs ...orders.Event) events.SQSEvent {
	t.Helper()
	var out events.SQSEvent
	for _, e := range evs {
		body, err := json.Marshal(e)
		if err != nil {
			t.Fatalf("marshal event: %v", err)
		}
		out.Records = append(out.Records, events.SQSMessage{MessageId: "m-" + e.ID, Body: string(body)})
	}
	return out
}

func statusOf(t *testing.T, fake *dynamotest.Fake, key string) string {
	t.Helper()
	it := fake.Item("idempotency", key)
	if it == nil {
		t.Fatalf("no idempotency record for %s", key)
	}
	s, ok := it["status"].(*types.AttributeValueMemberS)
	if !ok {
		t.Fatalf("status attribute missing for %s", key)
	}
	return s.Value
}

// --- test cases ---

func TestWorkerProcess_Success(t *testing.T) {
	p, fake, cw := newTestProcessor()

	ev := sqsEvent(t,
		orders.Event{ID: "e1", Type: orders.EventOrderCreated, OrderNumber: 1},
		orders.Event{ID: "e2", Type: orders.EventOrderDeleted, OrderNumber: 1},
	)
	if err := p.Handle(context.Background(), ev); err != nil {
		t.Fatalf("unexpected worker error: %v", err)
	}

	if len(cw.calls) != 2 {
		t.Fatalf("expected 2 metric calls, got %d", len(cw.calls))
	}
	dims := cw.calls[0].MetricData[0].Dimensions
	if len(dims) != 1 || *dims[0].Name != "EventType" || *dims[0].Value != "order.created" {
		t.Fatalf("unexpected dimensions: %+v", dims)
	}
	if got := *cw.calls[0].MetricData[0].MetricName; got != "OrderEvents" {
		t.Fatalf("unexpected metric name %q", got)
	}

	for _, k := range []string{"event:e1", "event:e2"} {
		if s := statusOf(t, fake, k); s != idempotency.StatusDone {
			t.Fatalf("expected %s DONE, got %s", k, s)
		}
	}
}

func TestWorkerProcess_DuplicateSkipped(t *testing.T) {
	p, _, cw := newTestProcessor()
	ev := sqsEvent(t, orders.Event{ID: "dup", Type: orders.EventOrderUpdated, OrderNumber: 3})

	for i := 0; i < 2; i++ {
		if err := p.Handle(context.Background(), ev); err != nil {
			t.Fatalf("delivery %d: unexpected error: %v", i, err)
		}
	}
	if len(cw.calls) != 1 {
		t.Fatalf("expected duplicate to be skipped, got %d metric calls", len(cw.calls))
	}
}

func TestWorkerProcess_MetricFailureReleasesKey(t *testing.T) {
	p, fake, cw := newTestProcessor()
	cw.err = errors.New("throttled")
	ev := sqsEvent(t, orders.Event{ID: "e9", Type: orders.EventOrderCreated, OrderNumber: 9})

	if err := p.Handle(context.Background(), ev); err == nil {
		t.Fatalf("expected error when metrics fail")
	}
	if s := statusOf(t, fake, "event:e9"); s != idempotency.StatusFailed {
		t.Fatalf("expected FAILED, got %s", s)
	}

	// redelivery succeeds once CloudWatch recovers
	cw.err = nil
	if err := p.Handle(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	if s := statusOf(t, fake, "event:e9"); s != idempotency.StatusDone {
		t.Fatalf("expected DONE after retry, got %s", s)
	}
}

func TestWorkerProcess_MessageIDFallback(t *testing.T) {
	p, fake, _ := newTestProcessor()
	ev := events.SQSEvent{Records: []events.SQSMessage{{
		MessageId: "sqs-123",
		Body:      `{"event_type":"order.created","order_number":4}`,
	}}}

	if err := p.Handle(context.Background(), ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s := statusOf(t, fake, "event:sqs-123"); s != idempotency.StatusDone {
		t.Fatalf("expected DONE, got %s", s)
	}
}

func TestWorkerProcess_InvalidBody(t *testing.T) {
	p, fake, _ := newTestProcessor()

	for _, body := range []string{"not-json", `{"event_id":"x"}`} {
		ev := events.SQSEvent{Records: []events.SQSMessage{{Body: body}}}
		if err := p.Handle(context.Background(), ev); err == nil {
			t.Fatalf("expected error for body %q", body)
		}
	}
	if n := len(fake.Items("idempotency")); n != 0 {
		t.Fatalf("expected no idempotency records, got %d", n)
	}
}
