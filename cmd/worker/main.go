package main

import (
	"context"
	"log"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/derrick-solstice/e-commerce-order/internal/aws"
	"github.com/derrick-solstice/e-commerce-order/internal/config"
	"github.com/derrick-solstice/e-commerce-order/internal/idempotency"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	clients, err := aws.NewClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	p := NewProcessor(
		idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable, cfg.IdempotencyTTL),
		aws.NewMetricsRecorder(clients.CloudWatch, cfg.MetricsNamespace),
	)

	// RUN_LOCAL=true feeds a single simulated SQS message through the processor
	if cfg.RunLocal {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			body = `{"event_id":"local-event-1","event_type":"order.created","order_number":1}`
		}
		event := events.SQSEvent{
			Records: []events.SQSMessage{{MessageId: "local-message-1", Body: body}},
		}
		if err := p.Handle(context.Background(), event); err != nil {
			log.Fatalf("local handler error: %v", err)
		}
		return
	}

	lambda.Start(p.Handle)
}
