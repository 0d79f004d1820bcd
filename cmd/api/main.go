package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"

	"github.com/derrick-solstice/e-commerce-order/internal/aws"
	"github.com/derrick-solstice/e-commerce-order/internal/clients"
	"github.com/derrick-solstice/e-commerce-order/internal/config"
	"github.com/derrick-solstice/e-commerce-order/internal/handlers"
	"github.com/derrick-solstice/e-commerce-order/internal/idempotency"
	"github.com/derrick-solstice/e-commerce-order/internal/lines"
	"github.com/derrick-solstice/e-commerce-order/internal/orders"
	"github.com/derrick-solstice/e-commerce-order/internal/sequence"
	"github.com/derrick-solstice/e-commerce-order/internal/validation"
)

func setupRouter(cfg config.Config, c *aws.Clients) *gin.Engine {
	ids := sequence.NewAllocator(c.DynamoDB, cfg.SequencesTable)

	lineSvc := lines.NewService(
		lines.NewStore(c.DynamoDB, cfg.LinesTable, cfg.LinesOrderIndex, ids),
		clients.NewShipmentClient(cfg.ShipmentServiceURL, cfg.HTTPClientTimeout),
	)

	var notifier orders.Notifier
	if cfg.QueueURL != "" {
		notifier = orders.NewEventNotifier(aws.NewPublisher(c.SQS, cfg.QueueURL))
	} else {
		log.Printf("[api] ORDERS_QUEUE_URL not set, order events disabled")
	}

	orderSvc := orders.NewService(
		orders.NewStore(c.DynamoDB, cfg.OrdersTable, ids),
		lineSvc,
		clients.NewAccountClient(cfg.AccountServiceURL, cfg.HTTPClientTimeout),
		notifier,
	)

	v := validation.New()
	return handlers.NewRouter(
		handlers.NewOrdersHandler(orderSvc, idempotency.NewStore(c.DynamoDB, cfg.IdempotencyTable, cfg.IdempotencyTTL), v),
		handlers.NewLinesHandler(lineSvc, v),
	)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	awsClients, err := aws.NewClients(context.Background())
	if err != nil {
		log.Fatalf("failed to init aws clients: %v", err)
	}

	r := setupRouter(cfg, awsClients)

	// RUN_LOCAL=true serves plain HTTP for development
	if cfg.RunLocal {
		addr := ":" + cfg.Port
		log.Printf("running local server on %s", addr)
		if err := r.Run(addr); err != nil {
			log.Fatalf("failed to run local server: %v", err)
		}
		return
	}

	adapter := ginadapter.New(r)

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
