// Package config reads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
)

// Config holds everything the API and worker read from the environment.
type Config struct {
	Port     string `validate:"required,numeric"`
	RunLocal bool

	OrdersTable      string        `validate:"required"`
	LinesTable       string        `validate:"required"`
	LinesOrderIndex  string        `validate:"required"`
	SequencesTable   string        `validate:"required"`
	IdempotencyTable string        `validate:"required"`
	IdempotencyTTL   time.Duration `validate:"gt=0"`

	// QueueURL is optional; when empty no order events are published.
	QueueURL string `validate:"omitempty,url"`

	AccountServiceURL  string        `validate:"required,url"`
	ShipmentServiceURL string        `validate:"required,url"`
	HTTPClientTimeout  time.Duration `validate:"gt=0"`

	MetricsNamespace string `validate:"required"`
}

// Load reads the environment, applies defaults and validates the result.
func Load() (Config, error) {
	cfg := Config{
		Port:               getenv("PORT", "8080"),
		RunLocal:           os.Getenv("RUN_LOCAL") == "true",
		OrdersTable:        getenv("ORDERS_TABLE", "orders"),
		LinesTable:         getenv("LINES_TABLE", "lines"),
		LinesOrderIndex:    getenv("LINES_ORDER_INDEX", "order_number-index"),
		SequencesTable:     getenv("SEQUENCES_TABLE", "sequences"),
		IdempotencyTable:   getenv("IDEMPOTENCY_TABLE", "idempotency"),
		QueueURL:           os.Getenv("ORDERS_QUEUE_URL"),
		AccountServiceURL:  getenv("ACCOUNT_SERVICE_URL", "http://localhost:8081"),
		ShipmentServiceURL: getenv("SHIPMENT_SERVICE_URL", "http://localhost:8082"),
		MetricsNamespace:   getenv("METRICS_NAMESPACE", "ECommerceOrder"),
	}

	var err error
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", 48*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.HTTPClientTimeout, err = durationEnv("HTTP_CLIENT_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}

	if err := validatorv10.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
