package clients

import (
	"context"
	"fmt"
	"time"
)

// ShipmentClient talks to the shipment service.
type ShipmentClient struct {
	getter textGetter
}

func NewShipmentClient(baseURL string, timeout time.Duration) *ShipmentClient {
	return &ShipmentClient{getter: newTextGetter(baseURL, timeout)}
}

// GetShipment fetches GET /shipments/{shipmentID}.
func (c *ShipmentClient) GetShipment(ctx context.Context, shipmentID int64) (string, error) {
	return c.getter.get(ctx, fmt.Sprintf("/shipments/%d", shipmentID))
}
