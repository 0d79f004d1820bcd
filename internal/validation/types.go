package validation

import (
	"github.com/shopspring/decimal"

	"github.com/derrick-solstice/e-commerce-order/internal/lines"
	"github.com/derrick-solstice/e-commerce-order/internal/orders"
)

// CreateOrderRequest is the payload for POST /orders. Derived fields (account,
// shippingAddress, lineItems, shipments) are not accepted.
type CreateOrderRequest struct {
	OrderDate         *orders.Date    `json:"orderDate,omitempty"` // defaults to today
	TotalPrice        decimal.Decimal `json:"totalPrice" validate:"gte=0"`
	AccountID         int64           `json:"accountId" validate:"required,gt=0"`
	ShippingAddressID int64           `json:"shippingAddressId" validate:"required,gt=0"`
}

// Order converts the request into an order to store.
func (r CreateOrderRequest) Order() orders.Order {
	o := orders.Order{
		TotalPrice:        r.TotalPrice,
		AccountID:         r.AccountID,
		ShippingAddressID: r.ShippingAddressID,
	}
	if r.OrderDate != nil {
		o.OrderDate = *r.OrderDate
	}
	return o
}

// UpdateOrderRequest is the payload for PUT /orders/{orderNumber}. Omitted fields keep
// their stored value.
type UpdateOrderRequest struct {
	AccountID         int64 `json:"accountId" validate:"omitempty,gt=0"`
	ShippingAddressID int64 `json:"shippingAddressId" validate:"omitempty,gt=0"`
}

func (r UpdateOrderRequest) Patch() orders.Patch {
	return orders.Patch{AccountID: r.AccountID, ShippingAddressID: r.ShippingAddressID}
}

// CreateLineRequest is the payload for POST /orders/{orderNumber}/lines.
type CreateLineRequest struct {
	Quantity   int             `json:"quantity" validate:"required,min=1"`
	Price      decimal.Decimal `json:"price" validate:"gte=0"`
	ProductID  int64           `json:"productId" validate:"required,gt=0"`
	ShipmentID int64           `json:"shipmentId,omitempty" validate:"omitempty,gt=0"`
}

// Line converts the request into a line owned by orderNumber.
func (r CreateLineRequest) Line(orderNumber int64) lines.Line {
	return lines.Line{
		OrderNumber: orderNumber,
		Quantity:    r.Quantity,
		Price:       r.Price,
		ProductID:   r.ProductID,
		ShipmentID:  r.ShipmentID,
	}
}
