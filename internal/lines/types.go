package lines

import "github.com/shopspring/decimal"

// Line is a single line item belonging to exactly one order.
type Line struct {
	LineItemID  int64           `json:"lineItemId"`
	OrderNumber int64           `json:"orderNumber"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	ProductID   int64           `json:"productId"`
	ShipmentID  int64           `json:"shipmentId,omitempty"` // 0 until shipped
}

// record is the shape persisted in the lines DynamoDB table.
type record struct {
	LineItemID  int64  `dynamodbav:"line_item_id"` // PK
	OrderNumber int64  `dynamodbav:"order_number"` // GSI hash key
	Quantity    int    `dynamodbav:"quantity"`
	Price       string `dynamodbav:"price"`
	ProductID   int64  `dynamodbav:"product_id"`
	ShipmentID  int64  `dynamodbav:"shipment_id,omitempty"`
}

func toRecord(l Line) record {
	return record{
		LineItemID:  l.LineItemID,
		OrderNumber: l.OrderNumber,
		Quantity:    l.Quantity,
		Price:       l.Price.String(),
		ProductID:   l.ProductID,
		ShipmentID:  l.ShipmentID,
	}
}

func fromRecord(r record) (Line, error) {
	price := decimal.Zero
	if r.Price != "" {
		var err error
		if price, err = decimal.NewFromString(r.Price); err != nil {
			return Line{}, err
		}
	}
	return Line{
		LineItemID:  r.LineItemID,
		OrderNumber: r.OrderNumber,
		Quantity:    r.Quantity,
		Price:       price,
		ProductID:   r.ProductID,
		ShipmentID:  r.ShipmentID,
	}, nil
}
