package orders

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/derrick-solstice/e-commerce-order/internal/lines"
)

// DateLayout is the wire and storage format of an order date.
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day, encoded as "YYYY-MM-DD".
type Date struct {
	time.Time
}

// NewDate returns the date y-m-d.
func NewDate(y int, m time.Month, d int) Date {
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in UTC.
func DateOf(t time.Time) Date {
	t = t.UTC()
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a "YYYY-MM-DD" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Order is a purchase record. Account, ShippingAddress, LineItems and Shipments are
// derived on read and never persisted.
type Order struct {
	OrderNumber       int64           `json:"orderNumber"`
	OrderDate         Date            `json:"orderDate"`
	TotalPrice        decimal.Decimal `json:"totalPrice"`
	AccountID         int64           `json:"accountId"`
	Account           string          `json:"account,omitempty"`
	ShippingAddressID int64           `json:"shippingAddressId"`
	ShippingAddress   string          `json:"shippingAddress,omitempty"`
	LineItems         []lines.Line    `json:"lineItems,omitempty"`
	Shipments         string          `json:"shipments,omitempty"`
}

// Patch carries the fields an update may change. Zero values leave the stored field as is.
type Patch struct {
	AccountID         int64
	ShippingAddressID int64
}

// record is the shape persisted in the orders DynamoDB table.
type record struct {
	OrderNumber       int64     `dynamodbav:"order_number"` // PK
	OrderDate         string    `dynamodbav:"order_date"`
	TotalPrice        string    `dynamodbav:"total_price"`
	AccountID         int64     `dynamodbav:"account_id"`
	ShippingAddressID int64     `dynamodbav:"shipping_address_id"`
	CreatedAt         time.Time `dynamodbav:"created_at"`
	UpdatedAt         time.Time `dynamodbav:"updated_at"`
}

func toRecord(o Order) record {
	return record{
		OrderNumber:       o.OrderNumber,
		OrderDate:         o.OrderDate.String(),
		TotalPrice:        o.TotalPrice.String(),
		AccountID:         o.AccountID,
		ShippingAddressID: o.ShippingAddressID,
	}
}

func fromRecord(r record) (Order, error) {
	o := Order{
		OrderNumber:       r.OrderNumber,
		TotalPrice:        decimal.Zero,
		AccountID:         r.AccountID,
		ShippingAddressID: r.ShippingAddressID,
	}
	if r.OrderDate != "" {
		d, err := ParseDate(r.OrderDate)
		if err != nil {
			return Order{}, err
		}
		o.OrderDate = d
	}
	if r.TotalPrice != "" {
		p, err := decimal.NewFromString(r.TotalPrice)
		if err != nil {
			return Order{}, fmt.Errorf("parse total price %q: %w", r.TotalPrice, err)
		}
		o.TotalPrice = p
	}
	return o, nil
}
