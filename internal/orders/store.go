package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/derrick-solstice/e-commerce-order/internal/apperr"
	"github.com/derrick-solstice/e-commerce-order/internal/aws"
	"github.com/derrick-solstice/e-commerce-order/internal/sequence"
)

// KeyAttribute is the hash key of the orders table.
const KeyAttribute = "order_number"

// IDAllocator hands out new order numbers.
type IDAllocator interface {
	Next(ctx context.Context, name string) (int64, error)
}

// Store encapsulates operations on the orders table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	ids       IDAllocator
	nowFunc   func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string, ids IDAllocator) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		ids:       ids,
		nowFunc:   time.Now,
	}
}

// Insert assigns a new order number and writes the order.
func (s *Store) Insert(ctx context.Context, o Order) (Order, error) {
	n, err := s.ids.Next(ctx, sequence.OrderNumber)
	if err != nil {
		return Order{}, fmt.Errorf("%w: allocate order number: %w", apperr.ErrPersistence, err)
	}
	o.OrderNumber = n

	rec := toRecord(o)
	now := s.nowFunc().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return Order{}, fmt.Errorf("%w: marshal order: %w", apperr.ErrPersistence, err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(order_number)"),
	})
	if err != nil {
		return Order{}, fmt.Errorf("%w: put order %d: %w", apperr.ErrPersistence, n, err)
	}
	return storedView(o), nil
}

// FindAll returns every order ordered by order number.
func (s *Store) FindAll(ctx context.Context) ([]Order, error) {
	input := &dyn.ScanInput{TableName: &s.tableName}

	out := []Order{}
	for {
		page, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("%w: scan orders: %w", apperr.ErrPersistence, err)
		}
		for _, it := range page.Items {
			o, err := unmarshalOrder(it)
			if err != nil {
				return nil, err
			}
			out = append(out, o)
		}
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = page.LastEvaluatedKey
	}

	sort.Slice(out, func(i, j int) bool { return out[i].OrderNumber < out[j].OrderNumber })
	return out, nil
}

// FindByNumber fetches an order. Returns apperr.ErrNotFound when absent.
func (s *Store) FindByNumber(ctx context.Context, orderNumber int64) (Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       key(orderNumber),
	})
	if err != nil {
		return Order{}, fmt.Errorf("%w: get order %d: %w", apperr.ErrPersistence, orderNumber, err)
	}
	if len(out.Item) == 0 {
		return Order{}, fmt.Errorf("order %d: %w", orderNumber, apperr.ErrNotFound)
	}
	return unmarshalOrder(out.Item)
}

// Update overwrites the stored attributes of an existing order and returns the stored
// result. Returns apperr.ErrNotFound if the order vanished in the meantime.
func (s *Store) Update(ctx context.Context, o Order) (Order, error) {
	rec := toRecord(o)
	input := &dyn.UpdateItemInput{
		TableName:        &s.tableName,
		Key:              key(o.OrderNumber),
		UpdateExpression: awsString("SET order_date = :od, total_price = :tp, account_id = :acc, shipping_address_id = :sa, updated_at = :ua"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":od":  &types.AttributeValueMemberS{Value: rec.OrderDate},
			":tp":  &types.AttributeValueMemberS{Value: rec.TotalPrice},
			":acc": &types.AttributeValueMemberN{Value: strconv.FormatInt(rec.AccountID, 10)},
			":sa":  &types.AttributeValueMemberN{Value: strconv.FormatInt(rec.ShippingAddressID, 10)},
			":ua":  &types.AttributeValueMemberS{Value: s.nowFunc().UTC().Format(time.RFC3339Nano)},
		},
		ConditionExpression: awsString("attribute_exists(order_number)"),
		ReturnValues:        types.ReturnValueAllNew,
	}

	out, err := s.client.UpdateItem(ctx, input)
	if err != nil {
		var cc *types.ConditionalCheckFailedException
		if errors.As(err, &cc) {
			return Order{}, fmt.Errorf("order %d: %w", o.OrderNumber, apperr.ErrNotFound)
		}
		return Order{}, fmt.Errorf("%w: update order %d: %w", apperr.ErrPersistence, o.OrderNumber, err)
	}
	return unmarshalOrder(out.Attributes)
}

// DeleteByNumber removes an order. Its lines are left untouched.
func (s *Store) DeleteByNumber(ctx context.Context, orderNumber int64) error {
	_, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName: &s.tableName,
		Key:       key(orderNumber),
	})
	if err != nil {
		return fmt.Errorf("%w: delete order %d: %w", apperr.ErrPersistence, orderNumber, err)
	}
	return nil
}

// storedView drops everything that is not persisted.
func storedView(o Order) Order {
	return Order{
		OrderNumber:       o.OrderNumber,
		OrderDate:         o.OrderDate,
		TotalPrice:        o.TotalPrice,
		AccountID:         o.AccountID,
		ShippingAddressID: o.ShippingAddressID,
	}
}

func unmarshalOrder(item map[string]types.AttributeValue) (Order, error) {
	var r record
	if err := attributevalue.UnmarshalMap(item, &r); err != nil {
		return Order{}, fmt.Errorf("%w: unmarshal order: %w", apperr.ErrPersistence, err)
	}
	o, err := fromRecord(r)
	if err != nil {
		return Order{}, fmt.Errorf("%w: order %d: %w", apperr.ErrPersistence, r.OrderNumber, err)
	}
	return o, nil
}

func key(orderNumber int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		KeyAttribute: &types.AttributeValueMemberN{Value: strconv.FormatInt(orderNumber, 10)},
	}
}

func awsString(s string) *string { return &s }
