package lines

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/derrick-solstice/e-commerce-order/internal/apperr"
	"github.com/derrick-solstice/e-commerce-order/internal/aws"
	"github.com/derrick-solstice/e-commerce-order/internal/sequence"
)

// KeyAttribute is the hash key of the lines table.
const KeyAttribute = "line_item_id"

// IDAllocator hands out new line item ids.
type IDAllocator interface {
	Next(ctx context.Context, name string) (int64, error)
}

// Store persists lines in DynamoDB. Lines are looked up per order through a
// global secondary index on order_number.
type Store struct {
	client     aws.DynamoDBAPI
	tableName  string
	orderIndex string
	ids        IDAllocator
}

// NewStore creates a lines Store.
func NewStore(client aws.DynamoDBAPI, tableName, orderIndex string, ids IDAllocator) *Store {
	return &Store{
		client:     client,
		tableName:  tableName,
		orderIndex: orderIndex,
		ids:        ids,
	}
}

// Insert assigns a new line item id and writes the line.
func (s *Store) Insert(ctx context.Context, l Line) (Line, error) {
	id, err := s.ids.Next(ctx, sequence.LineItemID)
	if err != nil {
		return Line{}, fmt.Errorf("%w: allocate line id: %w", apperr.ErrPersistence, err)
	}
	l.LineItemID = id

	item, err := attributevalue.MarshalMap(toRecord(l))
	if err != nil {
		return Line{}, fmt.Errorf("%w: marshal line: %w", apperr.ErrPersistence, err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: awsString("attribute_not_exists(line_item_id)"),
	})
	if err != nil {
		return Line{}, fmt.Errorf("%w: put line %d: %w", apperr.ErrPersistence, id, err)
	}
	return l, nil
}

// FindByOrderNumber returns every line of an order ordered by line item id.
func (s *Store) FindByOrderNumber(ctx context.Context, orderNumber int64) ([]Line, error) {
	input := &dyn.QueryInput{
		TableName:              &s.tableName,
		IndexName:              &s.orderIndex,
		KeyConditionExpression: awsString("order_number = :on"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":on": &types.AttributeValueMemberN{Value: strconv.FormatInt(orderNumber, 10)},
		},
	}

	out := []Line{}
	for {
		page, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("%w: query lines for order %d: %w", apperr.ErrPersistence, orderNumber, err)
		}
		for _, it := range page.Items {
			l, err := unmarshalLine(it)
			if err != nil {
				return nil, err
			}
			out = append(out, l)
		}
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = page.LastEvaluatedKey
	}

	sort.Slice(out, func(i, j int) bool { return out[i].LineItemID < out[j].LineItemID })
	return out, nil
}

// FindByID fetches a single line. Returns apperr.ErrNotFound when absent.
func (s *Store) FindByID(ctx context.Context, lineItemID int64) (Line, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       key(lineItemID),
	})
	if err != nil {
		return Line{}, fmt.Errorf("%w: get line %d: %w", apperr.ErrPersistence, lineItemID, err)
	}
	if len(out.Item) == 0 {
		return Line{}, fmt.Errorf("line %d: %w", lineItemID, apperr.ErrNotFound)
	}
	return unmarshalLine(out.Item)
}

// DeleteByID removes a line. Deleting a missing line is not an error.
func (s *Store) DeleteByID(ctx context.Context, lineItemID int64) error {
	_, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{
		TableName: &s.tableName,
		Key:       key(lineItemID),
	})
	if err != nil {
		return fmt.Errorf("%w: delete line %d: %w", apperr.ErrPersistence, lineItemID, err)
	}
	return nil
}

func unmarshalLine(item map[string]types.AttributeValue) (Line, error) {
	var r record
	if err := attributevalue.UnmarshalMap(item, &r); err != nil {
		return Line{}, fmt.Errorf("%w: unmarshal line: %w", apperr.ErrPersistence, err)
	}
	l, err := fromRecord(r)
	if err != nil {
		return Line{}, fmt.Errorf("%w: line %d price: %w", apperr.ErrPersistence, r.LineItemID, err)
	}
	return l, nil
}

func key(lineItemID int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		KeyAttribute: &types.AttributeValueMemberN{Value: strconv.FormatInt(lineItemID, 10)},
	}
}

func awsString(s string) *string { return &s }
