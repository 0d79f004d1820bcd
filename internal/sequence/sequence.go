// Package sequence hands out monotonically increasing numeric identifiers
// backed by a DynamoDB counter table.
package sequence

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/derrick-solstice/e-commerce-order/internal/aws"
)

// Well-known sequence names.
const (
	OrderNumber = "order_number"
	LineItemID  = "line_item_id"
)

// KeyAttribute is the hash key of the sequences table.
const KeyAttribute = "sequence_name"

// Allocator increments named counters in the sequences table.
type Allocator struct {
	client    aws.DynamoDBAPI
	tableName string
}

// NewAllocator returns an Allocator over tableName.
func NewAllocator(client aws.DynamoDBAPI, tableName string) *Allocator {
	return &Allocator{client: client, tableName: tableName}
}

// Next atomically increments the named counter and returns the new value. The first
// value handed out for a fresh counter is 1.
func (a *Allocator) Next(ctx context.Context, name string) (int64, error) {
	out, err := a.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName: &a.tableName,
		Key: map[string]types.AttributeValue{
			KeyAttribute: &types.AttributeValueMemberS{Value: name},
		},
		UpdateExpression: awsString("ADD current_value :inc"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":inc": &types.AttributeValueMemberN{Value: "1"},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("increment sequence %s: %w", name, err)
	}

	var next int64
	if err := attributevalue.Unmarshal(out.Attributes["current_value"], &next); err != nil {
		return 0, fmt.Errorf("unmarshal sequence %s: %w", name, err)
	}
	return next, nil
}

func awsString(s string) *string { return &s }
