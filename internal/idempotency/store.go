package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/derrick-solstice/e-commerce-order/internal/aws"
)

// ErrUnknownKey is returned when completing or failing a key that was never begun.
var ErrUnknownKey = errors.New("idempotency key not found")

// Store keeps one record per idempotency key in DynamoDB.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	ttlWindow time.Duration
	nowFunc   func() time.Time
}

// NewStore returns a Store over tableName whose records expire after ttlWindow.
func NewStore(client aws.DynamoDBAPI, tableName string, ttlWindow time.Duration) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		ttlWindow: ttlWindow,
		nowFunc:   time.Now,
	}
}

// Begin claims key with status IN_PROGRESS.
// Returns (true, nil) if the key was free or its previous attempt FAILED.
// Returns (false, nil) if the key is IN_PROGRESS or DONE; callers should Get it.
func (s *Store) Begin(ctx context.Context, key string) (bool, error) {
	now := s.nowFunc().UTC()
	rec := Record{
		Key:       key,
		Status:    StatusInProgress,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttlWindow).Unix(),
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return false, fmt.Errorf("marshal record: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:                &s.tableName,
		Item:                     item,
		ConditionExpression:      awsString("attribute_not_exists(idempotency_key) OR #s = :failed"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":failed": &types.AttributeValueMemberS{Value: StatusFailed},
		},
	})
	if err != nil {
		if isConditionFailure(err) {
			return false, nil
		}
		return false, fmt.Errorf("put item: %w", err)
	}
	return true, nil
}

// Get retrieves the record for key. If not found, returns (nil, nil).
func (s *Store) Get(ctx context.Context, key string) (*Record, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       recordKey(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	return &rec, nil
}

// Complete marks key DONE and stores the response to replay for duplicates.
func (s *Store) Complete(ctx context.Context, key, responseBody string, responseStatus int) error {
	return s.update(ctx, key, "SET #s = :st, response_body = :rb, response_status = :rs, updated_at = :ua",
		map[string]types.AttributeValue{
			":st": &types.AttributeValueMemberS{Value: StatusDone},
			":rb": &types.AttributeValueMemberS{Value: responseBody},
			":rs": &types.AttributeValueMemberN{Value: strconv.Itoa(responseStatus)},
		})
}

// Fail marks key FAILED with a note, which frees it for another Begin.
func (s *Store) Fail(ctx context.Context, key, note string) error {
	return s.update(ctx, key, "SET #s = :st, note = :n, updated_at = :ua",
		map[string]types.AttributeValue{
			":st": &types.AttributeValueMemberS{Value: StatusFailed},
			":n":  &types.AttributeValueMemberS{Value: note},
		})
}

func (s *Store) update(ctx context.Context, key, expr string, values map[string]types.AttributeValue) error {
	values[":ua"] = &types.AttributeValueMemberS{Value: s.nowFunc().UTC().Format(time.RFC3339Nano)}
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       recordKey(key),
		UpdateExpression:          &expr,
		ConditionExpression:       awsString("attribute_exists(idempotency_key)"),
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: values,
	})
	if err != nil {
		if isConditionFailure(err) {
			return fmt.Errorf("%s: %w", key, ErrUnknownKey)
		}
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func isConditionFailure(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "ConditionalCheckFailedException"
}

func recordKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		KeyAttribute: &types.AttributeValueMemberS{Value: key},
	}
}

func awsString(s string) *string { return &s }
