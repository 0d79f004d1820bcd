// Package dynamotest provides an in-memory DynamoDB stand-in for store tests.
//
// It understands the small expression subset the stores in this module issue:
// attribute_exists / attribute_not_exists conditions joined with OR, equality
// conditions, "SET a = :x, b = :y" and "ADD a :n" updates, and single
// equality key conditions on Query.
package dynamotest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type item = map[string]types.AttributeValue

// Fake is a concurrency-safe in-memory table set keyed by a single hash key per table.
type Fake struct {
	mu     sync.Mutex
	keys   map[string]string
	tables map[string]map[string]item

	// FailOn makes the named operation (e.g. "GetItem") return the error.
	FailOn map[string]error
	// Calls counts invocations per operation name.
	Calls map[string]int
}

// New returns a Fake with the given table name -> hash key attribute mapping.
func New(tableKeys map[string]string) *Fake {
	f := &Fake{
		keys:   map[string]string{},
		tables: map[string]map[string]item{},
		FailOn: map[string]error{},
		Calls:  map[string]int{},
	}
	for table, key := range tableKeys {
		f.keys[table] = key
		f.tables[table] = map[string]item{}
	}
	return f
}

// Items returns a copy of every item stored in table.
func (f *Fake) Items(table string) []map[string]types.AttributeValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sorted(table)
}

// Item returns a copy of the item with the given hash key value, or nil.
func (f *Fake) Item(table, key string) map[string]types.AttributeValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.tables[table][key]
	if !ok {
		return nil
	}
	return clone(it)
}

// Seed stores raw items directly, bypassing conditions.
func (f *Fake) Seed(table string, items ...map[string]types.AttributeValue) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range items {
		k, err := f.keyOf(table, it)
		if err != nil {
			return err
		}
		f.tables[table][k] = clone(it)
	}
	return nil
}

func (f *Fake) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("PutItem"); err != nil {
		return nil, err
	}
	table := deref(params.TableName)
	k, err := f.keyOf(table, params.Item)
	if err != nil {
		return nil, err
	}
	existing := f.tables[table][k]
	if err := check(params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, existing); err != nil {
		return nil, err
	}
	f.tables[table][k] = clone(params.Item)
	return &dyn.PutItemOutput{}, nil
}

func (f *Fake) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetItem"); err != nil {
		return nil, err
	}
	table := deref(params.TableName)
	k, err := f.keyOf(table, params.Key)
	if err != nil {
		return nil, err
	}
	it, ok := f.tables[table][k]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: clone(it)}, nil
}

func (f *Fake) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteItem"); err != nil {
		return nil, err
	}
	table := deref(params.TableName)
	k, err := f.keyOf(table, params.Key)
	if err != nil {
		return nil, err
	}
	existing := f.tables[table][k]
	if err := check(params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, existing); err != nil {
		return nil, err
	}
	delete(f.tables[table], k)
	return &dyn.DeleteItemOutput{}, nil
}

func (f *Fake) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateItem"); err != nil {
		return nil, err
	}
	table := deref(params.TableName)
	k, err := f.keyOf(table, params.Key)
	if err != nil {
		return nil, err
	}
	existing := f.tables[table][k]
	if err := check(params.ConditionExpression, params.ExpressionAttributeNames, params.ExpressionAttributeValues, existing); err != nil {
		return nil, err
	}

	updated := clone(existing)
	if updated == nil {
		updated = clone(params.Key)
	}
	changed := item{}

	expr := strings.TrimSpace(deref(params.UpdateExpression))
	switch {
	case strings.HasPrefix(expr, "SET "):
		for _, assignment := range strings.Split(strings.TrimPrefix(expr, "SET "), ",") {
			parts := strings.SplitN(assignment, "=", 2)
			if len(parts) != 2 {
				return nil, fmt.Errorf("dynamotest: unsupported SET clause %q", assignment)
			}
			name := resolveName(strings.TrimSpace(parts[0]), params.ExpressionAttributeNames)
			v, ok := params.ExpressionAttributeValues[strings.TrimSpace(parts[1])]
			if !ok {
				return nil, fmt.Errorf("dynamotest: missing value %q", parts[1])
			}
			updated[name] = v
			changed[name] = v
		}
	case strings.HasPrefix(expr, "ADD "):
		fields := strings.Fields(strings.TrimPrefix(expr, "ADD "))
		if len(fields) != 2 {
			return nil, fmt.Errorf("dynamotest: unsupported ADD clause %q", expr)
		}
		name := resolveName(fields[0], params.ExpressionAttributeNames)
		inc, err := number(params.ExpressionAttributeValues[fields[1]])
		if err != nil {
			return nil, err
		}
		var cur int64
		if v, ok := updated[name]; ok {
			if cur, err = number(v); err != nil {
				return nil, err
			}
		}
		v := &types.AttributeValueMemberN{Value: strconv.FormatInt(cur+inc, 10)}
		updated[name] = v
		changed[name] = v
	default:
		return nil, fmt.Errorf("dynamotest: unsupported update expression %q", expr)
	}

	f.tables[table][k] = updated

	out := &dyn.UpdateItemOutput{}
	switch params.ReturnValues {
	case types.ReturnValueAllNew:
		out.Attributes = clone(updated)
	case types.ReturnValueUpdatedNew:
		out.Attributes = changed
	}
	return out, nil
}

func (f *Fake) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Query"); err != nil {
		return nil, err
	}
	table := deref(params.TableName)
	if _, ok := f.tables[table]; !ok {
		return nil, &types.ResourceNotFoundException{Message: params.TableName}
	}
	parts := strings.SplitN(deref(params.KeyConditionExpression), "=", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("dynamotest: unsupported key condition %q", deref(params.KeyConditionExpression))
	}
	name := resolveName(strings.TrimSpace(parts[0]), params.ExpressionAttributeNames)
	want := params.ExpressionAttributeValues[strings.TrimSpace(parts[1])]

	var matched []item
	for _, it := range f.sorted(table) {
		if equal(it[name], want) {
			matched = append(matched, it)
		}
	}
	return &dyn.QueryOutput{Items: matched, Count: int32(len(matched))}, nil
}

func (f *Fake) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Scan"); err != nil {
		return nil, err
	}
	table := deref(params.TableName)
	if _, ok := f.tables[table]; !ok {
		return nil, &types.ResourceNotFoundException{Message: params.TableName}
	}
	items := f.sorted(table)
	return &dyn.ScanOutput{Items: items, Count: int32(len(items))}, nil
}

func (f *Fake) enter(op string) error {
	f.Calls[op]++
	return f.FailOn[op]
}

func (f *Fake) keyOf(table string, it item) (string, error) {
	keyAttr, ok := f.keys[table]
	if !ok {
		return "", &types.ResourceNotFoundException{Message: &table}
	}
	switch v := it[keyAttr].(type) {
	case *types.AttributeValueMemberS:
		return v.Value, nil
	case *types.AttributeValueMemberN:
		return v.Value, nil
	default:
		return "", fmt.Errorf("dynamotest: table %s: missing key attribute %s", table, keyAttr)
	}
}

func (f *Fake) sorted(table string) []map[string]types.AttributeValue {
	keys := make([]string, 0, len(f.tables[table]))
	for k := range f.tables[table] {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.ParseInt(keys[i], 10, 64)
		b, errB := strconv.ParseInt(keys[j], 10, 64)
		if errA == nil && errB == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	out := make([]map[string]types.AttributeValue, 0, len(keys))
	for _, k := range keys {
		out = append(out, clone(f.tables[table][k]))
	}
	return out
}

// check evaluates a condition expression made of clauses joined by OR.
func check(condition *string, names map[string]string, values map[string]types.AttributeValue, existing item) error {
	expr := strings.TrimSpace(deref(condition))
	if expr == "" {
		return nil
	}
	for _, clause := range strings.Split(expr, " OR ") {
		ok, err := clauseHolds(strings.TrimSpace(clause), names, values, existing)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return &types.ConditionalCheckFailedException{Message: condition}
}

func clauseHolds(clause string, names map[string]string, values map[string]types.AttributeValue, existing item) (bool, error) {
	switch {
	case strings.HasPrefix(clause, "attribute_not_exists(") && strings.HasSuffix(clause, ")"):
		name := resolveName(clause[len("attribute_not_exists("):len(clause)-1], names)
		_, ok := existing[name]
		return !ok, nil
	case strings.HasPrefix(clause, "attribute_exists(") && strings.HasSuffix(clause, ")"):
		name := resolveName(clause[len("attribute_exists("):len(clause)-1], names)
		_, ok := existing[name]
		return ok, nil
	case strings.Contains(clause, "="):
		parts := strings.SplitN(clause, "=", 2)
		name := resolveName(strings.TrimSpace(parts[0]), names)
		return equal(existing[name], values[strings.TrimSpace(parts[1])]), nil
	default:
		return false, fmt.Errorf("dynamotest: unsupported condition %q", clause)
	}
}

func resolveName(name string, names map[string]string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "#") {
		if resolved, ok := names[name]; ok {
			return resolved
		}
	}
	return name
}

func equal(a, b types.AttributeValue) bool {
	if a == nil || b == nil {
		return false
	}
	return reflect.DeepEqual(a, b)
}

func number(v types.AttributeValue) (int64, error) {
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, errors.New("dynamotest: ADD requires a number")
	}
	return strconv.ParseInt(n.Value, 10, 64)
}

func clone(it item) item {
	if it == nil {
		return nil
	}
	out := make(item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
