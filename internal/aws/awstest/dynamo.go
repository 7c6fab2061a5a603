// Package awstest provides in-memory stand-ins for the DynamoDB, SQS and
// CloudWatch clients. They honor the conditional writes the stores rely on
// and are safe for concurrent use, so race properties can be exercised in
// unit tests.
package awstest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Dynamo is a minimal table store keyed by a single string partition key.
type Dynamo struct {
	mu     sync.Mutex
	keys   map[string]string
	tables map[string]map[string]map[string]types.AttributeValue

	PutErr    error
	GetErr    error
	UpdateErr error
	ScanErr   error

	PutCalls    int
	GetCalls    int
	UpdateCalls int
}

// NewDynamo creates a store with the given tables, mapping table name to
// partition key attribute.
func NewDynamo(tables map[string]string) *Dynamo {
	d := &Dynamo{
		keys:   map[string]string{},
		tables: map[string]map[string]map[string]types.AttributeValue{},
	}
	for name, pk := range tables {
		d.keys[name] = pk
		d.tables[name] = map[string]map[string]types.AttributeValue{}
	}
	return d
}

// Item returns a copy of the stored item, or nil.
func (d *Dynamo) Item(table, pk string) map[string]types.AttributeValue {
	d.mu.Lock()
	defer d.mu.Unlock()
	item, ok := d.tables[table][pk]
	if !ok {
		return nil
	}
	return clone(item)
}

// Len returns the number of items in table.
func (d *Dynamo) Len(table string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tables[table])
}

// Seed stores item without any condition.
func (d *Dynamo) Seed(table string, item map[string]types.AttributeValue) {
	d.mu.Lock()
	defer d.mu.Unlock()
	pk, err := stringAttr(item, d.keys[table])
	if err != nil {
		panic(err)
	}
	d.tables[table][pk] = clone(item)
}

func (d *Dynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.PutCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.PutErr != nil {
		return nil, d.PutErr
	}
	table, pkAttr, err := d.table(params.TableName)
	if err != nil {
		return nil, err
	}
	pk, err := stringAttr(params.Item, pkAttr)
	if err != nil {
		return nil, err
	}
	if params.ConditionExpression != nil {
		if *params.ConditionExpression != "attribute_not_exists("+pkAttr+")" {
			return nil, fmt.Errorf("unsupported condition %q", *params.ConditionExpression)
		}
		if _, exists := d.tables[table][pk]; exists {
			return nil, &types.ConditionalCheckFailedException{Message: strPtr("The conditional request failed")}
		}
	}
	d.tables[table][pk] = clone(params.Item)
	return &dyn.PutItemOutput{}, nil
}

func (d *Dynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.GetCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.GetErr != nil {
		return nil, d.GetErr
	}
	table, pkAttr, err := d.table(params.TableName)
	if err != nil {
		return nil, err
	}
	pk, err := stringAttr(params.Key, pkAttr)
	if err != nil {
		return nil, err
	}
	item, ok := d.tables[table][pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: clone(item)}, nil
}

// UpdateItem supports "SET a = :a, #b = :b" expressions and an optional
// attribute_exists(<pk>) condition.
func (d *Dynamo) UpdateItem(ctx context.Context, params *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.UpdateCalls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.UpdateErr != nil {
		return nil, d.UpdateErr
	}
	table, pkAttr, err := d.table(params.TableName)
	if err != nil {
		return nil, err
	}
	pk, err := stringAttr(params.Key, pkAttr)
	if err != nil {
		return nil, err
	}
	item, exists := d.tables[table][pk]
	if params.ConditionExpression != nil {
		if *params.ConditionExpression != "attribute_exists("+pkAttr+")" {
			return nil, fmt.Errorf("unsupported condition %q", *params.ConditionExpression)
		}
		if !exists {
			return nil, &types.ConditionalCheckFailedException{Message: strPtr("The conditional request failed")}
		}
	}
	if !exists {
		item = clone(params.Key)
	}
	if params.UpdateExpression == nil || !strings.HasPrefix(*params.UpdateExpression, "SET ") {
		return nil, errors.New("unsupported update expression")
	}
	for _, assign := range strings.Split(strings.TrimPrefix(*params.UpdateExpression, "SET "), ",") {
		parts := strings.SplitN(assign, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("bad assignment %q", assign)
		}
		name := strings.TrimSpace(parts[0])
		if alias, ok := params.ExpressionAttributeNames[name]; ok {
			name = alias
		}
		val, ok := params.ExpressionAttributeValues[strings.TrimSpace(parts[1])]
		if !ok {
			return nil, fmt.Errorf("missing value for %q", assign)
		}
		item[name] = val
	}
	d.tables[table][pk] = item
	return &dyn.UpdateItemOutput{Attributes: clone(item)}, nil
}

// Scan returns every item ordered by partition key, in a single page.
func (d *Dynamo) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.ScanErr != nil {
		return nil, d.ScanErr
	}
	table, _, err := d.table(params.TableName)
	if err != nil {
		return nil, err
	}
	pks := make([]string, 0, len(d.tables[table]))
	for pk := range d.tables[table] {
		pks = append(pks, pk)
	}
	sort.Strings(pks)
	items := make([]map[string]types.AttributeValue, 0, len(pks))
	for _, pk := range pks {
		items = append(items, clone(d.tables[table][pk]))
	}
	return &dyn.ScanOutput{Items: items, Count: int32(len(items))}, nil
}

func (d *Dynamo) table(name *string) (string, string, error) {
	if name == nil {
		return "", "", errors.New("missing table name")
	}
	pk, ok := d.keys[*name]
	if !ok {
		return "", "", &types.ResourceNotFoundException{Message: strPtr("table not found: " + *name)}
	}
	return *name, pk, nil
}

func stringAttr(item map[string]types.AttributeValue, attr string) (string, error) {
	v, ok := item[attr].(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("missing string key attribute %q", attr)
	}
	return v.Value, nil
}

func clone(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func strPtr(s string) *string { return &s }
