package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/lgphp/activedoc/odm"
)

// DynamoConfig holds configuration for the DynamoDB store.
type DynamoConfig struct {
	// TablePrefix is prepended to every collection name to form the
	// DynamoDB table name. Default: "" (table name equals collection).
	TablePrefix string
}

// DynamoStore stores each collection in a DynamoDB table whose partition
// key is the string attribute "_id". Predicate enforcement uses condition
// expressions, so a revision check-and-replace is atomic at the storage
// layer; a failed condition counts as zero affected documents.
//
// Timestamps are stored as RFC 3339 strings and identifiers as strings.
type DynamoStore struct {
	client *dynamodb.Client
	config DynamoConfig

	mu       sync.Mutex
	affected int64
}

// NewDynamoStore creates a DynamoStore on an existing DynamoDB client.
func NewDynamoStore(client *dynamodb.Client, config DynamoConfig) *DynamoStore {
	return &DynamoStore{
		client: client,
		config: config,
	}
}

func (d *DynamoStore) tableName(collection string) string {
	return d.config.TablePrefix + collection
}

// Insert puts doc as a new item, assigning a fresh identity if the
// document has none. Inserting an identity that already exists fails.
func (d *DynamoStore) Insert(ctx context.Context, collection string, doc *odm.Document) (*odm.Document, error) {
	stored := doc.Clone()
	if _, ok := identityOf(stored); !ok {
		stored.Set(odm.IdentityKey, odm.ObjectID(uuid.NewString()))
	}
	item, err := marshalItem(stored)
	if err != nil {
		return nil, err
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(d.tableName(collection)),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#id)"),
		ExpressionAttributeNames: map[string]string{"#id": odm.IdentityKey},
	})
	if err != nil {
		d.setAffected(0)
		return nil, err
	}
	d.setAffected(1)
	return stored, nil
}

// Update replaces the item named by the predicate's identity, guarded by
// a condition expression over the remaining predicate keys. A failed
// condition (missing item or stale revision) counts as zero affected.
func (d *DynamoStore) Update(ctx context.Context, collection string, predicate, doc *odm.Document) (bool, error) {
	id, ok := identityOf(predicate)
	if !ok {
		return false, fmt.Errorf("docstore: predicate must include %s", odm.IdentityKey)
	}

	replacement := doc.Clone()
	if _, ok := identityOf(replacement); !ok {
		replacement.Set(odm.IdentityKey, id)
	}
	item, err := marshalItem(replacement)
	if err != nil {
		return false, err
	}

	condition, names, values, err := predicateCondition(predicate)
	if err != nil {
		return false, err
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(d.tableName(collection)),
		Item:                      item,
		ConditionExpression:       aws.String(condition),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			d.setAffected(0)
			return false, nil
		}
		d.setAffected(0)
		return false, err
	}
	d.setAffected(1)
	return true, nil
}

// Remove deletes the item named by the predicate's identity, guarded by
// a condition expression over the remaining predicate keys.
func (d *DynamoStore) Remove(ctx context.Context, collection string, predicate *odm.Document) (bool, error) {
	id, ok := identityOf(predicate)
	if !ok {
		return false, fmt.Errorf("docstore: predicate must include %s", odm.IdentityKey)
	}

	condition, names, values, err := predicateCondition(predicate)
	if err != nil {
		return false, err
	}

	_, err = d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tableName(collection)),
		Key: map[string]types.AttributeValue{
			odm.IdentityKey: &types.AttributeValueMemberS{Value: string(id)},
		},
		ConditionExpression:       aws.String(condition),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			d.setAffected(0)
			return false, nil
		}
		d.setAffected(0)
		return false, err
	}
	d.setAffected(1)
	return true, nil
}

// Find fetches the item named by the predicate's identity; any remaining
// predicate keys are checked on the fetched document.
func (d *DynamoStore) Find(ctx context.Context, collection string, predicate *odm.Document) (*odm.Document, error) {
	id, ok := identityOf(predicate)
	if !ok {
		return nil, fmt.Errorf("docstore: predicate must include %s", odm.IdentityKey)
	}

	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tableName(collection)),
		Key: map[string]types.AttributeValue{
			odm.IdentityKey: &types.AttributeValueMemberS{Value: string(id)},
		},
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil {
		return nil, odm.ErrNotFound
	}

	var raw map[string]any
	if err := attributevalue.UnmarshalMap(result.Item, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal item: %w", err)
	}
	doc := odm.NewDocument()
	doc.Set(odm.IdentityKey, id)
	for k, v := range raw {
		if k == odm.IdentityKey {
			continue
		}
		doc.Set(k, v)
	}
	if !matches(doc, predicate) {
		return nil, odm.ErrNotFound
	}
	return doc, nil
}

// AffectedCount returns the number of documents affected by the most
// recent write.
func (d *DynamoStore) AffectedCount() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.affected
}

func (d *DynamoStore) setAffected(n int64) {
	d.mu.Lock()
	d.affected = n
	d.mu.Unlock()
}

// marshalItem converts a document to DynamoDB attribute values.
// Timestamps become RFC 3339 strings, identifiers plain strings.
func marshalItem(doc *odm.Document) (map[string]types.AttributeValue, error) {
	plain := make(map[string]any, doc.Len())
	for _, k := range doc.Keys() {
		v, _ := doc.Get(k)
		switch tv := v.(type) {
		case time.Time:
			plain[k] = tv.UTC().Format(time.RFC3339Nano)
		case odm.ObjectID:
			plain[k] = string(tv)
		default:
			plain[k] = v
		}
	}
	item, err := attributevalue.MarshalMap(plain)
	if err != nil {
		return nil, fmt.Errorf("marshal item: %w", err)
	}
	return item, nil
}

// predicateCondition builds the condition expression enforcing the
// predicate: the item must exist, and every non-identity key must match.
func predicateCondition(predicate *odm.Document) (string, map[string]string, map[string]types.AttributeValue, error) {
	parts := []string{"attribute_exists(#id)"}
	names := map[string]string{"#id": odm.IdentityKey}
	values := map[string]types.AttributeValue{}

	i := 0
	for _, k := range predicate.Keys() {
		if k == odm.IdentityKey {
			continue
		}
		v, _ := predicate.Get(k)
		nameKey := fmt.Sprintf("#p%d", i)
		valueKey := fmt.Sprintf(":p%d", i)

		switch tv := v.(type) {
		case time.Time:
			v = tv.UTC().Format(time.RFC3339Nano)
		case odm.ObjectID:
			v = string(tv)
		}
		attr, err := attributevalue.Marshal(v)
		if err != nil {
			return "", nil, nil, fmt.Errorf("marshal predicate %q: %w", k, err)
		}
		names[nameKey] = k
		values[valueKey] = attr
		parts = append(parts, fmt.Sprintf("%s = %s", nameKey, valueKey))
		i++
	}

	if len(values) == 0 {
		return parts[0], names, nil, nil
	}
	return strings.Join(parts, " AND "), names, values, nil
}
