package usage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the slice of the DynamoDB client the store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoStore keeps usage counters in a DynamoDB table.
type DynamoStore struct {
	client DynamoAPI
	table  string
}

// NewDynamoStore creates a store backed by the given table.
func NewDynamoStore(client DynamoAPI, table string) *DynamoStore {
	return &DynamoStore{client: client, table: table}
}

func (s *DynamoStore) itemKey(key Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: key.PK()},
		"SK": &types.AttributeValueMemberS{Value: key.SK()},
	}
}

// Get returns the bucket's counters, or absence if the item does not exist.
func (s *DynamoStore) Get(ctx context.Context, key Key) (Record, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       s.itemKey(key),
	})
	if err != nil {
		return Record{}, false, fmt.Errorf("usage: get %s: %w", key.PK(), err)
	}
	if len(out.Item) == 0 {
		return Record{}, false, nil
	}

	var rec Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return Record{}, false, fmt.Errorf("usage: unmarshal %s: %w", key.PK(), err)
	}
	return rec, true, nil
}

// Add applies the delta with a single ADD update expression, so the
// increment is atomic at the table regardless of concurrent writers.
func (s *DynamoStore) Add(ctx context.Context, key Key, delta Delta) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.table),
		Key:              s.itemKey(key),
		UpdateExpression: aws.String("ADD invocationCount :inc, inputTokens :in, outputTokens :out, totalTokens :tot"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":inc": numberAttr(delta.InvocationCount),
			":in":  numberAttr(delta.InputTokens),
			":out": numberAttr(delta.OutputTokens),
			":tot": numberAttr(delta.TotalTokens),
		},
	})
	if err != nil {
		return fmt.Errorf("usage: add %s: %w", key.PK(), err)
	}
	return nil
}

func numberAttr(n uint64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatUint(n, 10)}
}
