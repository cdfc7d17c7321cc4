package prefs

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"

	"github.com/way7creation/catalogx"
)

const stateSortKey = "browse-state"

// DynamoAPI is the subset of the DynamoDB client the store needs.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoStore persists state in a DynamoDB table keyed by user ID, for
// deployments where browsing preferences follow the user across hosts.
type DynamoStore struct {
	client DynamoAPI
	table  string
	userID string
}

// NewDynamoStore creates a store over an existing table. userID becomes
// the partition key of the persisted record.
func NewDynamoStore(client DynamoAPI, table, userID string) *DynamoStore {
	return &DynamoStore{client: client, table: table, userID: userID}
}

type stateRecord struct {
	ID    string                  `dynamodbav:"pk"`
	Sort  string                  `dynamodbav:"sk"`
	State catalogx.PersistedState `dynamodbav:"state"`
}

func (s *DynamoStore) key() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: s.userID},
		"sk": &types.AttributeValueMemberS{Value: stateSortKey},
	}
}

// Load fetches the persisted state. A missing item or a record that no
// longer unmarshals yields defaults; transport errors are returned.
func (s *DynamoStore) Load(ctx context.Context) (catalogx.PersistedState, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       s.key(),
	})
	if err != nil {
		return catalogx.DefaultPersistedState(), errors.Wrap(err, "loading state item")
	}
	if out.Item == nil {
		return catalogx.DefaultPersistedState(), nil
	}
	var rec stateRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return catalogx.DefaultPersistedState(), nil
	}
	return rec.State.Sanitize(), nil
}

// Save writes the state item, replacing any prior record for the user.
func (s *DynamoStore) Save(ctx context.Context, st catalogx.PersistedState) error {
	item, err := attributevalue.MarshalMap(stateRecord{
		ID:    s.userID,
		Sort:  stateSortKey,
		State: st,
	})
	if err != nil {
		return errors.Wrap(err, "encoding state item")
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	}); err != nil {
		return errors.Wrap(err, "writing state item")
	}
	return nil
}
