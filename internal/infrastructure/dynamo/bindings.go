package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/latent-app/latent-api/internal/domain"
)

// BindingRepo is the ephemeral token store for recovery bindings.
// PK: code. Expiry is enforced twice: by the table's TTL attribute and by an
// explicit timestamp check on consume, because DynamoDB TTL deletion lags.
type BindingRepo struct {
	client    *dynamodb.Client
	tableName string
	now       func() time.Time
}

func NewBindingRepo(client *dynamodb.Client, tableName string) *BindingRepo {
	return &BindingRepo{client: client, tableName: tableName, now: time.Now}
}

func (r *BindingRepo) Put(ctx context.Context, b *domain.RecoveryBinding) error {
	item, err := attributevalue.MarshalMap(b)
	if err != nil {
		return fmt.Errorf("marshal recovery binding: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// Consume atomically deletes the binding for code and returns it. DeleteItem
// with a condition and ALL_OLD is the store's atomic get-and-delete: of two
// racing redemptions, exactly one receives the old item and the other gets
// ErrCodeExpired. A binding past its TTL that the store has not yet reaped
// is also reported as ErrCodeExpired.
func (r *BindingRepo) Consume(ctx context.Context, code string) (*domain.RecoveryBinding, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("code", code),
		ConditionExpression: aws.String("attribute_exists(code)"),
		ReturnValues:        types.ReturnValueAllOld,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, fmt.Errorf("no binding for code: %w", domain.ErrCodeExpired)
		}
		return nil, err
	}
	var b domain.RecoveryBinding
	if err := attributevalue.UnmarshalMap(out.Attributes, &b); err != nil {
		return nil, err
	}
	if b.ExpiresAt < r.now().Unix() {
		return nil, fmt.Errorf("binding past TTL: %w", domain.ErrCodeExpired)
	}
	return &b, nil
}
