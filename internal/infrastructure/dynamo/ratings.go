package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/latent-app/latent-api/internal/domain"
)

// RatingRepo provides typed DynamoDB operations for the ratings table.
// PK: rating_id; the (tenant_id, agent_id) pair is reachable via GSI.
type RatingRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewRatingRepo(client *dynamodb.Client, tableName string) *RatingRepo {
	return &RatingRepo{client: client, tableName: tableName}
}

func (r *RatingRepo) Put(ctx context.Context, rec *domain.Rating) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal rating: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// FindByPair returns the single rating record for a (tenant, agent) pair.
func (r *RatingRepo) FindByPair(ctx context.Context, tenantID, agentID string) (*domain.Rating, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("tenant_id-agent_id-index"),
		KeyConditionExpression: aws.String("tenant_id = :t AND agent_id = :a"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberS{Value: tenantID},
			":a": &types.AttributeValueMemberS{Value: agentID},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("rating record not found: %w", domain.ErrNotFound)
	}
	var rec domain.Rating
	if err := attributevalue.UnmarshalMap(out.Items[0], &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// UpdateTenantRating overwrites the mirrored rating value on an existing record.
func (r *RatingRepo) UpdateTenantRating(ctx context.Context, ratingID string, rating int) error {
	ue, err := buildUpdateExpr(map[string]interface{}{"tenant_rating": rating})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("rating_id", ratingID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// ListByAgent returns every rating record referencing an agent, for the
// account-deletion cascade.
func (r *RatingRepo) ListByAgent(ctx context.Context, agentID string) ([]domain.Rating, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("agent_id-index"),
		KeyConditionExpression: aws.String("agent_id = :a"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":a": &types.AttributeValueMemberS{Value: agentID},
		},
	})
	if err != nil {
		return nil, err
	}
	var recs []domain.Rating
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *RatingRepo) HardDelete(ctx context.Context, ratingID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("rating_id", ratingID),
	})
	return err
}
