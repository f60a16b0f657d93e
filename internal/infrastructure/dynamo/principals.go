package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/latent-app/latent-api/internal/domain"
)

// PrincipalRepo provides typed DynamoDB operations for one principal table
// (tenants or agents). Both tables share the same key layout, so a single
// repo type parameterised by table and kind serves both; the review and
// listing operations are only ever called through the agent repo.
type PrincipalRepo struct {
	client    *dynamodb.Client
	tableName string
	kind      domain.Kind
}

func NewTenantRepo(client *dynamodb.Client, tableName string) *PrincipalRepo {
	return &PrincipalRepo{client: client, tableName: tableName, kind: domain.KindTenant}
}

func NewAgentRepo(client *dynamodb.Client, tableName string) *PrincipalRepo {
	return &PrincipalRepo{client: client, tableName: tableName, kind: domain.KindAgent}
}

// Kind reports which principal variant this repo stores.
func (r *PrincipalRepo) Kind() domain.Kind { return r.kind }

func (r *PrincipalRepo) Put(ctx context.Context, p *domain.Principal) error {
	p.Kind = r.kind
	item, err := attributevalue.MarshalMap(p)
	if err != nil {
		return fmt.Errorf("marshal principal: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *PrincipalRepo) Get(ctx context.Context, principalID string) (*domain.Principal, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("principal_id", principalID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("%s not found: %w", r.kind, domain.ErrNotFound)
	}
	return r.unmarshal(out.Item)
}

// GetByEmail looks up a principal via the email GSI. Email is globally
// unique within a table; the service layer enforces uniqueness across both.
func (r *PrincipalRepo) GetByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("email-index"),
		KeyConditionExpression: aws.String("email = :e"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":e": &types.AttributeValueMemberS{Value: email},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("%s not found: %w", r.kind, domain.ErrNotFound)
	}
	return r.unmarshal(out.Items[0])
}

// FindByIdentity matches a principal on all three identity attributes, as
// the recovery flow requires. Queries the email GSI and filters on names.
func (r *PrincipalRepo) FindByIdentity(ctx context.Context, email, firstName, lastName string) (*domain.Principal, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("email-index"),
		KeyConditionExpression: aws.String("email = :e"),
		FilterExpression:       aws.String("first_name = :fn AND last_name = :ln"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":e":  &types.AttributeValueMemberS{Value: email},
			":fn": &types.AttributeValueMemberS{Value: firstName},
			":ln": &types.AttributeValueMemberS{Value: lastName},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("%s not found: %w", r.kind, domain.ErrNotFound)
	}
	return r.unmarshal(out.Items[0])
}

func (r *PrincipalRepo) Update(ctx context.Context, principalID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("principal_id", principalID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// HardDelete removes the principal record. Cascades (houses, ratings,
// sessions) are the service layer's job.
func (r *PrincipalRepo) HardDelete(ctx context.Context, principalID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("principal_id", principalID),
	})
	return err
}

// AppendList appends a value to one of the principal's list attributes
// (cart or listings), creating the list when absent.
func (r *PrincipalRepo) AppendList(ctx context.Context, principalID, attr, value string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(r.tableName),
		Key:              strKey("principal_id", principalID),
		UpdateExpression: aws.String("SET #l = list_append(if_not_exists(#l, :empty), :v)"),
		ExpressionAttributeNames: map[string]string{"#l": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberL{Value: []types.AttributeValue{
				&types.AttributeValueMemberS{Value: value},
			}},
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
		},
	})
	return err
}

// RemoveListElem removes the element at idx from a list attribute.
func (r *PrincipalRepo) RemoveListElem(ctx context.Context, principalID, attr string, idx int) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey("principal_id", principalID),
		UpdateExpression:         aws.String(fmt.Sprintf("REMOVE #l[%d]", idx)),
		ExpressionAttributeNames: map[string]string{"#l": attr},
	})
	return err
}

// AppendReview appends an embedded review and bumps the running rating
// aggregate in the same write, so the (sum, count) pair can never drift
// from the review list even under concurrent reviews.
func (r *PrincipalRepo) AppendReview(ctx context.Context, agentID string, rev domain.Review) error {
	item, err := attributevalue.Marshal(rev)
	if err != nil {
		return fmt.Errorf("marshal review: %w", err)
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("principal_id", agentID),
		UpdateExpression: aws.String(
			"SET reviews = list_append(if_not_exists(reviews, :empty), :r) " +
				"ADD rating_sum :s, rating_count :one"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":r":     &types.AttributeValueMemberL{Value: []types.AttributeValue{item}},
			":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":s":     &types.AttributeValueMemberN{Value: strconv.Itoa(rev.Rating)},
			":one":   &types.AttributeValueMemberN{Value: "1"},
		},
	})
	return err
}

// SetReview replaces the embedded review at idx and applies the rating
// delta to the running sum in the same write. The condition guards against
// the list having been reordered since the caller located the index.
func (r *PrincipalRepo) SetReview(ctx context.Context, agentID string, idx int, rev domain.Review, sumDelta int) error {
	item, err := attributevalue.Marshal(rev)
	if err != nil {
		return fmt.Errorf("marshal review: %w", err)
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("principal_id", agentID),
		UpdateExpression: aws.String(fmt.Sprintf(
			"SET reviews[%d] = :r ADD rating_sum :d", idx)),
		ConditionExpression: aws.String(fmt.Sprintf(
			"reviews[%d].reviewer_id = :rid", idx)),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":r":   item,
			":d":   &types.AttributeValueMemberN{Value: strconv.Itoa(sumDelta)},
			":rid": &types.AttributeValueMemberS{Value: rev.ReviewerID},
		},
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("review list changed concurrently: %w", domain.ErrConflict)
	}
	return err
}

func (r *PrincipalRepo) unmarshal(item map[string]types.AttributeValue) (*domain.Principal, error) {
	var p domain.Principal
	if err := attributevalue.UnmarshalMap(item, &p); err != nil {
		return nil, err
	}
	p.Kind = r.kind
	return &p, nil
}
