package dynamo

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/latent-app/latent-api/internal/domain"
)

// HouseRepo provides typed DynamoDB operations for the houses table.
type HouseRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewHouseRepo(client *dynamodb.Client, tableName string) *HouseRepo {
	return &HouseRepo{client: client, tableName: tableName}
}

func (r *HouseRepo) Put(ctx context.Context, h *domain.House) error {
	item, err := attributevalue.MarshalMap(h)
	if err != nil {
		return fmt.Errorf("marshal house: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *HouseRepo) Get(ctx context.Context, houseID string) (*domain.House, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("house_id", houseID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("house not found: %w", domain.ErrNotFound)
	}
	var h domain.House
	if err := attributevalue.UnmarshalMap(out.Item, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *HouseRepo) Update(ctx context.Context, houseID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("house_id", houseID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

func (r *HouseRepo) HardDelete(ctx context.Context, houseID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("house_id", houseID),
	})
	return err
}

// Search scans the houses table with the given filter. cursor is a
// house_id used as ExclusiveStartKey; an empty next cursor means no
// more pages.
func (r *HouseRepo) Search(ctx context.Context, f domain.HouseFilter, limit int32, cursor string) ([]domain.House, string, error) {
	var exprs []string
	values := map[string]types.AttributeValue{}
	names := map[string]string{}

	if f.City != "" {
		exprs = append(exprs, "#loc.city = :city")
		names["#loc"] = "location"
		values[":city"] = &types.AttributeValueMemberS{Value: f.City}
	}
	if f.State != "" {
		exprs = append(exprs, "#loc.#st = :state")
		names["#loc"] = "location"
		names["#st"] = "state"
		values[":state"] = &types.AttributeValueMemberS{Value: f.State}
	}
	if f.NumRooms > 0 {
		exprs = append(exprs, "num_rooms = :rooms")
		values[":rooms"] = &types.AttributeValueMemberN{Value: strconv.Itoa(f.NumRooms)}
	}
	if f.MinPrice > 0 {
		exprs = append(exprs, "price >= :minp")
		values[":minp"] = &types.AttributeValueMemberN{Value: strconv.FormatFloat(f.MinPrice, 'f', -1, 64)}
	}
	if f.MaxPrice > 0 {
		exprs = append(exprs, "price <= :maxp")
		values[":maxp"] = &types.AttributeValueMemberN{Value: strconv.FormatFloat(f.MaxPrice, 'f', -1, 64)}
	}

	input := &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
		Limit:     aws.Int32(limit),
	}
	if len(exprs) > 0 {
		input.FilterExpression = aws.String(strings.Join(exprs, " AND "))
		input.ExpressionAttributeValues = values
		if len(names) > 0 {
			input.ExpressionAttributeNames = names
		}
	}
	if cursor != "" {
		input.ExclusiveStartKey = strKey("house_id", cursor)
	}

	out, err := r.client.Scan(ctx, input)
	if err != nil {
		return nil, "", err
	}
	var houses []domain.House
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &houses); err != nil {
		return nil, "", err
	}
	nextCursor := ""
	if v, ok := out.LastEvaluatedKey["house_id"].(*types.AttributeValueMemberS); ok {
		nextCursor = v.Value
	}
	return houses, nextCursor, nil
}

// ListByAgent returns all houses an agent has listed, for the deletion cascade.
func (r *HouseRepo) ListByAgent(ctx context.Context, agentID string) ([]domain.House, error) {
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
	var houses []domain.House
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &houses); err != nil {
		return nil, err
	}
	return houses, nil
}
