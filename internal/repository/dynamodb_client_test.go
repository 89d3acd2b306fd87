package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"github.com/deepakmehta1/itt-whatsapp-functions/internal/domain"
)

type fakeDynamo struct {
	getOut       *dynamodb.GetItemOutput
	getErr       error
	putErr       error
	lastGetInput *dynamodb.GetItemInput
	lastPutInput *dynamodb.PutItemInput
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.lastGetInput = in
	return f.getOut, f.getErr
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.lastPutInput = in
	return &dynamodb.PutItemOutput{}, f.putErr
}

func makeConversationItem(mobile, date, name, token string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"mobile":       &types.AttributeValueMemberS{Value: mobile},
		"cr_date":      &types.AttributeValueMemberS{Value: date},
		"name":         &types.AttributeValueMemberS{Value: name},
		"access_token": &types.AttributeValueMemberS{Value: token},
	}
}

func makeInteraction(dateTime, typ, content string) types.AttributeValue {
	return &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
		"date_time": &types.AttributeValueMemberS{Value: dateTime},
		"type":      &types.AttributeValueMemberS{Value: typ},
		"content":   &types.AttributeValueMemberS{Value: content},
	}}
}

func mustNewClient(t *testing.T, db *fakeDynamo) *Client {
	t.Helper()
	c, err := New(db, "conversation")
	require.NoError(t, err)
	return c
}

func TestGetConversation_HappyPath(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: makeConversationItem("9998887777", "2024-01-01", "Asha", "tok-1")}}
	c := mustNewClient(t, db)

	conv, err := c.GetConversation(context.Background(), "9998887777", "2024-01-01")
	require.NoError(t, err)
	require.NotNil(t, conv)
	require.Equal(t, "tok-1", conv.AccessToken)
	require.Equal(t, "Asha", conv.Name)
	require.Empty(t, conv.Interactions)

	require.Equal(t, "conversation", aws.ToString(db.lastGetInput.TableName))
	require.Equal(t, "9998887777", db.lastGetInput.Key["mobile"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "2024-01-01", db.lastGetInput.Key["cr_date"].(*types.AttributeValueMemberS).Value)
	require.True(t, aws.ToBool(db.lastGetInput.ConsistentRead))
}

func TestGetConversation_NotFound(t *testing.T) {
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{}}
	c := mustNewClient(t, db)
	conv, err := c.GetConversation(context.Background(), "9998887777", "2024-01-01")
	require.NoError(t, err)
	require.Nil(t, conv)
}

func TestGetConversation_GetItemError(t *testing.T) {
	db := &fakeDynamo{getErr: errors.New("boom")}
	c := mustNewClient(t, db)
	_, err := c.GetConversation(context.Background(), "9998887777", "2024-01-01")
	require.Error(t, err)
	require.Contains(t, err.Error(), "GetConversation")
}

func TestGetConversation_MissingToken(t *testing.T) {
	item := makeConversationItem("9998887777", "2024-01-01", "Asha", "tok")
	delete(item, "access_token")
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: item}}
	c := mustNewClient(t, db)
	_, err := c.GetConversation(context.Background(), "9998887777", "2024-01-01")
	require.Error(t, err)
	require.Contains(t, err.Error(), "access_token")
}

func TestGetConversation_Interactions(t *testing.T) {
	item := makeConversationItem("9998887777", "2024-01-01", "Asha", "tok-1")
	item["interactions"] = &types.AttributeValueMemberL{Value: []types.AttributeValue{
		makeInteraction("2024-01-01 10:00", "text", "Hello"),
		&types.AttributeValueMemberS{Value: "not-a-map"},
		makeInteraction("2024-01-01 10:01", "button", "Explore trips?"),
	}}
	db := &fakeDynamo{getOut: &dynamodb.GetItemOutput{Item: item}}
	c := mustNewClient(t, db)

	conv, err := c.GetConversation(context.Background(), "9998887777", "2024-01-01")
	require.NoError(t, err)
	require.Equal(t, []domain.Interaction{
		{DateTime: "2024-01-01 10:00", Type: domain.InteractionText, Content: "Hello"},
		{DateTime: "2024-01-01 10:01", Type: domain.InteractionButton, Content: "Explore trips?"},
	}, conv.Interactions)
}

func TestCreateConversation_HappyPath(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	err := c.CreateConversation(context.Background(), domain.Conversation{
		Mobile: "9998887777", CreatedDate: "2024-01-01", Name: "Asha", AccessToken: "tok-1",
	})
	require.NoError(t, err)
	require.Equal(t, "tok-1", db.lastPutInput.Item["access_token"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "Asha", db.lastPutInput.Item["name"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "attribute_not_exists(mobile) AND attribute_not_exists(cr_date)", *db.lastPutInput.ConditionExpression)
	require.NotContains(t, db.lastPutInput.Item, "interactions")
}

func TestCreateConversation_ConditionFailed(t *testing.T) {
	db := &fakeDynamo{putErr: &types.ConditionalCheckFailedException{Message: aws.String("exists")}}
	c := mustNewClient(t, db)
	err := c.CreateConversation(context.Background(), domain.Conversation{Mobile: "1", CreatedDate: "2024-01-01", AccessToken: "t"})
	require.ErrorIs(t, err, domain.ErrConversationExists)
}

func TestCreateConversation_DynamoError(t *testing.T) {
	db := &fakeDynamo{putErr: errors.New("ProvisionedThroughputExceededException")}
	c := mustNewClient(t, db)
	err := c.CreateConversation(context.Background(), domain.Conversation{Mobile: "1", CreatedDate: "2024-01-01", AccessToken: "t"})
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrConversationExists)
	require.Contains(t, err.Error(), "CreateConversation")
}

func TestCreateConversation_MissingKey(t *testing.T) {
	db := &fakeDynamo{}
	c := mustNewClient(t, db)
	err := c.CreateConversation(context.Background(), domain.Conversation{Mobile: "1"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "required")
	require.Nil(t, db.lastPutInput)
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil, "conversation")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be nil")
}

func TestNew_EmptyTableName(t *testing.T) {
	_, err := New(&fakeDynamo{}, " ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "must not be empty")
}
