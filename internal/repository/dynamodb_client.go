package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/deepakmehta1/itt-whatsapp-functions/internal/domain"
)

const (
	attrMobile       = "mobile"
	attrCreatedDate  = "cr_date"
	attrName         = "name"
	attrAccessToken  = "access_token"
	attrInteractions = "interactions"
	attrDateTime     = "date_time"
	attrType         = "type"
	attrContent      = "content"
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// ConversationStore defines the conversation operations consumed by the use cases.
type ConversationStore interface {
	GetConversation(ctx context.Context, mobile, date string) (*domain.Conversation, error)
	CreateConversation(ctx context.Context, conv domain.Conversation) error
}

// Client wraps the DynamoDB conversation table. Items are keyed by
// mobile (partition) and cr_date (sort).
type Client struct {
	api       dynamodbAPI
	tableName string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName}, nil
}

func conversationKey(mobile, date string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrMobile:      &types.AttributeValueMemberS{Value: mobile},
		attrCreatedDate: &types.AttributeValueMemberS{Value: date},
	}
}

// GetConversation returns the conversation for mobile on date, or nil when
// none has been recorded.
func (c *Client) GetConversation(ctx context.Context, mobile, date string) (*domain.Conversation, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(c.tableName),
		Key:            conversationKey(mobile, date),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: GetConversation get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return nil, nil
	}

	conv, err := itemToConversation(out.Item)
	if err != nil {
		return nil, fmt.Errorf("repository: GetConversation decode: %w", err)
	}
	return &conv, nil
}

// CreateConversation inserts conv only if no item exists for its key.
// A lost race surfaces as domain.ErrConversationExists.
func (c *Client) CreateConversation(ctx context.Context, conv domain.Conversation) error {
	if conv.Mobile == "" || conv.CreatedDate == "" {
		return errors.New("repository: CreateConversation: mobile and date are required")
	}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                conversationItem(conv),
		ConditionExpression: aws.String("attribute_not_exists(mobile) AND attribute_not_exists(cr_date)"),
	})
	if err != nil {
		var conflict *types.ConditionalCheckFailedException
		if errors.As(err, &conflict) {
			return fmt.Errorf("repository: CreateConversation: %w", domain.ErrConversationExists)
		}
		return fmt.Errorf("repository: CreateConversation: %w", err)
	}
	return nil
}

func conversationItem(conv domain.Conversation) map[string]types.AttributeValue {
	item := conversationKey(conv.Mobile, conv.CreatedDate)
	item[attrName] = &types.AttributeValueMemberS{Value: conv.Name}
	item[attrAccessToken] = &types.AttributeValueMemberS{Value: conv.AccessToken}
	return item
}

// itemToConversation converts a DynamoDB attribute map to a Conversation.
// The interactions list is optional and malformed entries are skipped.
func itemToConversation(item map[string]types.AttributeValue) (domain.Conversation, error) {
	mobile, err := strAttr(item, attrMobile)
	if err != nil {
		return domain.Conversation{}, err
	}
	date, err := strAttr(item, attrCreatedDate)
	if err != nil {
		return domain.Conversation{}, err
	}
	token, err := strAttr(item, attrAccessToken)
	if err != nil {
		return domain.Conversation{}, err
	}
	name, _ := strAttr(item, attrName) // allow empty

	return domain.Conversation{
		Mobile:       mobile,
		CreatedDate:  date,
		Name:         name,
		AccessToken:  token,
		Interactions: interactionsAttr(item),
	}, nil
}

func interactionsAttr(item map[string]types.AttributeValue) []domain.Interaction {
	list, ok := item[attrInteractions].(*types.AttributeValueMemberL)
	if !ok {
		return nil
	}
	out := make([]domain.Interaction, 0, len(list.Value))
	for _, v := range list.Value {
		m, ok := v.(*types.AttributeValueMemberM)
		if !ok {
			continue
		}
		typ, err := strAttr(m.Value, attrType)
		if err != nil {
			continue
		}
		dateTime, _ := strAttr(m.Value, attrDateTime)
		content, _ := strAttr(m.Value, attrContent)
		out = append(out, domain.Interaction{
			DateTime: dateTime,
			Type:     domain.InteractionType(typ),
			Content:  content,
		})
	}
	return out
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}
