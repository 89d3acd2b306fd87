// Package lambdainvoke reaches the chat backend by synchronously invoking the
// chat-interface Lambda function instead of calling it over HTTP.
package lambdainvoke

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/deepakmehta1/itt-whatsapp-functions/internal/chatops"
)

// lambdaAPI is the minimal Lambda interface required by Client.
type lambdaAPI interface {
	Invoke(ctx context.Context, in *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// RemoteError is a failure reported by the chat-interface function.
type RemoteError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("lambdainvoke: remote status %d: %s %s", e.StatusCode, e.Message, e.Details)
}

func (e *RemoteError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client implements the chat backend operations over Lambda invocations.
type Client struct {
	api          lambdaAPI
	functionName string
}

func New(api lambdaAPI, functionName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("lambdainvoke: api must not be nil")
	}
	if strings.TrimSpace(functionName) == "" {
		return nil, errors.New("lambdainvoke: function name must not be empty")
	}
	return &Client{api: api, functionName: functionName}, nil
}

// Login authenticates a WhatsApp user and returns the access token.
func (c *Client) Login(ctx context.Context, mobile, name string) (string, error) {
	data, err := c.invoke(ctx, chatops.Login{Mobile: mobile, Name: name})
	if err != nil {
		return "", err
	}
	if data.AccessToken == "" {
		return "", errors.New("lambdainvoke: login response has no access token")
	}
	return data.AccessToken, nil
}

// StartChat opens a chat and returns the assistant's greeting.
func (c *Client) StartChat(ctx context.Context, accessToken string) (string, error) {
	data, err := c.invoke(ctx, chatops.StartChat{AccessToken: accessToken})
	if err != nil {
		return "", err
	}
	return data.Content, nil
}

// SendChat sends a message and returns the reply.
func (c *Client) SendChat(ctx context.Context, accessToken, message string) (string, error) {
	data, err := c.invoke(ctx, chatops.SendChat{AccessToken: accessToken, Message: message})
	if err != nil {
		return "", err
	}
	return data.Content, nil
}

func (c *Client) invoke(ctx context.Context, op chatops.Operation) (chatops.Data, error) {
	payload, err := json.Marshal(chatops.Encode(op))
	if err != nil {
		return chatops.Data{}, fmt.Errorf("lambdainvoke: marshal %s: %w", op.Method(), err)
	}

	out, err := c.api.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(c.functionName),
		InvocationType: types.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		return chatops.Data{}, fmt.Errorf("lambdainvoke: invoke %s: %w", op.Method(), err)
	}
	if out.FunctionError != nil {
		return chatops.Data{}, fmt.Errorf("lambdainvoke: %s function error %s: %s", op.Method(), aws.ToString(out.FunctionError), string(out.Payload))
	}

	var resp chatops.Response
	if err := json.Unmarshal(out.Payload, &resp); err != nil {
		return chatops.Data{}, fmt.Errorf("lambdainvoke: decode %s response: %w", op.Method(), err)
	}
	body, err := resp.DecodeBody()
	if err != nil {
		return chatops.Data{}, fmt.Errorf("lambdainvoke: %s: %w", op.Method(), err)
	}
	if !body.Success || body.Data == nil {
		return chatops.Data{}, &RemoteError{StatusCode: resp.StatusCode, Message: body.Message, Details: body.Details}
	}
	return *body.Data, nil
}
