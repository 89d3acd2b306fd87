package paramstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// DefaultSecretToken is sent to the chat backend when the shared secret
// cannot be read. The backend accepts it for WhatsApp logins.
const DefaultSecretToken = "No-Login-Required-For-Whatsapp-Chats"

// ssmAPI is the minimal AWS SSM interface required by Client.
// *ssm.Client from aws-sdk-go-v2 satisfies this interface.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Getter is the interface that wraps GetParameter.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client reads decrypted parameters from SSM Parameter Store.
type Client struct {
	api ssmAPI
}

// New creates a Client with the given SSM API implementation.
func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &Client{api: api}, nil
}

func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	if c.api == nil {
		return "", errors.New("paramstore: client not initialized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}

	withDecryption := true
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("paramstore: parameter %q missing value", name)
	}
	return *out.Parameter.Value, nil
}

// SecretResolver yields the shared secret used for chat-backend logins.
// It is read on every call so a rotated parameter takes effect on the next
// invocation; any failure falls back to a fixed sentinel.
type SecretResolver struct {
	getter   Getter
	name     string
	fallback string
}

// NewSecretResolver creates a resolver for the parameter called name.
// An empty fallback selects DefaultSecretToken.
func NewSecretResolver(g Getter, name, fallback string) (*SecretResolver, error) {
	if g == nil {
		return nil, errors.New("paramstore: getter must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("paramstore: secret parameter name must not be empty")
	}
	if fallback == "" {
		fallback = DefaultSecretToken
	}
	return &SecretResolver{getter: g, name: name, fallback: fallback}, nil
}

// SecretToken returns the parameter value or the fallback sentinel.
func (r *SecretResolver) SecretToken(ctx context.Context) string {
	v, err := r.getter.GetParameter(ctx, r.name)
	if err != nil || strings.TrimSpace(v) == "" {
		slog.WarnContext(ctx, "secret token unavailable, using fallback", "param", r.name, "err", err)
		return r.fallback
	}
	return v
}
