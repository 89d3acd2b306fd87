package chatbackend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "http://localhost:8080"
	defaultTimeout = 10 * time.Second

	loginPath   = "/v2/auth/login-for-whatsapp"
	startPath   = "/v2/chat/start"
	messagePath = "/v2/chat/message"
)

type loginRequest struct {
	Mobile      string `json:"mobile"`
	Name        string `json:"name"`
	SecretToken string `json:"secret_token"`
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
}

type messageRequest struct {
	Message string `json:"message"`
}

// chatResponse wraps the assistant reply. Response is itself a JSON document
// encoded as a string.
type chatResponse struct {
	Response string `json:"response"`
}

type chatContent struct {
	Content string `json:"content"`
}

// SecretSource supplies the shared secret sent on WhatsApp logins.
type SecretSource interface {
	SecretToken(ctx context.Context) string
}

// HTTPStatusError captures non-200 responses from the chat backend.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("chatbackend: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client calls the smart-chat backend: WhatsApp login, chat start and chat
// message. Only HTTP 200 counts as success.
type Client struct {
	baseURL    string
	httpClient *http.Client
	secrets    SecretSource
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client whose logins carry the secret from s.
func NewClient(s SecretSource, opts ...Option) (*Client, error) {
	if s == nil {
		return nil, errors.New("chatbackend: secret source must not be nil")
	}
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		secrets:    s,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{Timeout: defaultTimeout}
}

func (c *Client) url(path string) string {
	base := strings.TrimRight(c.baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return base + path
}

// Login authenticates a WhatsApp user and returns the session access token.
func (c *Client) Login(ctx context.Context, mobile, name string) (string, error) {
	body, err := json.Marshal(loginRequest{
		Mobile:      mobile,
		Name:        name,
		SecretToken: c.secrets.SecretToken(ctx),
	})
	if err != nil {
		return "", fmt.Errorf("chatbackend: marshal login request: %w", err)
	}

	raw, err := c.post(ctx, loginPath, "", body)
	if err != nil {
		return "", fmt.Errorf("chatbackend: login failed: %w", err)
	}

	var payload loginResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("chatbackend: decode login response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", errors.New("chatbackend: login response has no access token")
	}
	return payload.AccessToken, nil
}

// StartChat opens a chat for the session and returns the assistant's greeting.
func (c *Client) StartChat(ctx context.Context, accessToken string) (string, error) {
	raw, err := c.post(ctx, startPath, accessToken, nil)
	if err != nil {
		return "", fmt.Errorf("chatbackend: start chat failed: %w", err)
	}
	return decodeContent(raw)
}

// SendChat sends a user message on the session and returns the reply.
func (c *Client) SendChat(ctx context.Context, accessToken, message string) (string, error) {
	body, err := json.Marshal(messageRequest{Message: message})
	if err != nil {
		return "", fmt.Errorf("chatbackend: marshal message request: %w", err)
	}
	raw, err := c.post(ctx, messagePath, accessToken, body)
	if err != nil {
		return "", fmt.Errorf("chatbackend: send chat failed: %w", err)
	}
	return decodeContent(raw)
}

func decodeContent(raw []byte) (string, error) {
	var payload chatResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("chatbackend: decode chat response: %w", err)
	}
	if strings.TrimSpace(payload.Response) == "" {
		return "", nil
	}
	var content chatContent
	if err := json.Unmarshal([]byte(payload.Response), &content); err != nil {
		return "", fmt.Errorf("chatbackend: decode chat content: %w", err)
	}
	return content.Content, nil
}

// post sends body (may be nil) to path. accessToken, when set, is passed as
// the raw Authorization header value.
func (c *Client) post(ctx context.Context, path, accessToken string, body []byte) ([]byte, error) {
	url := c.url(path)

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", accessToken)
	}

	slog.DebugContext(ctx, "chat backend request", "url", url)

	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        url,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
