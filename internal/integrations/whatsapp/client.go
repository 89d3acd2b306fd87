// Package whatsapp sends outbound messages through the WhatsApp Business
// Cloud API (Meta Graph API).
package whatsapp

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

	"github.com/deepakmehta1/itt-whatsapp-functions/internal/domain"
)

const (
	defaultBaseURL          = "https://graph.facebook.com"
	defaultFollowUpTemplate = "interested_trip1"
	defaultLanguage         = "en"
	defaultTimeout          = 10 * time.Second
)

type sendRequest struct {
	MessagingProduct string           `json:"messaging_product"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Context          *messageContext  `json:"context,omitempty"`
	Text             *textPayload     `json:"text,omitempty"`
	Template         *templatePayload `json:"template,omitempty"`
	Document         *documentPayload `json:"document,omitempty"`
}

type messageContext struct {
	MessageID string `json:"message_id"`
}

type textPayload struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type templatePayload struct {
	Name     string   `json:"name"`
	Language language `json:"language"`
}

type language struct {
	Code string `json:"code"`
}

type documentPayload struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// HTTPStatusError captures non-2xx responses from the Graph API.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("whatsapp: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client posts messages for one business phone number.
type Client struct {
	baseURL          string
	version          string
	phoneNumberID    string
	token            string
	followUpTemplate string
	httpClient       *http.Client
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

// WithFollowUpTemplate sets the template chained after every document.
func WithFollowUpTemplate(name string) Option {
	return func(c *Client) {
		if name = strings.TrimSpace(name); name != "" {
			c.followUpTemplate = name
		}
	}
}

func NewClient(version, phoneNumberID, token string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(version) == "" {
		return nil, errors.New("whatsapp: api version must not be empty")
	}
	if strings.TrimSpace(phoneNumberID) == "" {
		return nil, errors.New("whatsapp: phone number id must not be empty")
	}
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("whatsapp: token must not be empty")
	}
	c := &Client{
		baseURL:          defaultBaseURL,
		version:          strings.TrimSpace(version),
		phoneNumberID:    strings.TrimSpace(phoneNumberID),
		token:            token,
		followUpTemplate: defaultFollowUpTemplate,
		httpClient:       &http.Client{Timeout: defaultTimeout},
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

func (c *Client) messagesURL() string {
	base := strings.TrimRight(c.baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	return fmt.Sprintf("%s/%s/%s/messages", base, c.version, c.phoneNumberID)
}

// Send delivers reply. A document is followed by the follow-up template sent
// in reply to the delivered document.
func (c *Client) Send(ctx context.Context, reply domain.OutboundReply) error {
	switch reply.Kind {
	case domain.ReplyText:
		_, err := c.SendText(ctx, reply.To, reply.Text, reply.ContextMessageID)
		return err
	case domain.ReplyTemplate:
		_, err := c.SendTemplate(ctx, reply.To, reply.Template, reply.ContextMessageID)
		return err
	case domain.ReplyDocument:
		_, err := c.SendDocument(ctx, reply.To, reply.DocumentID, reply.Filename)
		return err
	default:
		return fmt.Errorf("whatsapp: unsupported reply kind %q", reply.Kind)
	}
}

// SendText sends a plain text message and returns its message id.
func (c *Client) SendText(ctx context.Context, to, body, contextMessageID string) (string, error) {
	return c.send(ctx, sendRequest{
		To:      to,
		Type:    string(domain.ReplyText),
		Context: newContext(contextMessageID),
		Text:    &textPayload{PreviewURL: false, Body: body},
	})
}

// SendTemplate sends a pre-approved template and returns its message id.
func (c *Client) SendTemplate(ctx context.Context, to, name, contextMessageID string) (string, error) {
	return c.send(ctx, sendRequest{
		To:       to,
		Type:     string(domain.ReplyTemplate),
		Context:  newContext(contextMessageID),
		Template: &templatePayload{Name: name, Language: language{Code: defaultLanguage}},
	})
}

// SendDocument sends an uploaded media document, then the follow-up template
// referencing it. The returned id is the document message id.
func (c *Client) SendDocument(ctx context.Context, to, documentID, filename string) (string, error) {
	id, err := c.send(ctx, sendRequest{
		To:       to,
		Type:     string(domain.ReplyDocument),
		Document: &documentPayload{ID: documentID, Filename: filename},
	})
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", errors.New("whatsapp: document response has no message id")
	}
	if _, err := c.SendTemplate(ctx, to, c.followUpTemplate, id); err != nil {
		return id, fmt.Errorf("whatsapp: follow-up template: %w", err)
	}
	return id, nil
}

func newContext(messageID string) *messageContext {
	if messageID == "" {
		return nil
	}
	return &messageContext{MessageID: messageID}
}

func (c *Client) send(ctx context.Context, msg sendRequest) (string, error) {
	if strings.TrimSpace(msg.To) == "" {
		return "", errors.New("whatsapp: recipient must not be empty")
	}
	msg.MessagingProduct = "whatsapp"

	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("whatsapp: marshal request: %w", err)
	}

	url := c.messagesURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("whatsapp: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("whatsapp: read response body: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		if len(buf) > 4096 {
			buf = buf[:4096]
		}
		return "", &HTTPStatusError{StatusCode: res.StatusCode, URL: url, Body: string(buf)}
	}

	var payload sendResponse
	if err := json.Unmarshal(buf, &payload); err != nil {
		return "", fmt.Errorf("whatsapp: decode response: %w", err)
	}
	var id string
	if len(payload.Messages) > 0 {
		id = payload.Messages[0].ID
	}
	slog.InfoContext(ctx, "whatsapp message sent", "type", msg.Type, "message_id", id)
	return id, nil
}
