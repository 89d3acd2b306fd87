package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/deepakmehta1/itt-whatsapp-functions/internal/domain"
	"github.com/deepakmehta1/itt-whatsapp-functions/internal/usecase"
	"github.com/deepakmehta1/itt-whatsapp-functions/internal/webhook"
)

type WebhookUseCase interface {
	HandleEvents(ctx context.Context, events []domain.InboundEvent)
	Query(ctx context.Context, req usecase.QueryRequest) (usecase.QueryResult, error)
}

var preflightHeaders = map[string]string{
	"Access-Control-Allow-Origin":   "*",
	"Access-Control-Allow-Headers":  "*",
	"Access-Control-Request-Method": "GET,OPTIONS,POST",
}

var queryHeaders = map[string]string{"Access-Control-Allow-Origin": "*"}

type ackResponse struct {
	Status string `json:"status"`
}

// Webhook is the API Gateway entry point of the WhatsApp receiver.
type Webhook struct {
	uc          WebhookUseCase
	verifyToken string
	queryPrefix string
}

type WebhookOption func(*Webhook)

// WithVerifyToken enables the subscription handshake for token.
func WithVerifyToken(token string) WebhookOption {
	return func(h *Webhook) {
		h.verifyToken = token
	}
}

// WithQueryPrefix sets the marker that turns a WhatsApp text into a lookup.
func WithQueryPrefix(prefix string) WebhookOption {
	return func(h *Webhook) {
		h.queryPrefix = prefix
	}
}

func NewWebhook(uc WebhookUseCase, opts ...WebhookOption) (*Webhook, error) {
	if uc == nil {
		return nil, errors.New("handler: webhook use case must not be nil")
	}
	h := &Webhook{uc: uc, queryPrefix: "get="}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *Webhook) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(event.Headers)
	logger := slog.With("correlation_id", corrID, "method", event.HTTPMethod, "path", event.Path)

	if event.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusOK,
			Headers:    withCorrelation(preflightHeaders, corrID),
			Body:       "ok",
		}, nil
	}

	params := event.QueryStringParameters
	if mode, ok := params["hub.mode"]; ok {
		return h.verify(mode, params["hub.verify_token"], params["hub.challenge"], corrID, logger), nil
	}
	if q, ok := params["q"]; ok {
		return h.query(ctx, q, corrID, logger), nil
	}
	if event.HTTPMethod == http.MethodGet {
		return jsonResponse(http.StatusBadRequest, corrID, errorResponse{
			Error:   string(usecase.ErrorInvalidInput),
			Message: "missing query parameter q",
		}, queryHeaders), nil
	}

	h.receive(ctx, event.Body, logger)
	return jsonResponse(http.StatusOK, corrID, ackResponse{Status: "ok"}, nil), nil
}

func (h *Webhook) verify(mode, token, challenge, corrID string, logger *slog.Logger) events.APIGatewayProxyResponse {
	if mode != "subscribe" || h.verifyToken == "" || token != h.verifyToken {
		logger.Warn("webhook verification rejected", "mode", mode)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusForbidden,
			Headers:    withCorrelation(nil, corrID),
			Body:       "forbidden",
		}
	}
	logger.Info("webhook verified")
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    withCorrelation(map[string]string{"Content-Type": "text/plain"}, corrID),
		Body:       challenge,
	}
}

func (h *Webhook) query(ctx context.Context, command, corrID string, logger *slog.Logger) events.APIGatewayProxyResponse {
	if strings.TrimSpace(command) == "" {
		return jsonResponse(http.StatusBadRequest, corrID, errorResponse{
			Error:   string(usecase.ErrorInvalidInput),
			Message: "query parameter q is empty",
		}, queryHeaders)
	}

	out, err := h.uc.Query(ctx, usecase.QueryRequest{Command: command, Source: usecase.QuerySourceWeb})
	if err != nil {
		logger.WarnContext(ctx, "query failed", "err", err)
		return errorToResponse(err, corrID, queryHeaders)
	}
	return jsonResponse(http.StatusOK, corrID, out, queryHeaders)
}

// receive decodes a webhook delivery and hands its messages to the use case.
// Malformed deliveries are logged and dropped.
func (h *Webhook) receive(ctx context.Context, body string, logger *slog.Logger) {
	if strings.TrimSpace(body) == "" {
		logger.InfoContext(ctx, "empty webhook body")
		return
	}
	payload, err := webhook.Decode(body)
	if err != nil {
		logger.WarnContext(ctx, "dropping undecodable webhook", "err", err)
		return
	}
	value, err := payload.Value()
	if err != nil {
		logger.InfoContext(ctx, "webhook without changes", "err", err)
		return
	}

	evs := webhook.Classify(value, h.queryPrefix)
	if len(evs) == 0 {
		logger.DebugContext(ctx, "webhook carries no messages")
		return
	}
	h.uc.HandleEvents(ctx, evs)
}

func withCorrelation(headers map[string]string, corrID string) map[string]string {
	out := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		out[k] = v
	}
	out[correlationHeader] = corrID
	return out
}
