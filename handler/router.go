package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

type proxyFunc func(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// NewRouter serves the Lambda handlers over plain HTTP for local runs:
// the webhook on /webhook and the chat interface on POST /chat.
func NewRouter(webhook *Webhook, chat *ChatInterface) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	webhookHandler := proxyHandler(webhook.Handle)
	r.Route("/webhook", func(r chi.Router) {
		r.Get("/", webhookHandler)
		r.Post("/", webhookHandler)
		r.Options("/", webhookHandler)
	})

	if chat != nil {
		r.Post("/chat", chatHandler(chat))
	}
	return r
}

// proxyHandler adapts an API Gateway proxy handler to net/http.
func proxyHandler(fn proxyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}

		event := events.APIGatewayProxyRequest{
			HTTPMethod:            r.Method,
			Path:                  r.URL.Path,
			Headers:               make(map[string]string, len(r.Header)),
			QueryStringParameters: make(map[string]string, len(r.URL.Query())),
			Body:                  string(body),
		}
		for k := range r.Header {
			event.Headers[k] = r.Header.Get(k)
		}
		for k, v := range r.URL.Query() {
			if len(v) > 0 {
				event.QueryStringParameters[k] = v[0]
			}
		}

		resp, err := fn(r.Context(), event)
		if err != nil {
			slog.ErrorContext(r.Context(), "handler failed", "path", r.URL.Path, "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(resp.StatusCode)
		_, _ = io.WriteString(w, resp.Body)
	}
}

func chatHandler(h *ChatInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, "failed to read body", http.StatusBadRequest)
			return
		}

		resp, err := h.Handle(r.Context(), json.RawMessage(body))
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
