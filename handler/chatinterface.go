package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/deepakmehta1/itt-whatsapp-functions/internal/chatops"
	"github.com/deepakmehta1/itt-whatsapp-functions/internal/integrations/chatbackend"
	"github.com/deepakmehta1/itt-whatsapp-functions/internal/usecase"
)

type statusCoder interface {
	HTTPStatusCode() int
}

// ChatInterface executes chat backend operations on behalf of other
// functions. It is invoked directly, not through API Gateway.
type ChatInterface struct {
	backend usecase.ChatBackend
}

func NewChatInterface(backend usecase.ChatBackend) (*ChatInterface, error) {
	if backend == nil {
		return nil, errors.New("handler: chat backend must not be nil")
	}
	return &ChatInterface{backend: backend}, nil
}

func (h *ChatInterface) Handle(ctx context.Context, raw json.RawMessage) (chatops.Response, error) {
	op, err := chatops.Decode(raw)
	if err != nil {
		slog.WarnContext(ctx, "rejecting chat operation", "err", err)
		return chatops.NewResponse(http.StatusBadRequest, chatops.Body{Message: err.Error()}), nil
	}

	logger := slog.With("method", op.Method())
	data, err := h.execute(ctx, op)
	if err != nil {
		logger.ErrorContext(ctx, "chat operation failed", "err", err)
		return failureResponse(err), nil
	}

	logger.InfoContext(ctx, "chat operation succeeded")
	return chatops.NewResponse(http.StatusOK, chatops.Body{
		Success: true,
		Message: "API call successful",
		Data:    &data,
	}), nil
}

func (h *ChatInterface) execute(ctx context.Context, op chatops.Operation) (chatops.Data, error) {
	switch op := op.(type) {
	case chatops.Login:
		token, err := h.backend.Login(ctx, op.Mobile, op.Name)
		if err != nil {
			return chatops.Data{}, err
		}
		return chatops.Data{StatusCode: http.StatusOK, AccessToken: token}, nil
	case chatops.StartChat:
		content, err := h.backend.StartChat(ctx, op.AccessToken)
		if err != nil {
			return chatops.Data{}, err
		}
		return chatops.Data{StatusCode: http.StatusOK, Content: content}, nil
	case chatops.SendChat:
		content, err := h.backend.SendChat(ctx, op.AccessToken, op.Message)
		if err != nil {
			return chatops.Data{}, err
		}
		return chatops.Data{StatusCode: http.StatusOK, Content: content}, nil
	default:
		return chatops.Data{}, fmt.Errorf("handler: unsupported operation %T", op)
	}
}

// failureResponse reports a backend status error with the backend's status
// and body; any other failure is a 500.
func failureResponse(err error) chatops.Response {
	var statusErr *chatbackend.HTTPStatusError
	if errors.As(err, &statusErr) {
		return chatops.NewResponse(statusErr.StatusCode, chatops.Body{
			Message: "API call failed",
			Details: statusErr.Body,
		})
	}

	status := http.StatusInternalServerError
	var coder statusCoder
	if errors.As(err, &coder) && coder.HTTPStatusCode() != 0 {
		status = coder.HTTPStatusCode()
	}
	return chatops.NewResponse(status, chatops.Body{
		Message: "An error occurred during the API request",
		Error:   err.Error(),
	})
}
