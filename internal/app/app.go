// Package app assembles the receiver and chat-interface dependency graphs
// from configuration. Every main builds its handlers here.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awslambda "github.com/aws/aws-sdk-go-v2/service/lambda"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/deepakmehta1/itt-whatsapp-functions/handler"
	"github.com/deepakmehta1/itt-whatsapp-functions/internal/config"
	"github.com/deepakmehta1/itt-whatsapp-functions/internal/integrations/chatbackend"
	"github.com/deepakmehta1/itt-whatsapp-functions/internal/integrations/eventqueue"
	"github.com/deepakmehta1/itt-whatsapp-functions/internal/integrations/lambdainvoke"
	"github.com/deepakmehta1/itt-whatsapp-functions/internal/integrations/paramstore"
	"github.com/deepakmehta1/itt-whatsapp-functions/internal/integrations/whatsapp"
	"github.com/deepakmehta1/itt-whatsapp-functions/internal/repository"
	"github.com/deepakmehta1/itt-whatsapp-functions/internal/usecase"
)

// NewStore opens the conversation store selected by cfg.Store.Driver. The
// returned closer must be called on shutdown.
func NewStore(cfg *config.Config, awsCfg aws.Config) (repository.ConversationStore, io.Closer, error) {
	switch cfg.Store.Driver {
	case config.StoreSQLite:
		s, err := repository.NewSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		c, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.Store.Table)
		if err != nil {
			return nil, nil, err
		}
		return c, nopCloser{}, nil
	}
}

// NewHTTPChatBackend builds the HTTP chat backend client with its shared
// secret read from SSM.
func NewHTTPChatBackend(cfg *config.Config, awsCfg aws.Config) (*chatbackend.Client, error) {
	params, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, err
	}
	secrets, err := paramstore.NewSecretResolver(params, cfg.Chat.SecretParam, "")
	if err != nil {
		return nil, err
	}
	return chatbackend.NewClient(secrets,
		chatbackend.WithBaseURL(cfg.Chat.URL),
		chatbackend.WithHTTPClient(&http.Client{Timeout: cfg.Chat.Timeout}),
	)
}

// NewChatBackend returns the backend selected by cfg.Chat.Transport.
func NewChatBackend(cfg *config.Config, awsCfg aws.Config) (usecase.ChatBackend, error) {
	if cfg.Chat.Transport == config.TransportLambda {
		return lambdainvoke.New(awslambda.NewFromConfig(awsCfg), cfg.Chat.FunctionName)
	}
	return NewHTTPChatBackend(cfg, awsCfg)
}

// NewWebhook wires the WhatsApp receiver handler on top of store.
func NewWebhook(cfg *config.Config, awsCfg aws.Config, store repository.ConversationStore) (*handler.Webhook, error) {
	backend, err := NewChatBackend(cfg, awsCfg)
	if err != nil {
		return nil, fmt.Errorf("app: chat backend: %w", err)
	}

	conversations, err := usecase.NewConversationService(backend, store, cfg.Location)
	if err != nil {
		return nil, err
	}

	messenger, err := whatsapp.NewClient(cfg.WhatsApp.Version, cfg.WhatsApp.PhoneNumberID, cfg.WhatsApp.Token,
		whatsapp.WithBaseURL(cfg.WhatsApp.BaseURL),
		whatsapp.WithHTTPClient(&http.Client{Timeout: cfg.Chat.Timeout}),
		whatsapp.WithFollowUpTemplate(cfg.WhatsApp.FollowUpTemplate),
	)
	if err != nil {
		return nil, fmt.Errorf("app: whatsapp client: %w", err)
	}

	opts := []usecase.WebhookOption{usecase.WithCountryPrefix(cfg.CountryPrefix)}
	if cfg.EventsQueueURL != "" {
		publisher, err := eventqueue.New(awssqs.NewFromConfig(awsCfg), cfg.EventsQueueURL)
		if err != nil {
			return nil, fmt.Errorf("app: event queue: %w", err)
		}
		opts = append(opts, usecase.WithPublisher(publisher))
	} else if appender, ok := store.(usecase.InteractionAppender); ok {
		recorder, err := usecase.NewInteractionRecorder(appender, cfg.Location, cfg.CountryPrefix)
		if err != nil {
			return nil, err
		}
		opts = append(opts, usecase.WithPublisher(recorder))
		slog.Info("EVENTS_QUEUE_URL not set, recording interactions in the local store")
	} else {
		slog.Info("EVENTS_QUEUE_URL not set, inbound events will not be published")
	}

	svc, err := usecase.NewWebhookService(conversations, store, messenger, opts...)
	if err != nil {
		return nil, err
	}

	return handler.NewWebhook(svc,
		handler.WithVerifyToken(cfg.WhatsApp.VerifyToken),
		handler.WithQueryPrefix(cfg.QueryPrefix),
	)
}

// NewChatInterface wires the chat-interface handler. It always talks to the
// backend over HTTP.
func NewChatInterface(cfg *config.Config, awsCfg aws.Config) (*handler.ChatInterface, error) {
	backend, err := NewHTTPChatBackend(cfg, awsCfg)
	if err != nil {
		return nil, fmt.Errorf("app: chat backend: %w", err)
	}
	return handler.NewChatInterface(backend)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// CloseStore returns a callback that closes the store and logs a failure.
// Mains run it on shutdown.
func CloseStore(closer io.Closer) func() {
	return func() {
		if err := closer.Close(); err != nil {
			slog.Error("failed to close conversation store", "err", err)
		}
	}
}
