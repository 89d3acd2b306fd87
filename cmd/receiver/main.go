package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/deepakmehta1/itt-whatsapp-functions/internal/app"
	"github.com/deepakmehta1/itt-whatsapp-functions/internal/config"
	"github.com/deepakmehta1/itt-whatsapp-functions/internal/logging"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)
	if err := cfg.ValidateWhatsApp(); err != nil {
		slog.Error("invalid whatsapp configuration", "err", err)
		os.Exit(1)
	}

	// ---- AWS SDK config ----
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	store, closer, err := app.NewStore(cfg, awsCfg)
	if err != nil {
		slog.Error("failed to open conversation store", "driver", cfg.Store.Driver, "err", err)
		os.Exit(1)
	}
	// ---- Handler ----
	h, err := app.NewWebhook(cfg, awsCfg, store)
	if err != nil {
		slog.Error("failed to create webhook handler", "err", err)
		os.Exit(1)
	}

	slog.Info("starting whatsapp receiver",
		"store", cfg.Store.Driver,
		"chat_transport", cfg.Chat.Transport,
		"timezone", cfg.Location.String(),
	)
	lambda.StartWithOptions(h.Handle, lambda.WithEnableSIGTERM(app.CloseStore(closer)))
}
