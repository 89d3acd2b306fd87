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

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	h, err := app.NewChatInterface(cfg, awsCfg)
	if err != nil {
		slog.Error("failed to create chat interface handler", "err", err)
		os.Exit(1)
	}

	slog.Info("starting chat interface", "backend", cfg.Chat.URL)
	lambda.Start(h.Handle)
}
