// Command devserver runs the WhatsApp receiver and the chat interface as a
// plain HTTP server for local development.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/joho/godotenv"

	"github.com/deepakmehta1/itt-whatsapp-functions/handler"
	"github.com/deepakmehta1/itt-whatsapp-functions/internal/app"
	"github.com/deepakmehta1/itt-whatsapp-functions/internal/config"
	"github.com/deepakmehta1/itt-whatsapp-functions/internal/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load(config.WithDefaultStoreDriver(config.StoreSQLite))
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)
	if err := cfg.ValidateWhatsApp(); err != nil {
		slog.Error("invalid whatsapp configuration", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	store, closer, err := app.NewStore(cfg, awsCfg)
	if err != nil {
		slog.Error("failed to open conversation store", "driver", cfg.Store.Driver, "err", err)
		os.Exit(1)
	}
	defer app.CloseStore(closer)()

	webhook, err := app.NewWebhook(cfg, awsCfg, store)
	if err != nil {
		slog.Error("failed to create webhook handler", "err", err)
		os.Exit(1)
	}
	chat, err := app.NewChatInterface(cfg, awsCfg)
	if err != nil {
		slog.Error("failed to create chat interface handler", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.NewRouter(webhook, chat),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      5 * cfg.Chat.Timeout,
	}

	go func() {
		slog.Info("dev server listening", "addr", srv.Addr, "store", cfg.Store.Driver, "chat_transport", cfg.Chat.Transport)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
	}
}
