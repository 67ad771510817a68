package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"chat-gateway/internal/app"
	"chat-gateway/internal/config"
	"chat-gateway/internal/logging"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logging.Setup(os.Stdout, cfg.LogFormat)

	h, cleanup, err := app.Build(ctx, cfg)
	if err != nil {
		slog.Error("failed to build gateway", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	lambda.Start(h.Handle)
}
