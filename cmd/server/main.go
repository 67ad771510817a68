package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"chat-gateway/internal/app"
	"chat-gateway/internal/config"
	"chat-gateway/internal/httpserver"
	"chat-gateway/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logging.Setup(os.Stdout, cfg.LogFormat)
	gin.SetMode(gin.ReleaseMode)

	h, cleanup, err := app.Build(ctx, cfg)
	if err != nil {
		slog.Error("failed to build gateway", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	router := httpserver.NewRouter(h, cfg.CORSAllowedOrigins)
	if err := httpserver.Run(ctx, net.JoinHostPort("", cfg.Port), router); err != nil {
		slog.Error("http server stopped", "err", err)
		cleanup()
		os.Exit(1)
	}
	slog.Info("http server stopped")
}
