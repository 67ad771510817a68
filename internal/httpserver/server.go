// Package httpserver exposes the chat handler over plain HTTP with gin, for
// running the gateway outside Lambda.
package httpserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"chat-gateway/handler"
	"chat-gateway/internal/usecase"
)

const (
	// MaxRequestBytes bounds a chat request body.
	MaxRequestBytes = 1 << 20

	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	correlationKey    = "correlation_id"
)

// ChatServer is the transport-independent request handler. Serve reports
// the unconfigured state before looking at the body.
type ChatServer interface {
	Serve(ctx context.Context, corrID string, body []byte) (int, any)
	Configured() bool
}

// NewRouter builds the gin engine with the chat routes.
func NewRouter(h ChatServer, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), correlation(), requestLog())
	r.Use(cors.New(corsConfig(allowedOrigins)))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	chat := chatHandler(h)
	r.POST("/api/chat", chat)
	v1 := r.Group("/v1")
	{
		v1.POST("/chat", chat)
	}
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", handler.HeaderCorrelationID},
		ExposeHeaders: []string{handler.HeaderCorrelationID},
		MaxAge:        12 * time.Hour,
	}
	allowAll := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func chatHandler(h ChatServer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.Configured() {
			c.JSON(h.Serve(c.Request.Context(), c.GetString(correlationKey), nil))
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxRequestBytes))
		if err != nil {
			status := http.StatusBadRequest
			msg := "could not read request body"
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				status = http.StatusRequestEntityTooLarge
				msg = "request body too large"
			}
			c.JSON(status, gin.H{
				"error":   msg,
				"code":    string(usecase.ErrorInvalidInput),
				"content": usecase.FallbackPhrase(usecase.ErrorInvalidInput),
			})
			return
		}

		status, payload := h.Serve(c.Request.Context(), c.GetString(correlationKey), body)
		c.JSON(status, payload)
	}
}

func correlation() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := handler.CorrelationID(c.GetHeader(handler.HeaderCorrelationID))
		c.Set(correlationKey, id)
		c.Header(handler.HeaderCorrelationID, id)
		c.Next()
	}
}

func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"correlation_id", c.GetString(correlationKey),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// Run serves h on addr until ctx is cancelled, then drains in-flight
// requests.
func Run(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		return err
	}
	return <-errCh
}
