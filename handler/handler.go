package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"chat-gateway/internal/domain"
	"chat-gateway/internal/usecase"
)

// HeaderCorrelationID carries the request correlation id in both directions.
const HeaderCorrelationID = "X-Correlation-Id"

// StatusClientClosedRequest is returned when the caller went away.
const StatusClientClosedRequest = 499

type ChatUseCase interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
	Configured() bool
}

type Handler struct {
	uc ChatUseCase
}

type chatRequest struct {
	Model    string          `json:"model"`
	ModelID  string          `json:"modelId"`
	Messages json.RawMessage `json:"messages"`
}

type chatResponse struct {
	Content string `json:"content"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Content string `json:"content"`
}

type healthResponse struct {
	Status string `json:"status"`
}

func NewHandler(uc ChatUseCase) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	return &Handler{uc: uc}, nil
}

// Configured reports whether the use case can reach the provider.
func (h *Handler) Configured() bool {
	return h.uc.Configured()
}

// Handle is the Lambda entry point for API Gateway proxy events.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := CorrelationID(headerValue(req.Headers, HeaderCorrelationID))

	if req.HTTPMethod == http.MethodOptions {
		return respond(http.StatusNoContent, nil, corrID), nil
	}
	if req.HTTPMethod == http.MethodGet && strings.HasSuffix(req.Path, "/health") {
		return respond(http.StatusOK, healthResponse{Status: "ok"}, corrID), nil
	}
	if !strings.HasSuffix(strings.TrimRight(req.Path, "/"), "/chat") {
		return respond(http.StatusNotFound, rejection("not found"), corrID), nil
	}
	if req.HTTPMethod != http.MethodPost {
		resp := respond(http.StatusMethodNotAllowed, rejection("method not allowed"), corrID)
		resp.Headers["Allow"] = "POST, OPTIONS"
		return resp, nil
	}
	if !h.uc.Configured() {
		status, payload := mapError(usecase.UnconfiguredError())
		return respond(status, payload, corrID), nil
	}

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return respond(http.StatusBadRequest, rejection("request body is not valid base64"), corrID), nil
		}
		body = decoded
	}

	status, payload := h.Serve(ctx, corrID, body)
	return respond(status, payload, corrID), nil
}

// Serve decodes a chat request body, runs the use case and returns the HTTP
// status and JSON payload. It is shared by the Lambda and HTTP transports.
func (h *Handler) Serve(ctx context.Context, corrID string, body []byte) (int, any) {
	start := time.Now()

	// A missing credential is reported for every request, well-formed or not.
	if !h.uc.Configured() {
		status, payload := mapError(usecase.UnconfiguredError())
		slog.Warn("chat request refused", "correlation_id", corrID, "code", payload.Code)
		return status, payload
	}

	in, err := decodeChatRequest(body)
	if err != nil {
		slog.Info("chat request rejected", "correlation_id", corrID, "err", err)
		return http.StatusBadRequest, rejection(err.Error())
	}

	out, err := h.uc.Chat(ctx, in)
	if err != nil {
		status, payload := mapError(err)
		slog.Warn("chat request failed",
			"correlation_id", corrID,
			"model", in.ModelID,
			"status", status,
			"code", payload.Code,
			"err", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return status, payload
	}

	slog.Info("chat request served",
		"correlation_id", corrID,
		"session_id", out.SessionID,
		"model", in.ModelID,
		"browsing", out.Browsing,
		"domain", out.Domain,
		"empty_reply", out.Empty,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return http.StatusOK, chatResponse{Content: out.Content}
}

func decodeChatRequest(body []byte) (usecase.ChatInput, error) {
	var req chatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return usecase.ChatInput{}, errors.New("request body must be a JSON object")
	}
	model := req.Model
	if strings.TrimSpace(model) == "" {
		model = req.ModelID
	}

	in := usecase.ChatInput{ModelID: strings.TrimSpace(model)}
	raw := strings.TrimSpace(string(req.Messages))
	if raw == "" || raw == "null" {
		return in, nil
	}
	if !strings.HasPrefix(raw, "[") {
		return usecase.ChatInput{}, errors.New("messages must be an array")
	}
	if err := json.Unmarshal(req.Messages, &in.Messages); err != nil {
		return usecase.ChatInput{}, errors.New("messages must be an array of {role, content} objects")
	}
	if in.Messages == nil {
		in.Messages = []domain.ChatMessage{}
	}
	return in, nil
}

func mapError(err error) (int, errorResponse) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, errorResponse{
			Error:   "internal error",
			Code:    string(usecase.ErrorInternal),
			Content: usecase.FallbackPhrase(usecase.ErrorInternal),
		}
	}
	return StatusFor(ucErr.Code), errorResponse{
		Error:   ucErr.Diagnostic(),
		Code:    string(ucErr.Code),
		Content: usecase.FallbackPhrase(ucErr.Code),
	}
}

// StatusFor maps a use case error code to its HTTP status.
func StatusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorUnconfigured:
		return http.StatusServiceUnavailable
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests
	case usecase.ErrorUpstream:
		return http.StatusBadGateway
	case usecase.ErrorCancelled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

func rejection(diagnostic string) errorResponse {
	return errorResponse{
		Error:   diagnostic,
		Code:    string(usecase.ErrorInvalidInput),
		Content: usecase.FallbackPhrase(usecase.ErrorInvalidInput),
	}
}

// CorrelationID returns the caller's id, or a fresh one when none was sent.
func CorrelationID(provided string) string {
	if v := strings.TrimSpace(provided); v != "" {
		return v
	}
	return uuid.NewString()
}

func headerValue(headers map[string]string, key string) string {
	if v, ok := headers[key]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func respond(status int, payload any, corrID string) events.APIGatewayProxyResponse {
	headers := map[string]string{
		"Content-Type":                 "application/json",
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type, " + HeaderCorrelationID,
		"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
		HeaderCorrelationID:            corrID,
	}
	if payload == nil {
		return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("encode response", "correlation_id", corrID, "err", err)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    headers,
			Body:       `{"error":"internal error","code":"INTERNAL_ERROR"}`,
		}
	}
	return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers, Body: string(body)}
}
