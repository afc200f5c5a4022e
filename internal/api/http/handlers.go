package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/GriffinCanCode/AquaChat/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AquaChat/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AquaChat/backend/internal/shared/types"
	"github.com/GriffinCanCode/AquaChat/backend/internal/upstream"
	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error messages returned to chat callers
const (
	MsgRateLimited     = "Rate limits exceeded, please try again later."
	MsgPaymentRequired = "Payment required, please add funds to your workspace."
	MsgGatewayError    = "AI gateway error"
	MsgInvalidBody     = "Invalid JSON body"
)

// maxRequestBody bounds the chat request body
const maxRequestBody = 1 << 20

// relayBufferSize is the read size used when relaying the event stream
const relayBufferSize = 32 * 1024

// ChatProxy opens an upstream stream for a chat request
type ChatProxy interface {
	Handle(ctx context.Context, req *types.ChatRequest) (*upstream.Response, error)
}

// StreamRecorder tracks relayed streams
type StreamRecorder interface {
	StreamStarted() func(relayed int64)
}

// BackendStatus reports per-module breaker state
type BackendStatus interface {
	BreakerStates() map[string]resilience.State
}

// HealthInfo is static data reported by the health endpoint
type HealthInfo struct {
	Model   string
	Modules []string
	// Backend is nil when no backend is configured
	Backend BackendStatus
}

// Handlers contains all HTTP handlers
type Handlers struct {
	proxy    ChatProxy
	recorder StreamRecorder
	health   HealthInfo
	logger   *zap.Logger
	started  time.Time
}

// NewHandlers creates a new handler set
func NewHandlers(proxy ChatProxy, recorder StreamRecorder, health HealthInfo, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		proxy:    proxy,
		recorder: recorder,
		health:   health,
		logger:   logger,
		started:  time.Now(),
	}
}

// Health handles detailed health check
func (h *Handlers) Health(c *gin.Context) {
	backend := gin.H{"configured": h.health.Backend != nil}
	if h.health.Backend != nil {
		breakers := make(map[string]string)
		for name, state := range h.health.Backend.BreakerStates() {
			breakers[name] = state.String()
		}
		backend["breakers"] = breakers
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "aquachat-proxy",
		"model":   h.health.Model,
		"modules": h.health.Modules,
		"backend": backend,
		"uptime":  time.Since(h.started).Round(time.Second).String(),
	})
}

// Preflight answers OPTIONS with no body. The CORS middleware normally
// answers first; this keeps the route explicit.
func (h *Handlers) Preflight(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Chat validates the conversation, opens the upstream stream and relays
// it to the caller byte for byte.
func (h *Handlers) Chat(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRequestBody))
	if err != nil {
		h.fail(c, http.StatusBadRequest, MsgInvalidBody, err)
		return
	}

	var req types.ChatRequest
	if err := sonic.Unmarshal(body, &req); err != nil {
		h.fail(c, http.StatusBadRequest, MsgInvalidBody, err)
		return
	}

	resp, err := h.proxy.Handle(ctx, &req)
	if err != nil {
		status, msg := errorResponse(err)
		h.fail(c, status, msg, err)
		return
	}
	defer resp.Body.Close()

	h.relay(c, resp.Body)
}

func (h *Handlers) relay(c *gin.Context, body io.Reader) {
	var done func(int64)
	if h.recorder != nil {
		done = h.recorder.StreamStarted()
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	var relayed int64
	buf := make([]byte, relayBufferSize)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := c.Writer.Write(buf[:n]); werr != nil {
				h.logger.Debug("Caller went away during relay",
					append(tracing.Fields(c.Request.Context()), zap.Error(werr))...)
				break
			}
			c.Writer.Flush()
			relayed += int64(n)
		}
		if rerr != nil {
			if !errors.Is(rerr, io.EOF) && c.Request.Context().Err() == nil {
				h.logger.Warn("Upstream stream ended with error",
					append(tracing.Fields(c.Request.Context()), zap.Error(rerr))...)
				_ = c.Error(rerr)
			}
			break
		}
	}

	if done != nil {
		done(relayed)
	}
}

func (h *Handlers) fail(c *gin.Context, status int, msg string, err error) {
	fields := append(tracing.Fields(c.Request.Context()), zap.Int("status", status), zap.Error(err))
	if status >= http.StatusInternalServerError {
		h.logger.Error("Chat request failed", fields...)
	} else {
		h.logger.Warn("Chat request rejected", fields...)
	}
	_ = c.Error(err)
	c.JSON(status, types.ErrorResponse{Error: msg})
}

// errorResponse maps a pipeline error to the status and message sent to
// the caller. Upstream details stay in the logs.
func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, types.ErrMalformedRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, types.ErrRateLimited):
		return http.StatusTooManyRequests, MsgRateLimited
	case errors.Is(err, types.ErrPaymentRequired):
		return http.StatusPaymentRequired, MsgPaymentRequired
	case errors.Is(err, types.ErrUpstreamGateway):
		return http.StatusInternalServerError, MsgGatewayError
	default:
		return http.StatusInternalServerError, err.Error()
	}
}
