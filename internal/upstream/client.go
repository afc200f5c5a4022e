package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/GriffinCanCode/AquaChat/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AquaChat/backend/internal/shared/types"
	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrMissingAPIKey is returned when no upstream credential is configured
var ErrMissingAPIKey = errors.New("AI_API_KEY is not configured")

// maxErrorBody bounds how much of a failed upstream response is logged
const maxErrorBody = 64 * 1024

// Recorder receives upstream response statuses
type Recorder interface {
	RecordUpstreamStatus(status string)
}

// Config configures the completions client
type Config struct {
	URL    string
	APIKey string
	Model  string
}

// Payload is the completions request body
type Payload struct {
	Model    string          `json:"model"`
	Messages []types.Message `json:"messages"`
	Stream   bool            `json:"stream"`
}

// Response is an open event stream from the provider
type Response struct {
	Status      int
	ContentType string
	// Body must be closed by the caller
	Body io.ReadCloser
}

// Client forwards chat requests to the upstream completions endpoint
type Client struct {
	resty    *resty.Client
	cfg      Config
	recorder Recorder
	logger   *zap.Logger
}

// New creates a completions client. Streams are long-lived, so no total
// timeout is set; the request context bounds each call.
func New(cfg Config, recorder Recorder, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "AquaChat-Proxy/1.0").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetDoNotParseResponse(true)

	return &Client{
		resty:    client,
		cfg:      cfg,
		recorder: recorder,
		logger:   logger,
	}
}

// Configured reports whether an API key is set
func (c *Client) Configured() bool {
	return c.cfg.APIKey != ""
}

// Model returns the configured model identifier
func (c *Client) Model() string {
	return c.cfg.Model
}

// Stream posts the system instruction and conversation with stream:true.
// A 2xx answer is returned unread. Any other status is drained, logged and
// translated to a *types.StatusError.
func (c *Client) Stream(ctx context.Context, system string, messages []types.Message) (*Response, error) {
	if !c.Configured() {
		return nil, ErrMissingAPIKey
	}

	all := make([]types.Message, 0, len(messages)+1)
	all = append(all, types.Message{Role: types.RoleSystem, Content: system})
	all = append(all, messages...)

	req := c.resty.R().
		SetContext(ctx).
		SetAuthToken(c.cfg.APIKey).
		SetBody(Payload{Model: c.cfg.Model, Messages: all, Stream: true})
	tracing.InjectHeaders(ctx, req.Header)

	resp, err := req.Post(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrTransport, err)
	}

	status := resp.StatusCode()
	if c.recorder != nil {
		c.recorder.RecordUpstreamStatus(strconv.Itoa(status))
	}

	raw := resp.RawBody()
	if resp.IsSuccess() {
		return &Response{
			Status:      status,
			ContentType: resp.Header().Get("Content-Type"),
			Body:        raw,
		}, nil
	}
	defer raw.Close()

	body, _ := io.ReadAll(io.LimitReader(raw, maxErrorBody))
	c.logger.Error("AI gateway error",
		append(tracing.Fields(ctx), zap.Int("status", status), zap.ByteString("body", body))...)

	return nil, types.FromStatus(status, types.ErrUpstreamGateway)
}
