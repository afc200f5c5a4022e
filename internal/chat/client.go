package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/GriffinCanCode/AquaChat/backend/internal/shared/types"
	"github.com/GriffinCanCode/AquaChat/backend/internal/stream"
	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// User-visible notices
const (
	NoticeRateLimited     = "Rate limit exceeded. Please try again later."
	NoticePaymentRequired = "Payment required. Please add credits to your workspace."
	NoticeGeneric         = "Something went wrong. Please try again."
)

// ErrNoBody is returned when the proxy accepted the request without a stream
var ErrNoBody = fmt.Errorf("%w: no response body", types.ErrStreamStartFailed)

// Notice maps an error to the message shown to the user
func Notice(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, types.ErrRateLimited):
		return NoticeRateLimited
	case errors.Is(err, types.ErrPaymentRequired):
		return NoticePaymentRequired
	default:
		return NoticeGeneric
	}
}

// Client opens chat streams against the proxy
type Client struct {
	resty  *resty.Client
	url    string
	logger *zap.Logger
}

// NewClient creates a client for the chat endpoint at url. token is sent
// as a bearer credential and never inspected.
func NewClient(url, token string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetHeader("Content-Type", "application/json").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal).
		SetDoNotParseResponse(true)
	if token != "" {
		client.SetAuthToken(token)
	}
	return &Client{resty: client, url: url, logger: logger}
}

// Open posts the conversation and returns the event-stream body. Non-2xx
// answers become *types.StatusError values.
func (c *Client) Open(ctx context.Context, messages []types.Message) (io.ReadCloser, error) {
	if messages == nil {
		messages = []types.Message{}
	}

	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(types.ChatRequest{Messages: messages}).
		Post(c.url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrStreamStartFailed, err)
	}

	raw := resp.RawBody()
	if !resp.IsSuccess() {
		if raw != nil {
			body, _ := io.ReadAll(io.LimitReader(raw, 4096))
			raw.Close()
			c.logger.Warn("Chat stream rejected",
				zap.Int("status", resp.StatusCode()), zap.ByteString("body", body))
		}
		return nil, types.FromStatus(resp.StatusCode(), types.ErrStreamStartFailed)
	}
	if raw == nil || raw == http.NoBody {
		return nil, ErrNoBody
	}
	return raw, nil
}

// Session is one conversation: it keeps the message buffer across turns
// and hands finished exchanges to an optional scheduler.
type Session struct {
	client         *Client
	conversationID string
	scheduler      stream.Scheduler
	logger         *zap.Logger
	messages       []types.Message
}

// NewSession starts an empty conversation. scheduler may be nil.
func NewSession(client *Client, conversationID string, scheduler stream.Scheduler) *Session {
	return &Session{
		client:         client,
		conversationID: conversationID,
		scheduler:      scheduler,
		logger:         client.logger,
	}
}

// Resume seeds the buffer with earlier messages
func (s *Session) Resume(history []types.Message) {
	s.messages = types.CloneMessages(history)
}

// Messages returns a copy of the conversation buffer
func (s *Session) Messages() []types.Message {
	return types.CloneMessages(s.messages)
}

// Send appends the user message, streams the reply and calls onUpdate with
// every snapshot, starting with the optimistic echo. The buffer keeps the
// user message on failure and any partial reply on a mid-stream error.
func (s *Session) Send(ctx context.Context, text string, onUpdate func([]types.Message)) (stream.Result, error) {
	history := s.messages
	s.messages = append(types.CloneMessages(history), types.Message{Role: types.RoleUser, Content: text})
	if onUpdate != nil {
		onUpdate(s.Messages())
	}

	body, err := s.client.Open(ctx, s.messages)
	if err != nil {
		return stream.Result{Messages: s.Messages()}, err
	}

	opts := []stream.Option{stream.WithContext(ctx), stream.WithLogger(s.logger)}
	if s.scheduler != nil {
		opts = append(opts, stream.WithPersistence(s.scheduler, s.conversationID))
	}
	st := stream.Decode(body, history, text, opts...)
	defer st.Close()

	// The first snapshot repeats the echo already delivered
	st.Next()
	for st.Next() {
		s.messages = st.Snapshot()
		if onUpdate != nil {
			onUpdate(s.Messages())
		}
	}

	res := st.Result()
	s.messages = res.Messages
	return res, st.Err()
}
