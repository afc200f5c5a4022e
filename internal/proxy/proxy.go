package proxy

import (
	"context"
	"time"

	"github.com/GriffinCanCode/AquaChat/backend/internal/backend"
	"github.com/GriffinCanCode/AquaChat/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AquaChat/backend/internal/shared/types"
	"github.com/GriffinCanCode/AquaChat/backend/internal/upstream"
	"go.uber.org/zap"
)

// ContextSource produces the backend context block for one request
type ContextSource interface {
	Context(ctx context.Context) (string, []backend.Fragment)
}

// Streamer opens an upstream completions stream
type Streamer interface {
	Configured() bool
	Stream(ctx context.Context, system string, messages []types.Message) (*upstream.Response, error)
}

// ContextRecorder observes the size of each context block
type ContextRecorder interface {
	RecordContextSize(n int)
}

// Proxy augments a conversation with backend data and opens the upstream
// stream for it
type Proxy struct {
	source   ContextSource
	streamer Streamer
	persona  string
	recorder ContextRecorder
	logger   *zap.Logger
}

// Option configures a Proxy
type Option func(*Proxy)

// WithPersona replaces the default persona preamble
func WithPersona(persona string) Option {
	return func(p *Proxy) {
		if persona != "" {
			p.persona = persona
		}
	}
}

// WithRecorder records context sizes
func WithRecorder(r ContextRecorder) Option {
	return func(p *Proxy) { p.recorder = r }
}

// New creates a proxy
func New(source ContextSource, streamer Streamer, logger *zap.Logger, opts ...Option) *Proxy {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Proxy{
		source:   source,
		streamer: streamer,
		persona:  DefaultPersona,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle validates req, gathers backend context and opens the upstream
// stream. The stream lives as long as ctx; cancelling ctx aborts it.
func (p *Proxy) Handle(ctx context.Context, req *types.ChatRequest) (*upstream.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !p.streamer.Configured() {
		return nil, upstream.ErrMissingAPIKey
	}

	start := time.Now()
	block, fragments := p.source.Context(ctx)
	if p.recorder != nil {
		p.recorder.RecordContextSize(len(block))
	}

	system := SystemInstruction(p.persona, block)
	p.logger.Debug("Built system instruction",
		append(tracing.Fields(ctx),
			zap.Int("fragments", len(fragments)),
			zap.Int("system_bytes", len(system)),
			zap.Int("messages", len(req.Messages)),
			zap.Duration("context_duration", time.Since(start)),
		)...)

	return p.streamer.Stream(ctx, system, req.Messages)
}
