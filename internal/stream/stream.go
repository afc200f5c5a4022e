package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/GriffinCanCode/AquaChat/backend/internal/shared/types"
	"go.uber.org/zap"
)

// DefaultReadSize is the size of each read from the response body
const DefaultReadSize = 4096

// Scheduler accepts finished exchanges for persistence. Schedule must not
// block; the decoder never learns whether the write succeeded.
type Scheduler interface {
	Schedule(ex types.Exchange) bool
}

// Result is the terminal state of a stream
type Result struct {
	// Messages is the conversation buffer: history, the user message and
	// the assistant message if any content arrived
	Messages         []types.Message
	AssistantContent string
	// Done is set when the stream ended normally (sentinel or end of body)
	Done bool
	// Aborted is set when the consumer stopped the stream early
	Aborted bool
	// Scheduled is set when the exchange was handed to persistence
	Scheduled bool
}

// Option configures a Stream
type Option func(*Stream)

// WithContext stops the stream quietly when ctx is done
func WithContext(ctx context.Context) Option {
	return func(s *Stream) { s.ctx = ctx }
}

// WithPersistence schedules the finished exchange under conversationID
func WithPersistence(scheduler Scheduler, conversationID string) Option {
	return func(s *Stream) {
		s.scheduler = scheduler
		s.conversationID = conversationID
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Stream) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithReadSize sets the body read size
func WithReadSize(n int) Option {
	return func(s *Stream) {
		if n > 0 {
			s.readSize = n
		}
	}
}

// Stream is a pull-based sequence of conversation snapshots decoded from
// an event-stream body. Next, Snapshot, Err and Result belong to one
// goroutine; Close may be called from any goroutine.
type Stream struct {
	body     io.ReadCloser
	ctx      context.Context
	logger   *zap.Logger
	readSize int

	scheduler      Scheduler
	conversationID string

	user     string
	messages []types.Message
	content  strings.Builder
	scanner  frameScanner

	started   bool
	eof       bool
	readErr   error
	finished  bool
	done      bool
	aborted   bool
	scheduled bool
	err       error

	closed    atomic.Bool
	closeOnce sync.Once
	stopWatch func() bool
}

// Decode starts decoding body. The user message is appended to a copy of
// history right away, so the first snapshot echoes it before any byte is
// read. The caller must Close the stream.
func Decode(body io.ReadCloser, history []types.Message, user string, opts ...Option) *Stream {
	s := &Stream{
		body:     body,
		ctx:      context.Background(),
		logger:   zap.NewNop(),
		readSize: DefaultReadSize,
		user:     user,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.messages = make([]types.Message, 0, len(history)+2)
	s.messages = append(s.messages, history...)
	s.messages = append(s.messages, types.Message{Role: types.RoleUser, Content: user})

	// Unblock an in-flight read when the context ends
	s.stopWatch = context.AfterFunc(s.ctx, func() { s.closeBody() })
	return s
}

// Next advances to the next snapshot. The first call returns the
// optimistic echo; each later call returns after one non-empty delta.
// It returns false once the stream has ended, failed or been stopped.
func (s *Stream) Next() bool {
	if !s.started {
		s.started = true
		return true
	}

	buf := make([]byte, s.readSize)
	for !s.finished {
		if s.stopped() {
			s.abort()
			return false
		}

		switch kind, delta := s.scanner.next(); kind {
		case eventDelta:
			s.apply(delta)
			return true
		case eventDone:
			s.finish()
			return false
		}

		// No more bytes will arrive: settle a pushed-back frame, then end
		// once every buffered line has been drained
		if s.eof || s.readErr != nil {
			if s.scanner.resume() {
				continue
			}
			if s.readErr != nil {
				s.fail(s.readErr)
			} else {
				s.finish()
			}
			return false
		}

		n, err := s.body.Read(buf)
		if n > 0 {
			s.scanner.feed(buf[:n])
		}
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			s.eof = true
		case s.stopped():
			s.abort()
		default:
			// Frames delivered with the error are folded in first
			s.readErr = err
		}
	}
	return false
}

// Snapshot returns a copy of the conversation buffer
func (s *Stream) Snapshot() []types.Message {
	return types.CloneMessages(s.messages)
}

// Content returns the assistant text accumulated so far
func (s *Stream) Content() string {
	return s.content.String()
}

// Err returns the mid-stream failure, if any. Stopping the stream through
// Close or its context is not an error.
func (s *Stream) Err() error {
	return s.err
}

// Result returns the stream's current terminal view
func (s *Stream) Result() Result {
	return Result{
		Messages:         s.Snapshot(),
		AssistantContent: s.content.String(),
		Done:             s.done,
		Aborted:          s.aborted || (!s.finished && s.closed.Load()),
		Scheduled:        s.scheduled,
	}
}

// Close stops the stream and releases the body. Accumulated content is
// kept.
func (s *Stream) Close() error {
	s.closed.Store(true)
	s.stopWatch()
	return s.closeBody()
}

func (s *Stream) closeBody() error {
	var err error
	s.closeOnce.Do(func() { err = s.body.Close() })
	return err
}

func (s *Stream) release() {
	s.stopWatch()
	_ = s.closeBody()
}

func (s *Stream) stopped() bool {
	return s.closed.Load() || s.ctx.Err() != nil
}

// apply folds one delta into the open assistant message
func (s *Stream) apply(delta string) {
	s.content.WriteString(delta)
	content := s.content.String()

	if last := len(s.messages) - 1; last >= 0 && s.messages[last].Role == types.RoleAssistant {
		s.messages[last].Content = content
		return
	}
	s.messages = append(s.messages, types.Message{Role: types.RoleAssistant, Content: content})
}

func (s *Stream) finish() {
	s.finished = true
	s.done = true
	if n := s.scanner.pending(); n > 0 {
		s.logger.Debug("Discarding unterminated stream bytes", zap.Int("bytes", n))
	}
	if s.scanner.dropped > 0 {
		s.logger.Warn("Dropped unparseable stream frames", zap.Int("frames", s.scanner.dropped))
	}
	s.release()
	s.schedule()
}

func (s *Stream) abort() {
	s.finished = true
	s.aborted = true
	s.release()
}

func (s *Stream) fail(err error) {
	s.finished = true
	s.err = fmt.Errorf("%w: %v", types.ErrTransport, err)
	s.release()
}

func (s *Stream) schedule() {
	if s.scheduler == nil || s.conversationID == "" || s.content.Len() == 0 {
		return
	}
	s.scheduled = s.scheduler.Schedule(types.Exchange{
		ConversationID: s.conversationID,
		User:           s.user,
		Assistant:      s.content.String(),
	})
	if !s.scheduled {
		s.logger.Warn("Exchange was not scheduled for persistence",
			zap.String("conversation_id", s.conversationID))
	}
}
