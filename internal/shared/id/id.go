// Package id generates the identifiers that appear in AquaChat logs,
// trace headers and persisted rows.
//
// IDs are prefixed ULIDs: lexicographically sortable by creation time and
// readable in logs (req_01J..., conv_01J..., span_01J...).
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RequestID identifies one inbound proxy request
type RequestID string

// ConversationID identifies a persisted conversation
type ConversationID string

// SpanID identifies one traced operation
type SpanID string

const (
	RequestPrefix      = "req"
	ConversationPrefix = "conv"
	SpanPrefix         = "span"
)

// Generator produces ULIDs from a single entropy source
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Tests use it for deterministic output.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// WithPrefix creates a "prefix_ULID" string
func (g *Generator) WithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().WithPrefix(RequestPrefix))
}

// NewConversationID generates a new conversation ID
func NewConversationID() ConversationID {
	return ConversationID(Default().WithPrefix(ConversationPrefix))
}

// NewSpanID generates a new span ID
func NewSpanID() SpanID {
	return SpanID(Default().WithPrefix(SpanPrefix))
}

func (id RequestID) String() string      { return string(id) }
func (id ConversationID) String() string { return string(id) }
func (id SpanID) String() string         { return string(id) }

// Timestamp extracts the creation time from a prefixed or bare ID
func Timestamp(s string) (time.Time, error) {
	if i := strings.LastIndexByte(s, '_'); i >= 0 {
		s = s[i+1:]
	}
	parsed, err := ulid.Parse(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return ulid.Time(parsed.Time()), nil
}
