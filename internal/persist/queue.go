package persist

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/AquaChat/backend/internal/shared/types"
	"go.uber.org/zap"
)

// Store persists finished exchanges
type Store interface {
	SaveExchange(ctx context.Context, ex types.Exchange) error
}

// Queue hands exchanges to a Store on a background worker. Scheduling
// never blocks the caller.
type Queue struct {
	store   Store
	logger  *zap.Logger
	timeout time.Duration
	items   chan types.Exchange

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewQueue creates a queue with room for size pending exchanges and
// starts its worker
func NewQueue(store Store, size int, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	if size <= 0 {
		size = 64
	}
	q := &Queue{
		store:   store,
		logger:  logger,
		timeout: 10 * time.Second,
		items:   make(chan types.Exchange, size),
		done:    make(chan struct{}),
	}
	go q.run()
	return q
}

// Schedule enqueues ex. It reports false when the queue is full or closed;
// the exchange is then dropped.
func (q *Queue) Schedule(ex types.Exchange) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}

	select {
	case q.items <- ex:
		return true
	default:
		q.logger.Warn("Persistence queue full, dropping exchange",
			zap.String("conversation_id", ex.ConversationID))
		return false
	}
}

// Close stops accepting exchanges and waits for pending ones to be saved
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		<-q.done
		return
	}
	q.closed = true
	close(q.items)
	q.mu.Unlock()

	<-q.done
}

func (q *Queue) run() {
	defer close(q.done)
	for ex := range q.items {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		if err := q.store.SaveExchange(ctx, ex); err != nil {
			q.logger.Error("Failed to persist exchange",
				zap.String("conversation_id", ex.ConversationID), zap.Error(err))
		}
		cancel()
	}
}
