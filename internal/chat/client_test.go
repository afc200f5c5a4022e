package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/GriffinCanCode/AquaChat/backend/internal/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingScheduler struct {
	mu        sync.Mutex
	exchanges []types.Exchange
}

func (s *capturingScheduler) Schedule(ex types.Exchange) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exchanges = append(s.exchanges, ex)
	return true
}

func chatServer(t *testing.T, handler func(w http.ResponseWriter, req types.ChatRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))
		var req types.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		handler(w, req)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSessionSend(t *testing.T) {
	var seen [][]types.Message
	srv := chatServer(t, func(w http.ResponseWriter, req types.ChatRequest) {
		seen = append(seen, req.Messages)
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Test\"}}]}\n")
		w.(http.Flusher).Flush()
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\" daily.\"}}]}\ndata: [DONE]\n")
	})

	sched := &capturingScheduler{}
	session := NewSession(NewClient(srv.URL, "anon-key", nil), "conv-1", sched)

	var updates [][]types.Message
	res, err := session.Send(context.Background(), "How often should I test pond pH?", func(m []types.Message) {
		updates = append(updates, m)
	})
	require.NoError(t, err)

	want := []types.Message{
		{Role: types.RoleUser, Content: "How often should I test pond pH?"},
		{Role: types.RoleAssistant, Content: "Test daily."},
	}
	assert.Equal(t, want, res.Messages)
	assert.Equal(t, want, session.Messages())
	assert.True(t, res.Scheduled)

	require.Len(t, updates, 3)
	assert.Equal(t, want[:1], updates[0])
	assert.Equal(t, "Test", updates[1][1].Content)
	assert.Equal(t, want, updates[2])

	assert.Equal(t, []types.Exchange{{
		ConversationID: "conv-1",
		User:           "How often should I test pond pH?",
		Assistant:      "Test daily.",
	}}, sched.exchanges)

	// The second turn carries the whole conversation
	_, err = session.Send(context.Background(), "And ammonia?", nil)
	require.NoError(t, err)
	require.Len(t, seen, 2)
	assert.Equal(t, append(want, types.Message{Role: types.RoleUser, Content: "And ammonia?"}), seen[1])
	assert.Len(t, session.Messages(), 4)
}

func TestSessionStartFailures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		want       error
		wantNotice string
	}{
		{"rate limited", http.StatusTooManyRequests, types.ErrRateLimited, NoticeRateLimited},
		{"payment required", http.StatusPaymentRequired, types.ErrPaymentRequired, NoticePaymentRequired},
		{"gateway error", http.StatusInternalServerError, types.ErrStreamStartFailed, NoticeGeneric},
		{"no body", http.StatusNoContent, types.ErrStreamStartFailed, NoticeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := chatServer(t, func(w http.ResponseWriter, _ types.ChatRequest) {
				w.WriteHeader(tt.status)
				if tt.status != http.StatusNoContent {
					_, _ = fmt.Fprint(w, `{"error":"nope"}`)
				}
			})

			sched := &capturingScheduler{}
			session := NewSession(NewClient(srv.URL, "anon-key", nil), "conv-1", sched)
			res, err := session.Send(context.Background(), "hello", nil)

			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.wantNotice, Notice(err))
			// Only the optimistic echo remains
			assert.Equal(t, []types.Message{{Role: types.RoleUser, Content: "hello"}}, res.Messages)
			assert.Equal(t, res.Messages, session.Messages())
			assert.Empty(t, sched.exchanges)
		})
	}
}

func TestSessionMidStreamFailureKeepsPartial(t *testing.T) {
	srv := chatServer(t, func(w http.ResponseWriter, _ types.ChatRequest) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Partial\"}}]}\n")
		w.(http.Flusher).Flush()

		conn, _, err := w.(http.Hijacker).Hijack()
		require.NoError(t, err)
		_ = conn.Close()
	})

	session := NewSession(NewClient(srv.URL, "anon-key", nil), "", nil)
	res, err := session.Send(context.Background(), "q", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrTransport)
	assert.Equal(t, NoticeGeneric, Notice(err))
	assert.Equal(t, "Partial", res.AssistantContent)
	assert.Equal(t, "Partial", session.Messages()[1].Content)
}

func TestSessionResume(t *testing.T) {
	session := NewSession(NewClient("http://unused", "", nil), "c", nil)
	history := []types.Message{{Role: types.RoleUser, Content: "a"}, {Role: types.RoleAssistant, Content: "b"}}

	session.Resume(history)
	history[0].Content = "changed"

	assert.Equal(t, "a", session.Messages()[0].Content)
}

func TestNotice(t *testing.T) {
	assert.Empty(t, Notice(nil))
	assert.Equal(t, NoticeRateLimited, Notice(&types.StatusError{Status: 429, Err: types.ErrRateLimited}))
	assert.Equal(t, NoticePaymentRequired, Notice(fmt.Errorf("wrapped: %w", types.ErrPaymentRequired)))
	assert.Equal(t, NoticeGeneric, Notice(errors.New("boom")))
	assert.Equal(t, NoticeGeneric, Notice(ErrNoBody))
}
