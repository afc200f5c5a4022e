package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GriffinCanCode/AquaChat/backend/internal/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusRecorder struct {
	statuses []string
}

func (r *statusRecorder) RecordUpstreamStatus(status string) {
	r.statuses = append(r.statuses, status)
}

func TestStreamSendsPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")

		var payload Payload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "google/gemini-2.5-flash", payload.Model)
		assert.True(t, payload.Stream)
		assert.Equal(t, []types.Message{
			{Role: types.RoleSystem, Content: "persona"},
			{Role: types.RoleUser, Content: "What pH for tilapia?"},
		}, payload.Messages)

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	rec := &statusRecorder{}
	c := New(Config{URL: srv.URL, APIKey: "test-key", Model: "google/gemini-2.5-flash"}, rec, nil)

	resp, err := c.Stream(context.Background(), "persona", []types.Message{
		{Role: types.RoleUser, Content: "What pH for tilapia?"},
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "data: [DONE]\n\n", string(body))
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "text/event-stream", resp.ContentType)
	assert.Equal(t, []string{"200"}, rec.statuses)
}

func TestStreamStatusTranslation(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, types.ErrRateLimited},
		{"payment required", http.StatusPaymentRequired, types.ErrPaymentRequired},
		{"server error", http.StatusServiceUnavailable, types.ErrUpstreamGateway},
		{"bad request", http.StatusBadRequest, types.ErrUpstreamGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, `{"error":"provider detail"}`)
			}))
			defer srv.Close()

			c := New(Config{URL: srv.URL, APIKey: "k"}, nil, nil)
			resp, err := c.Stream(context.Background(), "sys", nil)

			assert.Nil(t, resp)
			assert.ErrorIs(t, err, tt.want)

			var se *types.StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.status, se.Status)
		})
	}
}

func TestStreamMissingAPIKey(t *testing.T) {
	c := New(Config{URL: "http://127.0.0.1:1"}, nil, nil)

	assert.False(t, c.Configured())
	_, err := c.Stream(context.Background(), "sys", nil)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Equal(t, "AI_API_KEY is not configured", err.Error())
}

func TestStreamTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(Config{URL: url, APIKey: "k"}, nil, nil).Stream(context.Background(), "sys", nil)
	assert.ErrorIs(t, err, types.ErrTransport)
}

func TestStreamCancellationReachesUpstream(t *testing.T) {
	gone := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.(http.Flusher).Flush()
		<-r.Context().Done()
		close(gone)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	resp, err := New(Config{URL: srv.URL, APIKey: "k"}, nil, nil).Stream(ctx, "sys", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	cancel()
	<-gone
}
