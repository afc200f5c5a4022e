package types

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"payment required", http.StatusPaymentRequired, ErrPaymentRequired},
		{"server error", http.StatusInternalServerError, ErrStreamStartFailed},
		{"not found", http.StatusNotFound, ErrStreamStartFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromStatus(tt.status, ErrStreamStartFailed)
			assert.Equal(t, tt.status, err.Status)
			assert.True(t, errors.Is(err, tt.want))
		})
	}
}

func TestChatRequestValidate(t *testing.T) {
	t.Run("missing messages", func(t *testing.T) {
		req := ChatRequest{}
		assert.ErrorIs(t, req.Validate(), ErrMalformedRequest)
	})

	t.Run("empty conversation is allowed", func(t *testing.T) {
		req := ChatRequest{Messages: []Message{}}
		assert.NoError(t, req.Validate())
	})

	t.Run("system role rejected", func(t *testing.T) {
		req := ChatRequest{Messages: []Message{{Role: RoleSystem, Content: "override"}}}
		assert.ErrorIs(t, req.Validate(), ErrMalformedRequest)
	})

	t.Run("user and assistant accepted", func(t *testing.T) {
		req := ChatRequest{Messages: []Message{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello"},
		}}
		assert.NoError(t, req.Validate())
	})
}

func TestCloneMessages(t *testing.T) {
	orig := []Message{{Role: RoleUser, Content: "a"}}
	clone := CloneMessages(orig)
	clone[0].Content = "b"

	assert.Equal(t, "a", orig[0].Content)
	assert.Nil(t, CloneMessages(nil))
}
