package types

import "fmt"

// ChatRequest is the body accepted by the chat proxy
type ChatRequest struct {
	Messages []Message `json:"messages"`
}

// Validate checks that the request carries a usable conversation
func (r *ChatRequest) Validate() error {
	if r.Messages == nil {
		return fmt.Errorf("%w: messages is required", ErrMalformedRequest)
	}
	for i, m := range r.Messages {
		if !m.Role.Valid() {
			return fmt.Errorf("%w: messages[%d] has invalid role %q", ErrMalformedRequest, i, m.Role)
		}
	}
	return nil
}

// ErrorResponse is the JSON envelope for every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}
