// Package middleware provides the Gin middleware in front of the chat
// routes: CORS for browser clients and per-client rate limiting.
package middleware
