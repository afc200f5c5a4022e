// Package server wires configuration, the chat pipeline and the Gin
// router into a runnable HTTP server.
package server
