// Package http contains the Gin handlers of the chat proxy.
package http
