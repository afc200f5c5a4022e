// Package chat is the client side of the chat protocol: it opens a stream
// against the proxy, decodes it into the session's message buffer and maps
// failures to user-facing notices.
package chat
