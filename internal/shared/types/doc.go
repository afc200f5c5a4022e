// Package types provides shared data structures for the AquaChat backend.
//
// This package defines the types that cross component boundaries: the
// chat proxy, the stream decoder and the persistence queue all speak in
// terms of Message and Exchange.
//
// Core Types:
//   - Message: One conversation turn (user or assistant)
//   - Exchange: A finished user/assistant pair ready for storage
//   - ChatRequest: Body accepted by the proxy
//
// Errors:
//   - Sentinel errors for the failure taxonomy (rate limit, payment,
//     stream start, gateway, module, malformed request, transport)
//   - StatusError: HTTP status carried alongside a sentinel
//
// Example Usage:
//
//	req := types.ChatRequest{Messages: []types.Message{
//	    {Role: types.RoleUser, Content: "How often should I test pond pH?"},
//	}}
package types
