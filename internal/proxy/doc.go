// Package proxy implements the chat request pipeline: validate, gather
// backend context, build the system instruction and open the upstream
// stream. Relaying the stream to the caller is the HTTP layer's job.
package proxy
