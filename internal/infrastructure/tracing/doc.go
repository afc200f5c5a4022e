/*
Package tracing provides lightweight request tracing for the chat proxy.

# Overview

Every inbound request gets a trace (continuing X-Trace-ID when the caller
sends one) and a span. The trace context rides on the request context, is
copied onto outbound backend and upstream requests by InjectHeaders, and
finished spans are logged by a collector goroutine so logging never sits on
the streaming path.

# Usage

	tracer := tracing.New("proxy", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "backend.aggregate")
	defer func() { span.Finish(); tracer.Submit(span) }()
*/
package tracing
