// Package upstream is the client for the OpenAI-compatible completions
// gateway. It only opens streams; relaying and decoding happen elsewhere.
package upstream
