// Package main is the entry point for the AquaChat proxy server.
//
// The server answers chat requests from the web client: it gathers live
// data from the MGM backend modules, prepends the aquaculture persona and
// relays the upstream completions stream back to the caller.
//
//	Client → AquaChat proxy → AI gateway (streaming completions)
//	                       → MGM backend (module pages)
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Optional modules file (YAML or TOML) for module list and persona
//
// Usage:
//
//	# Production mode
//	AI_API_KEY=... BACKEND_URL=https://mgm.example.com/login.jsp ./server
//
//	# Development mode (colored logs, debug level)
//	./server --dev --log-level debug --modules modules.yaml
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
