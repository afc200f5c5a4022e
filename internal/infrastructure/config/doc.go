// Package config provides 12-factor configuration management for the
// AquaChat backend.
//
// Configuration is loaded from environment variables with sensible defaults
// and injected into components at construction; nothing reads the
// environment mid-request.
//
// Configuration Sections:
//   - Server: HTTP listen settings (port, host)
//   - AI: Upstream completions endpoint, model and API key
//   - Backend: MGM base URL, basic-auth credentials, module enumeration, caps
//   - Logging: Log level and output format
//   - RateLimit: Per-IP inbound rate limiting
//
// A modules file (MODULES_FILE, YAML or TOML) may replace BACKEND_MODULES
// and override the assistant persona:
//
//	persona: |
//	  You are an expert chatbot specializing exclusively in aquaculture.
//	modules:
//	  - name: Customer
//	  - name: Inventory
//	    xpath: //table[@id='stock']
//
// Environment Variables:
//   - PORT, HOST
//   - AI_API_KEY, AI_GATEWAY_URL, AI_MODEL
//   - BACKEND_URL, BACKEND_USERNAME, BACKEND_PASSWORD, BACKEND_MODULES,
//     BACKEND_TIMEOUT, BACKEND_MODULE_MAX_BYTES, BACKEND_CONTEXT_MAX_BYTES,
//     BACKEND_RPS, MODULES_FILE
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
