// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for log shippers
//   - Development: Colored console output
//
// Components receive a named *zap.Logger from the root Logger and attach
// request-scoped fields (request_id, module, status) themselves.
//
// Example Usage:
//
//	logger := logging.NewOrNop(logging.Config{Level: "info"})
//	logger.Component("proxy").Info("forwarding", zap.String("model", model))
package logging
