/*
Package monitoring provides Prometheus metrics for the chat proxy.

# Metrics

  - aquachat_http_requests_total, aquachat_http_request_duration_seconds
  - aquachat_backend_module_fetches_total{module,outcome}
  - aquachat_backend_module_duration_seconds{module}
  - aquachat_context_bytes
  - aquachat_upstream_responses_total{status}
  - aquachat_active_streams, aquachat_relayed_bytes_total

Every Metrics value owns a private registry; the server exposes it on
GET /metrics through Handler.

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
