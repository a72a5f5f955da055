// Package api hosts the operator HTTP interface. Routes:
//   - GET /healthz and /readyz for health checks.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/status for the active and last crawl run.
//   - POST /v1/runs to start a crawl run in the background.
package api
