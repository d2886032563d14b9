// Package api hosts the HTTP server, middleware, and REST handlers. Notable
// routes:
//   - GET / for liveness and GET /api/test-db for a store round trip.
//   - GET /healthz and /readyz for probes; /readyz pings the store.
//   - GET /metrics for Prometheus scraping.
//   - /api/recipes/... to parse pages and manage saved recipes.
package api
