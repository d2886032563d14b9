// Package main hosts the recipe service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes liveness, health, metrics, and the /api/recipes endpoints. Request
//     bodies are decoded, defaults (the fallback user id) applied, and then handed to the fetcher, the extraction
//     pipeline, and the store.
//   - Fetch: a single GET per parse through the Colly-based fetcher with a browser-like user agent. Non-2xx pages are
//     still extracted; transport failures surface as recipe.FetchError. fetcher.mode=headless swaps in the Chromedp
//     fetcher for pages that only render client-side.
//   - Extraction: internal/extract runs per-site selector rules, then schema.org JSON-LD, then the first <h1>. It never
//     fails; the worst case is an "Unknown Recipe" record.
//   - Persistence: Postgres via pgxpool when db.dsn is set (schema created on boot when db.auto_migrate is true),
//     otherwise an in-memory store seeded with the default user.
//   - Configuration & plumbing: Viper populates config from env/files; zap provides structured logging; Prometheus
//     metrics are exported via the metrics middleware and /metrics handler.
//
// Quick checklist:
//   - Configure env vars: RECIPEBOX_SERVER_PORT or PORT, RECIPEBOX_DB_DSN, RECIPEBOX_HTTP_TIMEOUT_SECONDS,
//     RECIPEBOX_FETCHER_MODE=http/headless, RECIPEBOX_API_DEFAULT_USER_ID.
//   - Run locally: go run ./cmd/recipebox -config config.yaml (or rely solely on env overrides).
//   - The process reacts to SIGINT/SIGTERM by draining in-flight requests before exiting.
package main
