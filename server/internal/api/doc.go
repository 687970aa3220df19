// Package api implements the launchdash HTTP API.
//
// Handler serves, under /api/v1:
//
//	GET /health                      state ("ready" | "empty"), record and site counts, loaded_at
//	GET /options                     site dropdown entries, slider domain, default selection
//	GET /success?site=               pie series: successes per site, or outcomes for one site
//	GET /scatter?site=&min=&max=     scatter series for the open payload interval (min, max)
//	GET /dashboard?site=&min=&max=   both series from one store snapshot
//
// site defaults to "ALL"; min and max default to the observed payload
// bounds. Unknown sites and unparseable or inverted bounds return 200 with
// empty series. Other methods get 405, unknown paths 404, always as JSON.
//
// NewRouter wraps the Handler with chi's RequestID and Recoverer, an slog
// access log, CORS, the optional API key guard, and mounts /metrics,
// /ws/session and an optional static UI.
package api
