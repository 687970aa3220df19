package api

import "github.com/launchdash/launchdash/server/internal/query"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	// State is "ready" when records are loaded and "empty" otherwise.
	State    string `json:"state"`
	Records  int    `json:"records"`
	Sites    int    `json:"sites"`
	LoadedAt string `json:"loaded_at"` // RFC3339
}

// SuccessResponse is the payload for GET /api/v1/success.
type SuccessResponse struct {
	query.SuccessView
	Slices []query.Slice `json:"slices"`
}

// ScatterResponse is the payload for GET /api/v1/scatter. Valid is false
// when the payload bounds could not be parsed; Points is then empty.
type ScatterResponse struct {
	query.ScatterView
	Valid bool `json:"valid"`
}

// DashboardResponse is the payload for GET /api/v1/dashboard.
type DashboardResponse struct {
	Success     SuccessResponse `json:"success"`
	Scatter     ScatterResponse `json:"scatter"`
	GeneratedAt string          `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
