package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/launchdash/launchdash/server/internal/metrics"
	"github.com/launchdash/launchdash/server/internal/query"
	"github.com/launchdash/launchdash/server/internal/store"
)

// Handler serves the /api/v1/* endpoints. Every request reads the store
// that is live at that moment, so a reload never tears a response.
type Handler struct {
	live    *store.Live
	metrics *metrics.Recorder
	router  chi.Router
	now     func() time.Time
}

// New creates a Handler over live. rec may be nil.
func New(live *store.Live, rec *metrics.Recorder) *Handler {
	if rec == nil {
		rec = metrics.New()
	}
	h := &Handler{live: live, metrics: rec, router: chi.NewRouter(), now: time.Now}
	h.Routes(h.router)
	return h
}

// Routes mounts the API under /api/v1 on r.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			jsonErr(w, http.StatusNotFound, "not found")
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
			jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		})

		r.Get("/health", h.health)
		r.Get("/options", h.options)
		r.Get("/success", h.success)
		r.Get("/scatter", h.scatter)
		r.Get("/dashboard", h.dashboard)
	})
}

// ServeHTTP serves the API on its own router; used by tests and by callers
// that do not need the full server stack.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health: what data is being served.
func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	st := h.live.Current()
	resp := HealthResponse{
		State:    "ready",
		Records:  st.Len(),
		Sites:    len(st.Sites()),
		LoadedAt: h.live.LoadedAt().UTC().Format(time.RFC3339),
	}
	if st.Len() == 0 {
		resp.State = "empty"
	}
	jsonResp(w, http.StatusOK, resp)
}

// options returns GET /api/v1/options: dropdown and slider settings.
func (h *Handler) options(w http.ResponseWriter, _ *http.Request) {
	h.metrics.IncQuery("options")
	jsonResp(w, http.StatusOK, query.ComputeOptions(h.live.Current()))
}

// success returns GET /api/v1/success?site=: the pie chart series.
func (h *Handler) success(w http.ResponseWriter, r *http.Request) {
	st := h.live.Current()
	jsonResp(w, http.StatusOK, h.successView(st, query.NormalizeSite(r.URL.Query().Get("site"))))
}

// scatter returns GET /api/v1/scatter?site=&min=&max=: the scatter series.
func (h *Handler) scatter(w http.ResponseWriter, r *http.Request) {
	st := h.live.Current()
	jsonResp(w, http.StatusOK, h.scatterView(st, r))
}

// dashboard returns GET /api/v1/dashboard?site=&min=&max=: both series
// computed against the same store.
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	st := h.live.Current()
	jsonResp(w, http.StatusOK, DashboardResponse{
		Success:     h.successView(st, query.NormalizeSite(r.URL.Query().Get("site"))),
		Scatter:     h.scatterView(st, r),
		GeneratedAt: h.now().UTC().Format(time.RFC3339),
	})
}

// --- helpers ----------------------------------------------------------------

func (h *Handler) successView(st *store.Store, site string) SuccessResponse {
	h.metrics.IncQuery("success")
	v := query.ComputeSuccessView(st, site)
	return SuccessResponse{SuccessView: v, Slices: v.Slices()}
}

// scatterView reads site, min and max from the query string. Missing bounds
// default to the observed payload bounds; unparseable bounds give an empty
// view rather than an error.
func (h *Handler) scatterView(st *store.Store, r *http.Request) ScatterResponse {
	h.metrics.IncQuery("scatter")
	q := r.URL.Query()
	site := query.NormalizeSite(q.Get("site"))

	rng, ok := query.ParseRange(q.Get("min"), q.Get("max"), query.DefaultRange(st))
	if !ok {
		return ScatterResponse{
			ScatterView: query.ScatterView{Site: site, Points: []query.Point{}},
			Valid:       false,
		}
	}
	return ScatterResponse{ScatterView: query.ComputeScatterView(st, site, rng), Valid: true}
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
