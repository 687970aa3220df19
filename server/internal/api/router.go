package api

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/launchdash/launchdash/server/internal/auth"
)

// RouterConfig wires the pieces served on the HTTP port.
type RouterConfig struct {
	API *Handler

	// Session is the WebSocket session endpoint, mounted at /ws/session.
	Session http.Handler

	// Metrics is served unauthenticated at /metrics.
	Metrics http.Handler

	// Guard protects the API and the session endpoint. nil disables auth.
	Guard *auth.Guard

	AllowedOrigins []string

	// UIDir, if set, is served at "/" with index.html as the fallback for
	// unknown paths so client-side routing works.
	UIDir string
}

// NewRouter assembles the full HTTP stack: request IDs, access log, panic
// recovery and CORS around the API, session and metrics endpoints.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(AccessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		if cfg.Guard != nil {
			r.Use(cfg.Guard.Middleware)
		}
		if cfg.API != nil {
			cfg.API.Routes(r)
		}
		if cfg.Session != nil {
			r.Handle("/ws/session", cfg.Session)
		}
	})

	if cfg.UIDir != "" {
		fs := http.FileServer(http.Dir(cfg.UIDir))
		r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			// SPA fallback: if the requested file doesn't exist, serve index.html.
			path := filepath.Join(cfg.UIDir, filepath.Clean("/"+req.URL.Path))
			if _, err := os.Stat(path); os.IsNotExist(err) {
				http.ServeFile(w, req, filepath.Join(cfg.UIDir, "index.html"))
				return
			}
			fs.ServeHTTP(w, req)
		}))
	}
	return r
}

// AccessLog logs method, path, status, duration and bytes for every request
// once it completes. Requests slower than a second are logged at warn,
// except WebSocket upgrades, which live as long as the session.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		level := slog.LevelDebug
		if elapsed >= time.Second && r.Header.Get("Upgrade") == "" {
			level = slog.LevelWarn
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		slog.Log(r.Context(), level, "http: request done",
			"req_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"elapsed", elapsed,
			"bytes", ww.BytesWritten(),
		)
	})
}
