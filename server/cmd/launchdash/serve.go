package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/launchdash/launchdash/server/internal/api"
	"github.com/launchdash/launchdash/server/internal/auth"
	"github.com/launchdash/launchdash/server/internal/config"
	"github.com/launchdash/launchdash/server/internal/metrics"
	"github.com/launchdash/launchdash/server/internal/probe"
	"github.com/launchdash/launchdash/server/internal/store"
	"github.com/launchdash/launchdash/server/internal/ws"
)

var serveFlags struct {
	data  string
	uiDir string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard HTTP, WebSocket and gRPC health listeners",
	RunE:  runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.data, "data", "", "launch records CSV (overrides data.path)")
	f.StringVar(&serveFlags.uiDir, "ui-dir", "", "serve a built front end from this directory (overrides server.ui_dir)")
}

// loadConfig reads --config, or returns the defaults when it is unset.
func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Defaults(), nil
	}
	return config.Load(configPath)
}

// newLogger builds the process logger. level is kept by the caller so config
// reloads can change verbosity without rebuilding the handler.
func newLogger(w io.Writer, format string, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.data != "" {
		cfg.Data.Path = serveFlags.data
	}
	if serveFlags.uiDir != "" {
		cfg.Server.UIDir = serveFlags.uiDir
	}

	level := new(slog.LevelVar)
	level.Set(cfg.Log.SlogLevel())
	slog.SetDefault(newLogger(os.Stdout, cfg.Log.Format, level))

	slog.Info("launchdash starting", "version", version, "config", configPath)

	guard := auth.New(cfg.Server.Auth.Mode, cfg.Server.Auth.EffectiveHeader(), cfg.Server.Auth.Key())
	if cfg.Server.Auth.Mode == "apikey" && !guard.Enabled() {
		slog.Warn("auth: apikey mode but no key set, requests are not checked",
			"key_env", cfg.Server.Auth.KeyEnv)
	}
	slog.Info("config loaded",
		"http_port", cfg.Server.HTTPPort,
		"grpc_port", cfg.Server.GRPCPort,
		"auth_enabled", guard.Enabled(),
		"data", cfg.Data.Path,
	)

	cols := store.Columns(cfg.Data.Columns)
	st, err := store.LoadFile(cfg.Data.Path, cols)
	if err != nil {
		return fmt.Errorf("load launch records: %w", err)
	}
	slog.Info("launch records loaded", "records", st.Len(), "sites", len(st.Sites()))
	live := store.NewLive(st)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rec := metrics.New()
	rec.GaugeFunc(metrics.StoreRecords, "Launch records currently served.", func() float64 {
		return float64(live.Current().Len())
	})

	if cfg.Data.Watch {
		go func() {
			if err := store.Watch(ctx, cfg.Data.Path, cols, live, rec.ObserveReload); err != nil {
				slog.Error("store: watch stopped", "err", err)
			}
		}()
	}
	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, func(next *config.Config) {
				level.Set(next.Log.SlogLevel())
				slog.Info("log level applied", "level", next.Log.Level)
			})
			if err != nil {
				slog.Error("config: watch stopped", "err", err)
			}
		}()
	}


	// WebSocket sessions; views are re-pushed on every data reload.
	hub := ws.New(live, rec)
	go hub.Run(ctx)
	rec.GaugeFunc(metrics.WSSessions, "Open WebSocket sessions.", func() float64 {
		return float64(hub.Count())
	})

	var grpcSrv *grpc.Server
	if cfg.Server.GRPCPort > 0 {
		grpcSrv = grpc.NewServer(
			grpc.UnaryInterceptor(guard.UnaryInterceptor()),
			grpc.StreamInterceptor(guard.StreamInterceptor()),
		)
		pr := probe.New(live)
		pr.Register(grpcSrv)
		go pr.Run(ctx)

		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
		if err != nil {
			return fmt.Errorf("listen on gRPC port %d: %w", cfg.Server.GRPCPort, err)
		}
		go func() {
			slog.Info("gRPC health listening", "port", cfg.Server.GRPCPort)
			if err := grpcSrv.Serve(lis); err != nil {
				slog.Error("gRPC server stopped", "err", err)
			}
		}()
	}

	httpSrv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: api.NewRouter(api.RouterConfig{
			API:            api.New(live, rec),
			Session:        hub,
			Metrics:        rec,
			Guard:          guard,
			AllowedOrigins: cfg.Server.CORS.AllowedOrigins,
			UIDir:          cfg.Server.UIDir,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		cancel()
		return fmt.Errorf("HTTP server: %w", err)
	}

	slog.Info("launchdash shutting down")
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	return httpSrv.Shutdown(shutdownCtx)
}
