package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	p := writeConfig(t, "{}\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
	if cfg.Server.GRPCPort != DefaultGRPCPort {
		t.Errorf("grpc_port: got %d, want %d", cfg.Server.GRPCPort, DefaultGRPCPort)
	}
	if cfg.Data.Path != DefaultDataPath {
		t.Errorf("data.path: got %q, want %q", cfg.Data.Path, DefaultDataPath)
	}
	if !cfg.Data.Watch {
		t.Error("data.watch: got false, want true")
	}
	if cfg.Data.Columns.Payload != "Payload Mass (kg)" {
		t.Errorf("data.columns.payload: got %q", cfg.Data.Columns.Payload)
	}
	if cfg.Log.SlogLevel() != slog.LevelInfo {
		t.Errorf("log level: got %v, want info", cfg.Log.SlogLevel())
	}
}

func TestLoad_Full(t *testing.T) {
	p := writeConfig(t, `server:
  http_port: 9090
  grpc_port: 0
  ui_dir: ui/dist
  cors:
    allowed_origins: ["https://dash.example.com"]
  auth:
    mode: apikey
    key_env: DASH_KEY
    header: x-dash-key
data:
  path: /data/launches.csv
  watch: false
  columns:
    site: site
    payload: kg
    booster: booster
    outcome: ok
log:
  level: debug
  format: text
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.HTTPPort != 9090 {
		t.Errorf("http_port: got %d, want 9090", cfg.Server.HTTPPort)
	}
	if cfg.Server.GRPCPort != 0 {
		t.Errorf("grpc_port: got %d, want 0", cfg.Server.GRPCPort)
	}
	if cfg.Server.Auth.EffectiveHeader() != "x-dash-key" {
		t.Errorf("header: got %q, want x-dash-key", cfg.Server.Auth.EffectiveHeader())
	}
	if len(cfg.Server.CORS.AllowedOrigins) != 1 || cfg.Server.CORS.AllowedOrigins[0] != "https://dash.example.com" {
		t.Errorf("cors: got %v", cfg.Server.CORS.AllowedOrigins)
	}
	if cfg.Data.Watch {
		t.Error("data.watch: got true, want false")
	}
	if cfg.Data.Columns.Outcome != "ok" {
		t.Errorf("data.columns.outcome: got %q, want ok", cfg.Data.Columns.Outcome)
	}
	if cfg.Log.SlogLevel() != slog.LevelDebug || cfg.Log.Format != "text" {
		t.Errorf("log: got %+v", cfg.Log)
	}
}

func TestLoad_DefaultHeader(t *testing.T) {
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: K
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h := cfg.Server.Auth.EffectiveHeader(); h != "x-api-key" {
		t.Errorf("EffectiveHeader: got %q, want x-api-key", h)
	}
}

func TestLoad_KeyEnvResolution(t *testing.T) {
	t.Setenv("TEST_DASH_KEY", "supersecret")
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: TEST_DASH_KEY
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if k := cfg.Server.Auth.Key(); k != "supersecret" {
		t.Errorf("Key(): got %q, want supersecret", k)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := map[string]struct {
		yaml  string
		field string
	}{
		"unknown auth mode":   {"server:\n  auth:\n    mode: oauth2\n", "server.auth.mode"},
		"apikey without env":  {"server:\n  auth:\n    mode: apikey\n", "server.auth.key_env"},
		"http port too large": {"server:\n  http_port: 70000\n", "server.http_port"},
		"negative grpc port":  {"server:\n  grpc_port: -1\n", "server.grpc_port"},
		"empty data path":     {"data:\n  path: \"\"\n", "data.path"},
		"empty column":        {"data:\n  columns:\n    site: \"\"\n", "data.columns.site"},
		"unknown log level":   {"log:\n  level: verbose\n", "log.level"},
		"unknown log format":  {"log:\n  format: xml\n", "log.format"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("error %q does not name %s", err, tc.field)
			}
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "server: [\n")); err == nil {
		t.Fatal("expected error for malformed yaml, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestWatch_CallsOnChange(t *testing.T) {
	p := writeConfig(t, "log:\n  level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *Config, 8)
	go Watch(ctx, p, func(c *Config) { changed <- c }) //nolint:errcheck

	// The watcher registers asynchronously; keep writing until it reports.
	deadline := time.After(5 * time.Second)
	for {
		if err := os.WriteFile(p, []byte("log:\n  level: debug\n"), 0o600); err != nil {
			t.Fatalf("rewrite config: %v", err)
		}
		select {
		case c := <-changed:
			// os.WriteFile truncates first, so an intermediate reload may
			// see an empty file and report the defaults.
			if c.Log.Level == "debug" {
				return
			}
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatal("onChange not called before deadline")
		}
	}
}

func TestWatch_BadSaveThenAtomicReplace(t *testing.T) {
	p := writeConfig(t, "log:\n  level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan *Config, 64)
	go Watch(ctx, p, func(c *Config) { changed <- c }) //nolint:errcheck

	// Wait until the watch is live.
	deadline := time.After(5 * time.Second)
	for live := false; !live; {
		if err := os.WriteFile(p, []byte("log:\n  level: debug\n"), 0o600); err != nil {
			t.Fatalf("rewrite config: %v", err)
		}
		select {
		case c := <-changed:
			live = c.Log.Level == "debug"
		case <-time.After(50 * time.Millisecond):
		case <-deadline:
			t.Fatal("onChange not called before deadline")
		}
	}

	// A save that fails validation is skipped without ending the watch.
	if err := os.WriteFile(p, []byte("log:\n  level: loud\n"), 0o600); err != nil {
		t.Fatalf("write bad config: %v", err)
	}

	tmp := filepath.Join(filepath.Dir(p), "config.yaml.tmp")
	if err := os.WriteFile(tmp, []byte("log:\n  level: warn\n"), 0o600); err != nil {
		t.Fatalf("write replacement: %v", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		t.Fatalf("rename: %v", err)
	}

	for {
		select {
		case c := <-changed:
			if c.Log.Level == "warn" {
				return
			}
		case <-deadline:
			t.Fatal("atomic replace not reported before deadline")
		}
	}
}
