package config

import (
	"context"
	"log/slog"

	"github.com/launchdash/launchdash/server/internal/filewatch"
)

// Watch calls onChange with the reloaded Config each time the file at path
// is written or replaced. It runs until ctx is cancelled.
//
// An edit that fails to load or validate is logged and skipped; the watch
// keeps running and the next good save is delivered.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	slog.Info("config: watching for changes", "path", path)
	return filewatch.Watch(ctx, path, func() {
		cfg, err := Load(path)
		if err != nil {
			slog.Error("config: reload failed, keeping previous config",
				"path", path, "err", err)
			return
		}
		slog.Info("config: reloaded", "path", path, "log_level", cfg.Log.Level)
		onChange(cfg)
	})
}
