package store

import (
	"context"
	"log/slog"

	"github.com/launchdash/launchdash/server/internal/filewatch"
)

// Watch reloads the CSV at path into live each time the file is written or
// replaced. It runs until ctx is cancelled.
//
// A reload that fails keeps the previous Store live. observe, if non-nil,
// is called after every reload attempt with its error (nil on success).
func Watch(ctx context.Context, path string, cols Columns, live *Live, observe func(error)) error {
	slog.Info("store: watching data file", "path", path)
	return filewatch.Watch(ctx, path, func() {
		err := reload(path, cols, live)
		if observe != nil {
			observe(err)
		}
	})
}

func reload(path string, cols Columns, live *Live) error {
	st, err := LoadFile(path, cols)
	if err != nil {
		slog.Error("store: reload failed, keeping previous data",
			"path", path, "err", err)
		return err
	}
	live.Replace(st)
	slog.Info("store: reloaded", "path", path, "records", st.Len(), "sites", len(st.Sites()))
	return nil
}
