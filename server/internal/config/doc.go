// Package config loads the launchdash configuration from a YAML file.
//
// Config fields:
//   - Server.HTTPPort    : REST API, WebSocket sessions and /metrics (default 8050)
//   - Server.GRPCPort    : gRPC health service, 0 disables (default 50051)
//   - Server.UIDir       : optional static front end served at "/"
//   - Server.CORS        : allowed browser origins (default "*")
//   - Server.Auth.Mode   : "apikey" or "none"
//   - Server.Auth.KeyEnv : environment variable holding the expected API key
//   - Server.Auth.Header : HTTP header / gRPC metadata key (default "x-api-key")
//   - Data.Path          : launch records CSV (default spacex_launch_dash.csv)
//   - Data.Watch         : reload the CSV when it changes (default true)
//   - Data.Columns       : CSV header names for site, payload, booster, outcome
//   - Log.Level, Log.Format: slog level and handler (json | text)
//
// Load(path) applies defaults before unmarshalling, then validates with
// go-playground/validator struct tags. Watch(ctx, path, onChange) reloads
// the file through fsnotify.
package config
