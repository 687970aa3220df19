// Package metrics exposes launchdash's own counters in the Prometheus text
// format. Families are built directly as client_model protos and written
// with expfmt, so the server needs no metrics registry.
package metrics
