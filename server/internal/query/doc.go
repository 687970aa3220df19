// Package query derives the dashboard views from a launch record store.
//
// SuccessView feeds the pie chart: successful launches per site when the
// selection is AllSites, or the outcome split for one site otherwise.
// ScatterView feeds the payload/outcome scatter chart: records whose payload
// mass lies strictly inside the selected range, optionally limited to one
// site.
//
// Every function here is pure. The store is only read, results are freshly
// allocated, and the same inputs always give the same output, so queries are
// safe to run concurrently from any number of sessions.
//
// Selections that cannot match anything (an unknown site, an inverted or
// non-numeric payload range) produce empty views rather than errors.
package query
