// Package ws implements the WebSocket session hub for launchdash.
//
// Each connected UI is one session. A session starts on the default
// selection (all sites, observed payload bounds) and receives the matching
// views right away. The client then sends selection events:
//
//	{"site": "KSC LC-39A", "payload_range": [2000, 8000]}
//
// and gets back both charts for the new selection:
//
//	{
//	  "event": "views",
//	  "data":  { "success": { ... }, "scatter": { ... } }
//	}
//
// Omitting payload_range selects the observed bounds again. An event that
// cannot be decoded is answered with {"event": "error", "error": "..."} and
// the session stays open. When the data file is reloaded every session is
// re-sent its views under its last selection.
//
// The hub is mounted at /ws/session by the server.
package ws
