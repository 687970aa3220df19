package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"github.com/launchdash/launchdash/server/internal/metrics"
	"github.com/launchdash/launchdash/server/internal/query"
	"github.com/launchdash/launchdash/server/internal/store"
	wsHub "github.com/launchdash/launchdash/server/internal/ws"
)

// --- helpers ----------------------------------------------------------------

func newLive(t *testing.T, recs ...store.Record) *store.Live {
	t.Helper()
	st, err := store.New(recs)
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return store.NewLive(st)
}

func rec(site string, kg float64, class int) store.Record {
	return store.Record{LaunchSite: site, PayloadMassKg: kg, OutcomeClass: class, BoosterVersionCategory: "FT"}
}

func scenario(t *testing.T) *store.Live {
	return newLive(t, rec("A", 500, 1), rec("A", 1500, 0), rec("B", 800, 1))
}

// startHub starts a test HTTP server with the hub as its handler.
// The hub's Run loop is started with a cancellable context.
// Returns the ws:// URL, the hub, and a cancel function.
func startHub(t *testing.T, live *store.Live, rec *metrics.Recorder) (wsURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	hub = wsHub.New(live, rec)
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	wsURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	return wsURL, hub, cancelFn
}

// dial connects a WebSocket client to wsURL and returns the connection.
func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage reads and decodes one message from conn with a short deadline.
func readMessage(t *testing.T, conn *websocket.Conn) wsHub.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m wsHub.Message
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	return m
}

func send(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
}

func payloads(v *query.Views) []float64 {
	out := []float64{}
	for _, p := range v.Scatter.Points {
		out = append(out, p.PayloadMassKg)
	}
	return out
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesDefaultViews(t *testing.T) {
	wsURL, _, _ := startHub(t, scenario(t), nil)

	m := readMessage(t, dial(t, wsURL))
	if m.Event != wsHub.EventViews {
		t.Fatalf("event: got %q, want views", m.Event)
	}
	if m.Data == nil {
		t.Fatal("data: missing")
	}
	want := []query.SiteSuccess{{Site: "A", Successes: 1}, {Site: "B", Successes: 1}}
	if diff := cmp.Diff(want, m.Data.Success.BySite); diff != "" {
		t.Errorf("by_site mismatch (-want +got):\n%s", diff)
	}
	// Default range is the open interval over the observed bounds.
	if diff := cmp.Diff([]float64{800}, payloads(m.Data)); diff != "" {
		t.Errorf("scatter mismatch (-want +got):\n%s", diff)
	}
}

func TestHub_SelectionEvent_ReturnsViews(t *testing.T) {
	wsURL, _, _ := startHub(t, scenario(t), nil)
	conn := dial(t, wsURL)
	readMessage(t, conn) // consume initial views

	send(t, conn, wsHub.Request{Site: "A", PayloadRange: []float64{0, 10000}})
	m := readMessage(t, conn)

	if m.Event != wsHub.EventViews {
		t.Fatalf("event: got %q, want views", m.Event)
	}
	wantOutcomes := []query.OutcomeCount{{Outcome: 1, Count: 1}, {Outcome: 0, Count: 1}}
	if diff := cmp.Diff(wantOutcomes, m.Data.Success.ByOutcome); diff != "" {
		t.Errorf("by_outcome mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{500, 1500}, payloads(m.Data)); diff != "" {
		t.Errorf("scatter mismatch (-want +got):\n%s", diff)
	}
}

func TestHub_DegenerateSelections(t *testing.T) {
	wsURL, _, _ := startHub(t, scenario(t), nil)
	conn := dial(t, wsURL)
	readMessage(t, conn)

	cases := map[string]string{
		"unknown site":   `{"site":"Nowhere","payload_range":[0,10000]}`,
		"inverted range": `{"site":"ALL","payload_range":[1000,0]}`,
		"short range":    `{"site":"ALL","payload_range":[1000]}`,
		"text bounds":    `{"site":"ALL","payload_range":["light","heavy"]}`,
		"range not list": `{"site":"ALL","payload_range":"heavy"}`,
	}
	for name, raw := range cases {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
			t.Fatalf("%s: write: %v", name, err)
		}
		m := readMessage(t, conn)
		if m.Event != wsHub.EventViews {
			t.Errorf("%s: event: got %q, want views", name, m.Event)
			continue
		}
		if n := len(m.Data.Scatter.Points); n != 0 {
			t.Errorf("%s: points: got %d, want 0", name, n)
		}
	}
}

func TestHub_MalformedEvent_KeepsSessionOpen(t *testing.T) {
	wsURL, _, _ := startHub(t, scenario(t), nil)
	conn := dial(t, wsURL)
	readMessage(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"site":`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	m := readMessage(t, conn)
	if m.Event != wsHub.EventError || m.Error == "" {
		t.Errorf("got %+v, want error event", m)
	}

	send(t, conn, wsHub.Request{Site: "B"})
	m = readMessage(t, conn)
	if m.Event != wsHub.EventViews || m.Data.Success.Site != "B" {
		t.Errorf("after error: got %+v, want views for B", m)
	}
}

func TestHub_Reload_RepushesLastSelection(t *testing.T) {
	live := scenario(t)
	wsURL, _, _ := startHub(t, live, nil)
	conn := dial(t, wsURL)
	readMessage(t, conn)

	send(t, conn, wsHub.Request{Site: "A", PayloadRange: []float64{0, 10000}})
	readMessage(t, conn)

	st, err := store.New([]store.Record{rec("A", 3000, 1), rec("C", 4000, 1)})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	live.Replace(st)

	m := readMessage(t, conn)
	if m.Data == nil || m.Data.Success.Site != "A" {
		t.Fatalf("reload push: got %+v, want views for A", m)
	}
	if diff := cmp.Diff([]float64{3000}, payloads(m.Data)); diff != "" {
		t.Errorf("scatter after reload mismatch (-want +got):\n%s", diff)
	}
}

func TestHub_ReloadPushArrivesAfterSelectionReply(t *testing.T) {
	live := scenario(t)
	wsURL, _, _ := startHub(t, live, nil)
	conn := dial(t, wsURL)
	readMessage(t, conn)

	for n := 1; n <= 20; n++ {
		send(t, conn, wsHub.Request{Site: "A", PayloadRange: []float64{0, 100000}})

		recs := make([]store.Record, n)
		for i := range recs {
			recs[i] = rec("A", float64(1000+i), 1)
		}
		st, err := store.New(recs)
		if err != nil {
			t.Fatalf("store.New: %v", err)
		}
		live.Replace(st)

		// One reply to the selection and one reload push, in either order of
		// computation; the last one delivered must reflect the new data.
		readMessage(t, conn)
		last := readMessage(t, conn)
		if got := len(last.Data.Scatter.Points); got != n {
			t.Fatalf("round %d: last message has %d points, want %d", n, got, n)
		}
	}
}

func TestHub_CountsQueries(t *testing.T) {
	rec := metrics.New()
	wsURL, _, _ := startHub(t, scenario(t), rec)
	readMessage(t, dial(t, wsURL))

	var scatter float64
	for _, mf := range rec.Gather() {
		if mf.GetName() != metrics.QueriesTotal {
			continue
		}
		for _, m := range mf.GetMetric() {
			if m.GetLabel()[0].GetValue() == "scatter" {
				scatter = m.GetCounter().GetValue()
			}
		}
	}
	if scatter != 1 {
		t.Errorf("scatter queries: got %v, want 1", scatter)
	}
}

func TestHub_CountClients_MultipleClients(t *testing.T) {
	wsURL, hub, _ := startHub(t, scenario(t), nil)

	for i := 0; i < 3; i++ {
		readMessage(t, dial(t, wsURL)) // consume initial message
	}

	if n := hub.Count(); n != 3 {
		t.Errorf("Count: got %d, want 3", n)
	}
}

func TestHub_CountClients_DecreasesOnDisconnect(t *testing.T) {
	wsURL, hub, _ := startHub(t, scenario(t), nil)

	conn := dial(t, wsURL)
	readMessage(t, conn)
	if n := hub.Count(); n != 1 {
		t.Errorf("Count before disconnect: got %d, want 1", n)
	}

	conn.Close()
	waitForCount(t, hub, 0)
}

func TestHub_CancelContextClosesConnections(t *testing.T) {
	wsURL, hub, cancel := startHub(t, scenario(t), nil)

	conn := dial(t, wsURL)
	readMessage(t, conn)

	cancel() // signal shutdown
	waitForCount(t, hub, 0)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("ReadMessage after cancel: got nil error, want close")
	}
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	hub := wsHub.New(scenario(t), nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	// Plain HTTP GET without WebSocket upgrade headers -> 400
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}

func waitForCount(t *testing.T, hub *wsHub.Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Count: got %d, want %d", hub.Count(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
