package metrics

import (
	"log/slog"
	"net/http"
	"sort"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Metric names.
const (
	QueriesTotal = "launchdash_queries_total"
	ReloadsTotal = "launchdash_store_reloads_total"
	StoreRecords = "launchdash_store_records"
	WSSessions   = "launchdash_ws_sessions"
)

type gaugeFunc struct {
	help string
	fn   func() float64
}

// Recorder accumulates counters and samples gauges at scrape time.
// It is safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	queries map[string]float64 // by view
	reloads map[string]float64 // by result
	gauges  map[string]gaugeFunc
}

// New creates an empty Recorder.
func New() *Recorder {
	return &Recorder{
		queries: make(map[string]float64),
		reloads: make(map[string]float64),
		gauges:  make(map[string]gaugeFunc),
	}
}

// IncQuery counts one computed view ("success", "scatter", "options", ...).
func (r *Recorder) IncQuery(view string) {
	r.mu.Lock()
	r.queries[view]++
	r.mu.Unlock()
}

// ObserveReload counts a data reload attempt by its outcome.
func (r *Recorder) ObserveReload(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.mu.Lock()
	r.reloads[result]++
	r.mu.Unlock()
}

// GaugeFunc registers a gauge whose value is read from fn on every scrape.
// Registering the same name again replaces the previous function.
func (r *Recorder) GaugeFunc(name, help string, fn func() float64) {
	r.mu.Lock()
	r.gauges[name] = gaugeFunc{help: help, fn: fn}
	r.mu.Unlock()
}

// Gather returns all non-empty metric families sorted by name.
func (r *Recorder) Gather() []*dto.MetricFamily {
	r.mu.Lock()
	out := []*dto.MetricFamily{
		counterFamily(QueriesTotal, "Dashboard views computed, by view.", "view", r.queries),
		counterFamily(ReloadsTotal, "Launch data reload attempts, by result.", "result", r.reloads),
	}
	gauges := make(map[string]gaugeFunc, len(r.gauges))
	for name, g := range r.gauges {
		gauges[name] = g
	}
	r.mu.Unlock()

	// Gauge callbacks may take their own locks, so run them unlocked.
	for name, g := range gauges {
		out = append(out, &dto.MetricFamily{
			Name:   ptr(name),
			Help:   ptr(g.help),
			Type:   dto.MetricType_GAUGE.Enum(),
			Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: ptr(g.fn())}}},
		})
	}

	families := out[:0]
	for _, mf := range out {
		if len(mf.GetMetric()) > 0 {
			families = append(families, mf)
		}
	}
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })
	return families
}

// ServeHTTP writes the current metrics in the format negotiated from the
// request's Accept header.
func (r *Recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	format := expfmt.Negotiate(req.Header)
	w.Header().Set("Content-Type", string(format))

	enc := expfmt.NewEncoder(w, format)
	for _, mf := range r.Gather() {
		if err := enc.Encode(mf); err != nil {
			slog.Error("metrics: encode failed", "family", mf.GetName(), "err", err)
			return
		}
	}
}

// counterFamily builds one labelled counter family, labels sorted for stable
// output.
func counterFamily(name, help, label string, values map[string]float64) *dto.MetricFamily {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mf := &dto.MetricFamily{
		Name: ptr(name),
		Help: ptr(help),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for _, k := range keys {
		mf.Metric = append(mf.Metric, &dto.Metric{
			Label:   []*dto.LabelPair{{Name: ptr(label), Value: ptr(k)}},
			Counter: &dto.Counter{Value: ptr(values[k])},
		})
	}
	return mf
}

func ptr[T any](v T) *T { return &v }
