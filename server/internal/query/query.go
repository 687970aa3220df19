package query

import (
	"fmt"
	"math"
	"strconv"

	"github.com/launchdash/launchdash/server/internal/store"
)

// AllSites is the site selection that applies no site filter.
const AllSites = "ALL"

// Range is a payload mass interval in kilograms. Contains treats both bounds
// as exclusive.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether Min < kg < Max.
func (r Range) Contains(kg float64) bool {
	return r.Min < kg && kg < r.Max
}

// Empty reports whether no payload can satisfy the range.
func (r Range) Empty() bool {
	return math.IsNaN(r.Min) || math.IsNaN(r.Max) || r.Min >= r.Max
}

// Selection is the state of the dashboard controls for one query.
type Selection struct {
	Site  string `json:"site"`
	Range Range  `json:"payload_range"`
}

// SiteSuccess is one pie slice in the all-sites view.
type SiteSuccess struct {
	Site      string `json:"site"`
	Successes int    `json:"successes"`
}

// OutcomeCount is one pie slice in the single-site view.
type OutcomeCount struct {
	Outcome int `json:"outcome"`
	Count   int `json:"count"`
}

// SuccessView is the pie chart series for one site selection. Exactly one of
// BySite and ByOutcome is used, depending on Site.
type SuccessView struct {
	Site      string         `json:"site"`
	Title     string         `json:"title"`
	BySite    []SiteSuccess  `json:"by_site,omitempty"`
	ByOutcome []OutcomeCount `json:"by_outcome,omitempty"`
}

// Slice is a labelled pie value, ready for a chart's labels/values arrays.
type Slice struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// Slices flattens the view into labels and values.
func (v SuccessView) Slices() []Slice {
	if v.Site == AllSites {
		out := make([]Slice, 0, len(v.BySite))
		for _, s := range v.BySite {
			out = append(out, Slice{Label: s.Site, Value: s.Successes})
		}
		return out
	}
	out := make([]Slice, 0, len(v.ByOutcome))
	for _, o := range v.ByOutcome {
		out = append(out, Slice{Label: strconv.Itoa(o.Outcome), Value: o.Count})
	}
	return out
}

// Point is one scatter chart marker.
type Point struct {
	PayloadMassKg          float64 `json:"payload_mass_kg"`
	OutcomeClass           int     `json:"class"`
	BoosterVersionCategory string  `json:"booster_version_category"`
	LaunchSite             string  `json:"launch_site"`
}

// ScatterView is the scatter chart series for one selection.
type ScatterView struct {
	Site   string  `json:"site"`
	Range  Range   `json:"payload_range"`
	Points []Point `json:"points"`
}

// Views holds both charts for a selection.
type Views struct {
	Success SuccessView `json:"success"`
	Scatter ScatterView `json:"scatter"`
}

// ComputeSuccessView returns the pie series for site.
//
// For AllSites it sums the outcome class per launch site, which counts the
// successful launches of each site. For a single site it counts that site's
// launches per outcome class. Groups appear in the order their first record
// appears in the store; outcomes with no launches are omitted.
func ComputeSuccessView(st *store.Store, site string) SuccessView {
	if site == AllSites {
		v := SuccessView{Site: site, Title: "Total Success Launches By Site", BySite: []SiteSuccess{}}
		pos := make(map[string]int)
		st.Each(func(r store.Record) bool {
			i, ok := pos[r.LaunchSite]
			if !ok {
				i = len(v.BySite)
				pos[r.LaunchSite] = i
				v.BySite = append(v.BySite, SiteSuccess{Site: r.LaunchSite})
			}
			v.BySite[i].Successes += r.OutcomeClass
			return true
		})
		return v
	}

	v := SuccessView{
		Site:      site,
		Title:     fmt.Sprintf("Launches Outcome for Site %s", site),
		ByOutcome: []OutcomeCount{},
	}
	if !st.HasSite(site) {
		return v
	}
	pos := make(map[int]int, 2)
	st.Each(func(r store.Record) bool {
		if r.LaunchSite != site {
			return true
		}
		i, ok := pos[r.OutcomeClass]
		if !ok {
			i = len(v.ByOutcome)
			pos[r.OutcomeClass] = i
			v.ByOutcome = append(v.ByOutcome, OutcomeCount{Outcome: r.OutcomeClass})
		}
		v.ByOutcome[i].Count++
		return true
	})
	return v
}

// ComputeScatterView returns the records whose payload mass lies strictly
// between rng.Min and rng.Max, limited to site unless site is AllSites.
// Store order is preserved.
func ComputeScatterView(st *store.Store, site string, rng Range) ScatterView {
	v := ScatterView{Site: site, Range: rng, Points: []Point{}}
	if rng.Empty() || (site != AllSites && !st.HasSite(site)) {
		return v
	}
	st.Each(func(r store.Record) bool {
		if !rng.Contains(r.PayloadMassKg) {
			return true
		}
		if site != AllSites && r.LaunchSite != site {
			return true
		}
		v.Points = append(v.Points, Point{
			PayloadMassKg:          r.PayloadMassKg,
			OutcomeClass:           r.OutcomeClass,
			BoosterVersionCategory: r.BoosterVersionCategory,
			LaunchSite:             r.LaunchSite,
		})
		return true
	})
	return v
}

// Dashboard computes both views for sel.
func Dashboard(st *store.Store, sel Selection) Views {
	return Views{
		Success: ComputeSuccessView(st, sel.Site),
		Scatter: ComputeScatterView(st, sel.Site, sel.Range),
	}
}
