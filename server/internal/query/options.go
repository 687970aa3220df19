package query

import (
	"math"
	"strconv"
	"strings"

	"github.com/launchdash/launchdash/server/internal/store"
)

// Slider domain used by the payload range control. The upper bound grows in
// whole steps when the data holds heavier payloads.
const (
	SliderMin  = 0
	SliderMax  = 10000
	SliderStep = 1000
)

// SiteOption is one entry of the site dropdown.
type SiteOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// SliderOptions bounds the payload range control.
type SliderOptions struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// Options describes the dashboard controls for a store.
type Options struct {
	Sites   []SiteOption  `json:"sites"`
	Slider  SliderOptions `json:"slider"`
	Default Selection     `json:"default"`
}

// ComputeOptions returns the dropdown entries (AllSites first, then each site
// in first-seen order), the slider domain and the initial selection, which
// spans the observed payload bounds.
func ComputeOptions(st *store.Store) Options {
	sites := st.Sites()
	opts := Options{
		Sites:   make([]SiteOption, 0, len(sites)+1),
		Slider:  SliderOptions{Min: SliderMin, Max: SliderMax, Step: SliderStep},
		Default: DefaultSelection(st),
	}
	opts.Sites = append(opts.Sites, SiteOption{Label: "All Sites", Value: AllSites})
	for _, s := range sites {
		opts.Sites = append(opts.Sites, SiteOption{Label: s, Value: s})
	}

	if _, hi := st.PayloadBounds(); hi > SliderMax {
		opts.Slider.Max = math.Ceil(hi/SliderStep) * SliderStep
	}
	return opts
}

// DefaultRange spans the observed payload bounds of st. Because ranges are
// open, the lightest and heaviest payloads themselves fall outside it.
func DefaultRange(st *store.Store) Range {
	lo, hi := st.PayloadBounds()
	return Range{Min: lo, Max: hi}
}

// DefaultSelection is AllSites over DefaultRange.
func DefaultSelection(st *store.Store) Selection {
	return Selection{Site: AllSites, Range: DefaultRange(st)}
}

// ParseRange parses textual bounds such as URL query values. An empty bound
// falls back to the matching bound of def. ok is false when either bound is
// not a number; callers should then serve an empty scatter view.
func ParseRange(min, max string, def Range) (rng Range, ok bool) {
	rng = def
	if s := strings.TrimSpace(min); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) {
			return Range{}, false
		}
		rng.Min = v
	}
	if s := strings.TrimSpace(max); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) {
			return Range{}, false
		}
		rng.Max = v
	}
	return rng, true
}

// NormalizeSite maps an empty selection to AllSites.
func NormalizeSite(site string) string {
	if strings.TrimSpace(site) == "" {
		return AllSites
	}
	return site
}
