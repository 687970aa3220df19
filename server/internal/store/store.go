package store

import (
	"fmt"
	"math"
)

// Record is one launch attempt.
type Record struct {
	LaunchSite             string  `json:"launch_site"`
	PayloadMassKg          float64 `json:"payload_mass_kg"`
	BoosterVersionCategory string  `json:"booster_version_category"`
	// OutcomeClass is 1 for a successful launch and 0 for a failure.
	OutcomeClass int `json:"class"`
}

// Store is an immutable, in-memory table of launch records.
// It is safe for concurrent use because nothing writes to it after New.
type Store struct {
	records []Record
	sites   []string
	minKg   float64
	maxKg   float64
}

// New validates records and returns a Store holding a private copy of them.
// An empty slice yields a valid, empty Store.
func New(records []Record) (*Store, error) {
	s := &Store{records: make([]Record, len(records))}
	seen := make(map[string]struct{})

	for i, r := range records {
		if err := validate(r); err != nil {
			return nil, fmt.Errorf("store: record %d: %w", i, err)
		}
		s.records[i] = r

		if _, ok := seen[r.LaunchSite]; !ok {
			seen[r.LaunchSite] = struct{}{}
			s.sites = append(s.sites, r.LaunchSite)
		}
		if i == 0 || r.PayloadMassKg < s.minKg {
			s.minKg = r.PayloadMassKg
		}
		if i == 0 || r.PayloadMassKg > s.maxKg {
			s.maxKg = r.PayloadMassKg
		}
	}
	return s, nil
}

func validate(r Record) error {
	if r.LaunchSite == "" {
		return fmt.Errorf("launch site is empty")
	}
	if r.BoosterVersionCategory == "" {
		return fmt.Errorf("booster version category is empty")
	}
	if math.IsNaN(r.PayloadMassKg) || math.IsInf(r.PayloadMassKg, 0) || r.PayloadMassKg < 0 {
		return fmt.Errorf("payload mass %v must be a finite value >= 0", r.PayloadMassKg)
	}
	if r.OutcomeClass != 0 && r.OutcomeClass != 1 {
		return fmt.Errorf("outcome class %d must be 0 or 1", r.OutcomeClass)
	}
	return nil
}

// Len returns the number of records.
func (s *Store) Len() int { return len(s.records) }

// Records returns a copy of all records in load order.
func (s *Store) Records() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Each calls fn for every record in load order until fn returns false.
func (s *Store) Each(fn func(Record) bool) {
	for _, r := range s.records {
		if !fn(r) {
			return
		}
	}
}

// Sites returns the distinct launch sites in first-seen order.
func (s *Store) Sites() []string {
	out := make([]string, len(s.sites))
	copy(out, s.sites)
	return out
}

// HasSite reports whether any record was launched from site.
func (s *Store) HasSite(site string) bool {
	for _, v := range s.sites {
		if v == site {
			return true
		}
	}
	return false
}

// PayloadBounds returns the smallest and largest observed payload mass.
// Both are zero for an empty Store.
func (s *Store) PayloadBounds() (min, max float64) {
	return s.minKg, s.maxKg
}
