package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Columns names the CSV header cells that hold each record field.
type Columns struct {
	Site    string
	Payload string
	Booster string
	Outcome string
}

// DefaultColumns matches the header of spacex_launch_dash.csv.
var DefaultColumns = Columns{
	Site:    "Launch Site",
	Payload: "Payload Mass (kg)",
	Booster: "Booster Version Category",
	Outcome: "class",
}

// ErrNoHeader is returned when the source has no header row.
var ErrNoHeader = errors.New("store: csv has no header row")

// LoadFile opens path and loads it with Load.
func LoadFile(path string, cols Columns) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", path, err)
	}
	defer f.Close()

	st, err := Load(f, cols)
	if err != nil {
		return nil, fmt.Errorf("%w (file %q)", err, path)
	}
	return st, nil
}

// Load reads a CSV table with a header row and builds a Store from it.
// Columns are located by header name; any other columns are ignored.
// A missing column or an unparseable cell fails the whole load.
func Load(r io.Reader, cols Columns) (*Store, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("store: read header: %w", err)
	}

	idx, err := indexColumns(header, cols)
	if err != nil {
		return nil, err
	}

	var records []Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("store: read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)

		rec, err := parseRow(row, idx)
		if err != nil {
			return nil, fmt.Errorf("store: line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return New(records)
}

// columnIndex holds the position of each required column in a row.
type columnIndex struct {
	site, payload, booster, outcome int
	width                           int
}

func indexColumns(header []string, cols Columns) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}

	idx := columnIndex{}
	var missing []string
	lookup := func(name string) int {
		i, ok := pos[name]
		if !ok {
			missing = append(missing, strconv.Quote(name))
			return -1
		}
		if i+1 > idx.width {
			idx.width = i + 1
		}
		return i
	}
	idx.site = lookup(cols.Site)
	idx.payload = lookup(cols.Payload)
	idx.booster = lookup(cols.Booster)
	idx.outcome = lookup(cols.Outcome)

	if len(missing) > 0 {
		return idx, fmt.Errorf("store: csv header missing column(s) %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func parseRow(row []string, idx columnIndex) (Record, error) {
	if len(row) < idx.width {
		return Record{}, fmt.Errorf("row has %d fields, want at least %d", len(row), idx.width)
	}

	payload, err := strconv.ParseFloat(strings.TrimSpace(row[idx.payload]), 64)
	if err != nil {
		return Record{}, fmt.Errorf("payload mass %q: %w", row[idx.payload], err)
	}

	// pandas writes integer columns as "1" but some exports carry "1.0".
	outcome, err := strconv.ParseFloat(strings.TrimSpace(row[idx.outcome]), 64)
	if err != nil {
		return Record{}, fmt.Errorf("outcome class %q: %w", row[idx.outcome], err)
	}
	if outcome != 0 && outcome != 1 {
		return Record{}, fmt.Errorf("outcome class %q must be 0 or 1", row[idx.outcome])
	}

	rec := Record{
		LaunchSite:             strings.TrimSpace(row[idx.site]),
		PayloadMassKg:          payload,
		BoosterVersionCategory: strings.TrimSpace(row[idx.booster]),
		OutcomeClass:           int(outcome),
	}
	if err := validate(rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}
