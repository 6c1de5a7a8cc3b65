package ingest

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/tauron-farm/tauron/internal/model"
)

// ParseCSV reads wide-format CSV: a header row naming a cow_id column plus
// any of milk_yield_kg/yield_kg, pen_id/pen, bunk_id/bunk, health_event and
// notes, then one row per observation. Unknown columns are ignored so farm
// exports with extra sensor columns still load. Malformed rows are reported
// per-row, not fatal; row numbers count data rows from 1.
func ParseCSV(r io.Reader) ([]Record, []RowError, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, eris.New("ingest: csv is empty")
	}
	if err != nil {
		return nil, nil, eris.Wrap(err, "ingest: read csv header")
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	cowCol, ok := cols["cow_id"]
	if !ok {
		return nil, nil, eris.New("ingest: csv has no cow_id column")
	}

	var (
		records   []Record
		rowErrors []RowError
	)

	for row := 1; ; row++ {
		fields, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrors = append(rowErrors, RowError{Row: row, Reason: err.Error()})
			continue
		}

		rec, err := parseCSVRow(fields, cols, cowCol)
		if err != nil {
			rowErrors = append(rowErrors, RowError{Row: row, Reason: err.Error()})
			continue
		}
		rec.Row = row
		records = append(records, rec)
	}

	return records, rowErrors, nil
}

func parseCSVRow(fields []string, cols map[string]int, cowCol int) (Record, error) {
	field := func(names ...string) string {
		for _, name := range names {
			if i, ok := cols[name]; ok && i < len(fields) {
				if v := strings.TrimSpace(fields[i]); v != "" {
					return v
				}
			}
		}
		return ""
	}

	if cowCol >= len(fields) || strings.TrimSpace(fields[cowCol]) == "" {
		return Record{}, eris.New("missing cow_id")
	}
	cowID, err := strconv.Atoi(strings.TrimSpace(fields[cowCol]))
	if err != nil {
		return Record{}, eris.Errorf("bad cow_id %q", fields[cowCol])
	}

	rec := Record{
		CowID:       cowID,
		Pen:         field("pen_id", "pen"),
		Bunk:        field("bunk_id", "bunk"),
		HealthEvent: field("health_event"),
		Notes:       field("notes"),
		Source:      string(model.SourceCSV),
	}

	if raw := field("milk_yield_kg", "yield_kg"); raw != "" {
		yield, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Record{}, eris.Errorf("bad milk_yield_kg %q", raw)
		}
		rec.YieldKg = &yield
	}

	return rec, nil
}
