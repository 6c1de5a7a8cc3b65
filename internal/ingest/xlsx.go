package ingest

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/tauron-farm/tauron/internal/model"
)

// Pounds per kilogram; parlor exports report Total Yield in lbs.
const lbsToKg = 0.453592

// Parlor export column headers. Group number stands in for the housing pen
// and batch number for the feeding station assignment.
const (
	colAnimalNumber = "animal number"
	colGroupNumber  = "group number"
	colBatchNumber  = "batch number"
	colTotalYield   = "total yield"
)

// ParseParlorXLSX converts a parlor milking export into observation
// records. The first sheet must carry an Animal Number column; Group
// Number, Batch Number and Total Yield are optional per row. Yield is
// converted from lbs to kg.
func ParseParlorXLSX(path string) ([]Record, []RowError, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "ingest: open parlor xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, nil, eris.New("ingest: parlor xlsx has no sheets")
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, nil, eris.New("ingest: parlor xlsx is empty")
	}

	cols := make(map[string]int)
	for i, cell := range sheet.Rows[0].Cells {
		cols[strings.ToLower(strings.TrimSpace(cell.String()))] = i
	}
	animalCol, ok := cols[colAnimalNumber]
	if !ok {
		return nil, nil, eris.Errorf("ingest: parlor xlsx has no %q column", colAnimalNumber)
	}

	var (
		records   []Record
		rowErrors []RowError
	)

	for i, row := range sheet.Rows[1:] {
		rec, err := parseParlorRow(row, cols, animalCol)
		if err != nil {
			rowErrors = append(rowErrors, RowError{Row: i + 1, Reason: err.Error()})
			continue
		}
		rec.Row = i + 1
		records = append(records, rec)
	}

	return records, rowErrors, nil
}

func parseParlorRow(row *xlsx.Row, cols map[string]int, animalCol int) (Record, error) {
	cell := func(col string) string {
		i, ok := cols[col]
		if !ok || i >= len(row.Cells) {
			return ""
		}
		return strings.TrimSpace(row.Cells[i].String())
	}

	rawID := ""
	if animalCol < len(row.Cells) {
		rawID = strings.TrimSpace(row.Cells[animalCol].String())
	}
	if rawID == "" {
		return Record{}, eris.New("missing animal number")
	}
	cowID, err := strconv.Atoi(rawID)
	if err != nil {
		return Record{}, eris.Errorf("bad animal number %q", rawID)
	}

	rec := Record{
		CowID:  cowID,
		Pen:    cell(colGroupNumber),
		Bunk:   cell(colBatchNumber),
		Source: string(model.SourceXLSX),
	}

	if raw := cell(colTotalYield); raw != "" {
		lbs, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Record{}, eris.Errorf("bad total yield %q", raw)
		}
		kg := lbs * lbsToKg
		rec.YieldKg = &kg
	}

	return rec, nil
}
