package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tauron-farm/tauron/internal/model"
)

func TestParseCSV(t *testing.T) {
	input := strings.Join([]string{
		"cow_id,milk_yield_kg,pen_id,health_event,notes",
		"47,20.5,A1,off_feed,looked slow at the bunk",
		"31,24.1,A1,,",
		"12,,B2,lame,",
	}, "\n")

	records, rowErrors, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, rowErrors)
	require.Len(t, records, 3)

	assert.Equal(t, 47, records[0].CowID)
	require.NotNil(t, records[0].YieldKg)
	assert.InDelta(t, 20.5, *records[0].YieldKg, 1e-9)
	assert.Equal(t, "A1", records[0].Pen)
	assert.Equal(t, "off_feed", records[0].HealthEvent)
	assert.Equal(t, "looked slow at the bunk", records[0].Notes)
	assert.Equal(t, string(model.SourceCSV), records[0].Source)

	assert.Empty(t, records[1].HealthEvent)
	assert.Nil(t, records[2].YieldKg)
	assert.Equal(t, "lame", records[2].HealthEvent)
}

func TestParseCSV_MalformedRowsReported(t *testing.T) {
	input := strings.Join([]string{
		"cow_id,milk_yield_kg",
		"47,20.5",
		"not-a-number,20.5",
		"31,twenty",
		",18.0",
		"12,19.5",
	}, "\n")

	records, rowErrors, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Len(t, rowErrors, 3)

	// Surviving records keep their source-file row numbers.
	assert.Equal(t, 1, records[0].Row)
	assert.Equal(t, 5, records[1].Row)

	assert.Equal(t, 2, rowErrors[0].Row)
	assert.Contains(t, rowErrors[0].Reason, "bad cow_id")
	assert.Equal(t, 3, rowErrors[1].Row)
	assert.Contains(t, rowErrors[1].Reason, "bad milk_yield_kg")
	assert.Equal(t, 4, rowErrors[2].Row)
	assert.Contains(t, rowErrors[2].Reason, "missing cow_id")
}

func TestParseCSV_AlternateColumnNames(t *testing.T) {
	input := "cow_id,yield_kg,pen,bunk\n5,18.2,C3,F1\n"

	records, rowErrors, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, rowErrors)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].YieldKg)
	assert.InDelta(t, 18.2, *records[0].YieldKg, 1e-9)
	assert.Equal(t, "C3", records[0].Pen)
	assert.Equal(t, "F1", records[0].Bunk)
}

func TestParseCSV_UnknownColumnsIgnored(t *testing.T) {
	input := "cow_id,ear_temp_c,milk_yield_kg\n7,38.9,21.0\n"

	records, rowErrors, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, rowErrors)
	require.Len(t, records, 1)
	assert.Equal(t, 7, records[0].CowID)
}

func TestParseCSV_MissingCowIDColumn(t *testing.T) {
	_, _, err := ParseCSV(strings.NewReader("animal,yield\n47,20\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no cow_id column")
}

func TestParseCSV_Empty(t *testing.T) {
	_, _, err := ParseCSV(strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}
