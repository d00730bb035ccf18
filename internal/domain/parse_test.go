package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawRow(coords, severity, date string) RawRow {
	return RawRow{
		Line: 2,
		Fields: map[string]string{
			ColumnCoordinates:    coords,
			ColumnSeverity:       severity,
			ColumnReportedDate:   date,
			"Region of Incident": "US-Mexico Border",
		},
	}
}

func TestParseRow_ReversesCoordinates(t *testing.T) {
	inc, err := ParseRow(rawRow("32.4655, -114.7244", "3", "2020-01-05"))
	require.NoError(t, err)

	assert.Equal(t, orb.Point{-114.7244, 32.4655}, inc.Coordinates)
	assert.Equal(t, 32.4655, inc.Lat())
	assert.Equal(t, -114.7244, inc.Lon())
	assert.Equal(t, 3, inc.Severity)
	assert.Equal(t, time.Date(2020, 1, 5, 0, 0, 0, 0, time.UTC), inc.ReportedDate)
}

func TestParseRow_PassesThroughColumns(t *testing.T) {
	inc, err := ParseRow(rawRow("1,2", "0", "2020-01-05"))
	require.NoError(t, err)
	assert.Equal(t, "US-Mexico Border", inc.Fields["Region of Incident"])
	assert.Equal(t, "1,2", inc.Fields[ColumnCoordinates])
}

func TestParseRow_DateLayouts(t *testing.T) {
	want := time.Date(2020, 11, 4, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{
		"2020-11-04",
		"11/04/2020",
		"Wed, 11/04/2020",
		"November 4, 2020",
		"Nov 4, 2020",
		"2020-11-04T00:00:00Z",
		"2020-11-04 00:00:00",
	} {
		t.Run(s, func(t *testing.T) {
			inc, err := ParseRow(rawRow("0,0", "1", s))
			require.NoError(t, err)
			assert.True(t, want.Equal(inc.ReportedDate), "got %s", inc.ReportedDate)
		})
	}
}

func TestParseRow_Severity(t *testing.T) {
	inc, err := ParseRow(rawRow("0,0", " 12.0 ", "2020-01-01"))
	require.NoError(t, err)
	assert.Equal(t, 12, inc.Severity)
}

func TestParseRow_Defects(t *testing.T) {
	cases := []struct {
		name  string
		row   RawRow
		field string
	}{
		{"empty coordinates", rawRow("", "1", "2020-01-01"), ColumnCoordinates},
		{"single coordinate", rawRow("32.1", "1", "2020-01-01"), ColumnCoordinates},
		{"three coordinates", rawRow("1,2,3", "1", "2020-01-01"), ColumnCoordinates},
		{"non-numeric coordinate", rawRow("abc, 2", "1", "2020-01-01"), ColumnCoordinates},
		{"latitude out of range", rawRow("91, 2", "1", "2020-01-01"), ColumnCoordinates},
		{"NaN coordinate", rawRow("NaN, 2", "1", "2020-01-01"), ColumnCoordinates},
		{"empty severity", rawRow("1,2", "", "2020-01-01"), ColumnSeverity},
		{"fractional severity", rawRow("1,2", "1.5", "2020-01-01"), ColumnSeverity},
		{"negative severity", rawRow("1,2", "-3", "2020-01-01"), ColumnSeverity},
		{"text severity", rawRow("1,2", "many", "2020-01-01"), ColumnSeverity},
		{"empty date", rawRow("1,2", "1", ""), ColumnReportedDate},
		{"garbage date", rawRow("1,2", "1", "yesterday"), ColumnReportedDate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseRow(tc.row)
			require.Error(t, err)

			var defect *RowDefect
			require.True(t, errors.As(err, &defect))
			assert.Equal(t, tc.field, defect.Field)
			assert.Equal(t, 2, defect.Line)
			assert.Contains(t, err.Error(), "line 2")
		})
	}
}

func TestParseRow_CoordinatesCheckedFirst(t *testing.T) {
	_, err := ParseRow(rawRow("bad", "bad", "bad"))
	var defect *RowDefect
	require.True(t, errors.As(err, &defect))
	assert.Equal(t, ColumnCoordinates, defect.Field)
}

func TestParseRow_UnwrapsCause(t *testing.T) {
	_, err := ParseRow(rawRow("1,2", "", "2020-01-01"))
	assert.ErrorIs(t, err, errEmptyField)
}
