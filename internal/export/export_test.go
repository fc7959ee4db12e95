package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/station-monitor/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var testNow = time.Date(2024, time.January, 15, 9, 30, 0, 0, time.UTC)

func readCSV(t *testing.T, data []byte) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteStationsCSV_SeedStations(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStationsCSV(&buf, domain.SeedStations(testNow)))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 6, "header plus one line per station")
	for _, line := range lines {
		assert.Len(t, strings.Split(line, ","), 9, line)
	}

	records := readCSV(t, buf.Bytes())
	assert.Equal(t, StationsHeader, records[0])
	assert.Equal(t, []string{
		"Mukdahan City", "online", "4.20", "0.00", "138.50", "32.40", "65.00", "2.10", "2024-01-15T09:30:00Z",
	}, records[1])
	assert.Equal(t, []string{
		"Khamcha-i", "offline", "0.00", "0.00", "0.00", "0.00", "0.00", "0.00", "2024-01-14T09:30:00Z",
	}, records[4])
}

func TestWriteStationsCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStationsCSV(&buf, nil))
	assert.Equal(t, [][]string{StationsHeader}, readCSV(t, buf.Bytes()))
}

func TestWriteStationsCSV_QuotesCommas(t *testing.T) {
	var buf bytes.Buffer
	st := domain.Station{Name: "Dong Luang, North", Status: domain.StatusOnline, LastUpdated: testNow}
	require.NoError(t, WriteStationsCSV(&buf, []domain.Station{st}))

	records := readCSV(t, buf.Bytes())
	require.Len(t, records, 2)
	assert.Equal(t, "Dong Luang, North", records[1][0])
	assert.Len(t, records[1], 9)
}

func TestWriteHistoryCSV(t *testing.T) {
	records := []domain.HistoricalRecord{{
		Date: "2024-01-15", ET0: 4.236, Rainfall: 7.891, WaterLevel: 140.123,
		Temperature: 31.26, Humidity: 70.04, WindSpeed: 2.14, SolarRadiation: 812.6,
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteHistoryCSV(&buf, records))

	rows := readCSV(t, buf.Bytes())
	require.Len(t, rows, 2)
	assert.Equal(t, HistoryHeader, rows[0])
	assert.Equal(t, []string{"2024-01-15", "4.24", "7.89", "140.12", "31.3", "70.0", "2.1", "813"}, rows[1])
}

func TestWriteHistoryCSV_GeneratedSeries(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHistoryCSV(&buf, domain.GenerateHistory("station-2", 30, testNow)))

	rows := readCSV(t, buf.Bytes())
	require.Len(t, rows, 31)
	for _, row := range rows {
		assert.Len(t, row, 8)
	}
	assert.Equal(t, "2024-01-15", rows[30][0])
}

func TestFilenames(t *testing.T) {
	bangkok := time.FixedZone("ICT", 7*60*60)
	assert.Equal(t, "stations-export-2024-01-15.csv", StationsFilename(testNow, "csv"))
	assert.Equal(t, "stations-export-2024-01-15.xlsx", StationsFilename(time.Date(2024, time.January, 16, 2, 0, 0, 0, bangkok), "xlsx"))
	assert.Equal(t, "station-station-3-data-7days.csv", HistoryFilename("station-3", 7))
}

func TestWriteStationsXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStationsXLSX(&buf, domain.SeedStations(testNow)))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{StationsSheet}, f.GetSheetList())

	rows, err := f.GetRows(StationsSheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, StationsHeader, rows[0])
	assert.Equal(t, "Mukdahan City", rows[1][0])
	assert.Equal(t, "online", rows[1][1])
	assert.Equal(t, "4.2", rows[1][2])
	assert.Equal(t, "2024-01-15T09:30:00Z", rows[1][8])
}
