// Package export renders station snapshots and historical series as
// downloadable CSV and XLSX files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/couchcryptid/station-monitor/internal/domain"
)

// StationsHeader is the column layout of the station snapshot export.
var StationsHeader = []string{
	"Station Name",
	"Status",
	"ET₀ (mm/day)",
	"Rainfall (mm)",
	"Water Level (m)",
	"Temperature (°C)",
	"Humidity (%)",
	"Wind Speed (m/s)",
	"Last Updated",
}

// HistoryHeader is the column layout of a per-station historical export.
var HistoryHeader = []string{
	"Date",
	"ET₀",
	"Rainfall",
	"Water Level",
	"Temperature",
	"Humidity",
	"Wind Speed",
	"Solar Radiation",
}

// StationsFilename names the snapshot export for the UTC day of now.
func StationsFilename(now time.Time, ext string) string {
	return fmt.Sprintf("stations-export-%s.%s", now.UTC().Format(time.DateOnly), ext)
}

// HistoryFilename names the historical export of a station.
func HistoryFilename(stationID string, days int) string {
	return fmt.Sprintf("station-%s-data-%ddays.csv", stationID, days)
}

// stationRow formats one station in StationsHeader order.
func stationRow(st domain.Station) []string {
	s := st.Sensors
	return []string{
		st.Name,
		string(st.Status),
		fixed(s.ET0, 2),
		fixed(s.Rainfall, 2),
		fixed(s.WaterLevel, 2),
		fixed(s.Temperature, 2),
		fixed(s.Humidity, 2),
		fixed(s.WindSpeed, 2),
		st.LastUpdated.UTC().Format(time.RFC3339),
	}
}

func historyRow(r domain.HistoricalRecord) []string {
	return []string{
		r.Date,
		fixed(r.ET0, 2),
		fixed(r.Rainfall, 2),
		fixed(r.WaterLevel, 2),
		fixed(r.Temperature, 1),
		fixed(r.Humidity, 1),
		fixed(r.WindSpeed, 1),
		fixed(r.SolarRadiation, 0),
	}
}

// WriteStationsCSV writes the header and one row per station.
func WriteStationsCSV(w io.Writer, stations []domain.Station) error {
	rows := make([][]string, 0, len(stations)+1)
	rows = append(rows, StationsHeader)
	for _, st := range stations {
		rows = append(rows, stationRow(st))
	}
	return writeAll(w, rows)
}

// WriteHistoryCSV writes the header and one row per day.
func WriteHistoryCSV(w io.Writer, records []domain.HistoricalRecord) error {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, HistoryHeader)
	for _, r := range records {
		rows = append(rows, historyRow(r))
	}
	return writeAll(w, rows)
}

func writeAll(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func fixed(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
