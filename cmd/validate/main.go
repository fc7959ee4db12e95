// Command validate performs integrity checks on the fixtures written by
// genmock: the stations snapshot in JSON, CSV and XLSX form, the per-station
// history series, and the seeded alert log. It verifies row counts, column
// layout, formatting, value ranges, and that every history series can be
// regenerated from its (station, days) seed.
//
// Usage:
//
//	go run ./cmd/validate -dir data/mock -days 30
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/couchcryptid/station-monitor/internal/domain"
	"github.com/couchcryptid/station-monitor/internal/export"
	"github.com/xuri/excelize/v2"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// fixtures is everything genmock wrote for one run.
type fixtures struct {
	stations    []domain.Station
	alerts      []domain.Alert
	histories   map[string][]domain.HistoricalRecord
	stationsCSV [][]string
	stationsXLS [][]string
	historyCSV  map[string][][]string
}

func main() {
	dir := flag.String("dir", "", "directory containing genmock fixtures")
	days := flag.Int("days", 30, "history window the fixtures were generated with")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dir, *days); code != 0 {
		os.Exit(code)
	}
}

func run(dir string, days int) int {
	fmt.Println("=== Station Fixture Integrity Validation ===")
	fmt.Println()

	fx, err := load(dir, days)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateStationsExport(fx),
		validateHistoryExport(fx, days),
		validateHistoryRanges(fx),
		validateHistoryRegeneration(fx, days),
		validateAlerts(fx),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d stations, %d alerts, %d history series of %d days\n",
		len(fx.stations), len(fx.alerts), len(fx.histories), days)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func load(dir string, days int) (*fixtures, error) {
	fx := &fixtures{historyCSV: map[string][][]string{}}

	var err error
	if fx.stations, err = loadJSON[[]domain.Station](filepath.Join(dir, "stations.json")); err != nil {
		return nil, fmt.Errorf("load stations: %w", err)
	}
	if fx.alerts, err = loadJSON[[]domain.Alert](filepath.Join(dir, "alerts.json")); err != nil {
		return nil, fmt.Errorf("load alerts: %w", err)
	}
	historyPath := filepath.Join(dir, fmt.Sprintf("history-%ddays.json", days))
	if fx.histories, err = loadJSON[map[string][]domain.HistoricalRecord](historyPath); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	csvPath, err := single(filepath.Join(dir, "stations-export-*.csv"))
	if err != nil {
		return nil, err
	}
	if fx.stationsCSV, err = loadCSV(csvPath); err != nil {
		return nil, fmt.Errorf("load stations csv: %w", err)
	}
	xlsxPath, err := single(filepath.Join(dir, "stations-export-*.xlsx"))
	if err != nil {
		return nil, err
	}
	if fx.stationsXLS, err = loadXLSX(xlsxPath); err != nil {
		return nil, fmt.Errorf("load stations xlsx: %w", err)
	}

	for _, st := range fx.stations {
		rows, err := loadCSV(filepath.Join(dir, export.HistoryFilename(st.ID, days)))
		if err != nil {
			return nil, fmt.Errorf("load history csv for %s: %w", st.ID, err)
		}
		fx.historyCSV[st.ID] = rows
	}
	return fx, nil
}

func single(pattern string) (string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", err
	}
	if len(matches) != 1 {
		return "", fmt.Errorf("expected exactly one file matching %s, found %d", filepath.Base(pattern), len(matches))
	}
	return matches[0], nil
}

func loadCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no data rows in %s", path)
	}
	return rows, nil
}

func loadXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.GetRows(export.StationsSheet, excelize.Options{RawCellValue: true})
}

func loadJSON[T any](path string) (T, error) {
	var v T
	data, err := os.ReadFile(path)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, err
	}
	return v, nil
}

// ── Phase 1: Stations export ──
// Checks the CSV and XLSX snapshots against the JSON registry.

func validateStationsExport(fx *fixtures) *phase {
	p := &phase{name: "Phase 1: Stations Export (CSV/XLSX)"}

	if !slices.Equal(fx.stationsCSV[0], export.StationsHeader) {
		p.errorf("csv header = %q, want %q", fx.stationsCSV[0], export.StationsHeader)
	}
	if got, want := len(fx.stationsCSV)-1, len(fx.stations); got != want {
		p.errorf("csv has %d station rows, json has %d", got, want)
		return p
	}

	for i, st := range fx.stations {
		row := fx.stationsCSV[i+1]
		if len(row) != len(export.StationsHeader) {
			p.errorf("csv line %d: %d fields, want %d", i+2, len(row), len(export.StationsHeader))
			continue
		}
		want := []string{
			st.Name,
			string(st.Status),
			fixed(st.Sensors.ET0, 2),
			fixed(st.Sensors.Rainfall, 2),
			fixed(st.Sensors.WaterLevel, 2),
			fixed(st.Sensors.Temperature, 2),
			fixed(st.Sensors.Humidity, 2),
			fixed(st.Sensors.WindSpeed, 2),
			st.LastUpdated.UTC().Format(time.RFC3339),
		}
		for j := range want {
			if row[j] != want[j] {
				p.errorf("csv line %d %s: got %q, want %q", i+2, export.StationsHeader[j], row[j], want[j])
			}
		}
	}

	if len(fx.stationsXLS) != len(fx.stationsCSV) {
		p.errorf("xlsx has %d rows, csv has %d", len(fx.stationsXLS), len(fx.stationsCSV))
		return p
	}
	for i := range fx.stationsXLS {
		checkXLSXRow(p, i+1, fx.stationsXLS[i], fx.stationsCSV[i])
	}
	return p
}

// checkXLSXRow compares a sheet row with its CSV twin. Numeric cells only
// need to agree once rounded to the CSV precision.
func checkXLSXRow(p *phase, line int, xrow, crow []string) {
	for j, want := range crow {
		if j >= len(xrow) {
			p.errorf("xlsx row %d: missing column %d", line, j+1)
			return
		}
		got := xrow[j]
		if got == want {
			continue
		}
		if v, err := strconv.ParseFloat(got, 64); err == nil && fixed(v, 2) == want {
			continue
		}
		p.errorf("xlsx row %d column %d: got %q, want %q", line, j+1, got, want)
	}
}

// ── Phase 2: History export ──

func validateHistoryExport(fx *fixtures, days int) *phase {
	p := &phase{name: "Phase 2: History Export (CSV vs JSON)"}

	for _, st := range fx.stations {
		records, ok := fx.histories[st.ID]
		if !ok {
			p.errorf("%s: no history series in json", st.ID)
			continue
		}
		if len(records) != days {
			p.errorf("%s: %d records, want %d", st.ID, len(records), days)
		}
		rows := fx.historyCSV[st.ID]
		if !slices.Equal(rows[0], export.HistoryHeader) {
			p.errorf("%s: csv header = %q", st.ID, rows[0])
		}
		if len(rows)-1 != len(records) {
			p.errorf("%s: csv has %d rows, json has %d", st.ID, len(rows)-1, len(records))
			continue
		}
		for i, r := range records {
			want := []string{
				r.Date,
				fixed(r.ET0, 2),
				fixed(r.Rainfall, 2),
				fixed(r.WaterLevel, 2),
				fixed(r.Temperature, 1),
				fixed(r.Humidity, 1),
				fixed(r.WindSpeed, 1),
				fixed(r.SolarRadiation, 0),
			}
			if !slices.Equal(rows[i+1], want) {
				p.errorf("%s line %d: got %q, want %q", st.ID, i+2, rows[i+1], want)
			}
		}
		checkDates(p, st.ID, records)
	}
	return p
}

// checkDates verifies the series is consecutive days, oldest first.
func checkDates(p *phase, stationID string, records []domain.HistoricalRecord) {
	var prev time.Time
	for i, r := range records {
		d, err := time.Parse(time.DateOnly, r.Date)
		if err != nil {
			p.errorf("%s record %d: bad date %q", stationID, i, r.Date)
			return
		}
		if i > 0 && !d.Equal(prev.AddDate(0, 0, 1)) {
			p.errorf("%s record %d: date %s does not follow %s", stationID, i, r.Date, prev.Format(time.DateOnly))
		}
		prev = d
	}
}

// ── Phase 3: Value ranges ──
// Each field varies around a fixed base by a bounded relative amount.

type bound struct {
	name   string
	value  func(domain.HistoricalRecord) float64
	lo, hi float64
}

var bounds = []bound{
	{name: "et0", value: func(r domain.HistoricalRecord) float64 { return r.ET0 }, lo: 3.2, hi: 4.8},
	{name: "rainfall", value: func(r domain.HistoricalRecord) float64 { return r.Rainfall }, lo: 0, hi: 10},
	{name: "waterLevel", value: func(r domain.HistoricalRecord) float64 { return r.WaterLevel }, lo: 137.2, hi: 142.8},
	{name: "temperature", value: func(r domain.HistoricalRecord) float64 { return r.Temperature }, lo: 27.9, hi: 34.1},
	{name: "humidity", value: func(r domain.HistoricalRecord) float64 { return r.Humidity }, lo: 65.8, hi: 74.2},
	{name: "windSpeed", value: func(r domain.HistoricalRecord) float64 { return r.WindSpeed }, lo: 1.6, hi: 2.4},
	{name: "solarRadiation", value: func(r domain.HistoricalRecord) float64 { return r.SolarRadiation }, lo: 736, hi: 864},
}

func validateHistoryRanges(fx *fixtures) *phase {
	p := &phase{name: "Phase 3: History Value Ranges"}

	for id, records := range fx.histories {
		for i, r := range records {
			for _, b := range bounds {
				if v := b.value(r); v < b.lo || v > b.hi {
					p.errorf("%s record %d: %s=%g outside [%g, %g]", id, i, b.name, v, b.lo, b.hi)
				}
			}
		}
	}
	return p
}

// ── Phase 4: Regeneration ──
// A series depends only on (station, days) and the anchor day.

func validateHistoryRegeneration(fx *fixtures, days int) *phase {
	p := &phase{name: "Phase 4: History Regeneration"}

	for id, records := range fx.histories {
		if len(records) == 0 {
			continue
		}
		anchor, err := time.Parse(time.DateOnly, records[len(records)-1].Date)
		if err != nil {
			p.errorf("%s: bad anchor date %q", id, records[len(records)-1].Date)
			continue
		}
		regenerated := domain.GenerateHistory(id, days, anchor)
		if !slices.Equal(regenerated, records) {
			p.errorf("%s: regenerated series differs from fixture", id)
		}
	}
	return p
}

// ── Phase 5: Alerts ──

func validateAlerts(fx *fixtures) *phase {
	p := &phase{name: "Phase 5: Alert Log"}

	seen := make(map[string]bool, len(fx.alerts))
	for i, a := range fx.alerts {
		if seen[a.ID] {
			p.errorf("alert %d: duplicate id %s", i, a.ID)
		}
		seen[a.ID] = true

		if _, err := domain.ParseAlertType(string(a.Type)); err != nil {
			p.errorf("alert %s: %v", a.ID, err)
		}
		if _, err := domain.ParseAlertStatus(string(a.Status)); err != nil {
			p.errorf("alert %s: %v", a.ID, err)
		}
		st, ok := domain.FindStation(fx.stations, a.StationID)
		if !ok {
			p.errorf("alert %s: unknown station %s", a.ID, a.StationID)
		} else if st.Name != a.StationName {
			p.errorf("alert %s: station name %q, registry has %q", a.ID, a.StationName, st.Name)
		}
		if i > 0 && a.Timestamp.After(fx.alerts[i-1].Timestamp) {
			p.errorf("alert %s: not in newest-first order", a.ID)
		}
	}
	return p
}

func fixed(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
