// Command genmock generates deterministic station and history fixtures for the
// dashboard and API test suites. It drives the real monitor state on a fixed
// fake clock so the output matches what the service would serve.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -out data/mock \
//	  -days 30 \
//	  -ticks 12 \
//	  -seed 42
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/couchcryptid/station-monitor/internal/domain"
	"github.com/couchcryptid/station-monitor/internal/export"
	"github.com/couchcryptid/station-monitor/internal/monitor"
	"github.com/couchcryptid/station-monitor/internal/observability"
	"github.com/jonboulle/clockwork"
)

var anchor = time.Date(2024, time.January, 15, 9, 30, 0, 0, time.UTC)

const tickInterval = 5 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "", "output directory for fixtures")
	days := flag.Int("days", 30, "history window per station")
	ticks := flag.Int("ticks", 0, "simulation steps applied before the stations snapshot")
	seed := flag.Uint64("seed", 42, "random seed for the simulation")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *days < 1 || *ticks < 0 {
		return fmt.Errorf("days must be positive and ticks non-negative")
	}

	clock := clockwork.NewFakeClockAt(anchor)
	state := monitor.NewState(monitor.Options{
		Clock:   clock,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics: observability.NewMetricsForTesting(),
		Seed:    *seed,
	})
	for range *ticks {
		clock.Advance(tickInterval)
		state.SimulateTick(context.Background())
	}
	stations := state.Stations()

	if err := writeJSON(filepath.Join(*outDir, "stations.json"), stations); err != nil {
		return fmt.Errorf("writing stations fixture: %w", err)
	}
	if err := writeFile(filepath.Join(*outDir, export.StationsFilename(clock.Now(), "csv")), func(w io.Writer) error {
		return export.WriteStationsCSV(w, stations)
	}); err != nil {
		return fmt.Errorf("writing stations csv: %w", err)
	}
	if err := writeFile(filepath.Join(*outDir, export.StationsFilename(clock.Now(), "xlsx")), func(w io.Writer) error {
		return export.WriteStationsXLSX(w, stations)
	}); err != nil {
		return fmt.Errorf("writing stations xlsx: %w", err)
	}
	if err := writeJSON(filepath.Join(*outDir, "alerts.json"), state.Alerts(domain.AlertFilter{})); err != nil {
		return fmt.Errorf("writing alerts fixture: %w", err)
	}
	log.Printf("wrote %d stations after %d ticks", len(stations), *ticks)

	histories := make(map[string][]domain.HistoricalRecord, len(stations))
	for _, st := range stations {
		records := state.History(st.ID, *days)
		histories[st.ID] = records

		if err := writeFile(filepath.Join(*outDir, export.HistoryFilename(st.ID, *days)), func(w io.Writer) error {
			return export.WriteHistoryCSV(w, records)
		}); err != nil {
			return fmt.Errorf("writing history csv for %s: %w", st.ID, err)
		}
	}
	if err := writeJSON(filepath.Join(*outDir, fmt.Sprintf("history-%ddays.json", *days)), histories); err != nil {
		return fmt.Errorf("writing history fixture: %w", err)
	}
	log.Printf("wrote %d-day history for %d stations", *days, len(histories))

	printStats(state.Summary(), histories)
	return nil
}

func writeFile(path string, render func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return render(f)
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

// historyStats holds the aggregates printed for one station.
type historyStats struct {
	stationID     string
	totalRainfall float64
	meanET0       float64
	minWaterLevel float64
	maxWaterLevel float64
	rainyDays     int
}

func collectStats(stationID string, records []domain.HistoricalRecord) historyStats {
	s := historyStats{stationID: stationID}
	if len(records) == 0 {
		return s
	}
	s.minWaterLevel = records[0].WaterLevel
	s.maxWaterLevel = records[0].WaterLevel
	for _, r := range records {
		s.totalRainfall += r.Rainfall
		s.meanET0 += r.ET0
		s.minWaterLevel = min(s.minWaterLevel, r.WaterLevel)
		s.maxWaterLevel = max(s.maxWaterLevel, r.WaterLevel)
		if r.Rainfall > 0 {
			s.rainyDays++
		}
	}
	s.meanET0 /= float64(len(records))
	return s
}

func printStats(summary domain.Summary, histories map[string][]domain.HistoricalRecord) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Stations: %d (online=%d)\n", summary.TotalStations, summary.OnlineCount)
	fmt.Printf("Averages: et0=%.4f rainfall=%.4f waterLevel=%.4f\n",
		summary.AverageET0, summary.AverageRainfall, summary.AverageWaterLevel)
	fmt.Printf("Pending alerts: %d\n", summary.PendingAlerts)

	ids := make([]string, 0, len(histories))
	for id := range histories {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Println("\nHistory per station:")
	for _, id := range ids {
		s := collectStats(id, histories[id])
		fmt.Printf("  %s: rain=%.2fmm over %d days, et0 mean=%.2f, water %.2f..%.2fm\n",
			s.stationID, s.totalRainfall, s.rainyDays, s.meanET0, s.minWaterLevel, s.maxWaterLevel)
	}
}
