package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/couchcryptid/station-monitor/internal/domain"
	"github.com/couchcryptid/station-monitor/internal/export"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	maxBodyBytes = 1 << 16
)

type api struct {
	monitor     Monitor
	logger      *slog.Logger
	defaultDays int
	maxDays     int
}

func (a *api) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/stations", a.listStations)
	mux.HandleFunc("GET /api/stations/export.csv", a.exportStationsCSV)
	mux.HandleFunc("GET /api/stations/export.xlsx", a.exportStationsXLSX)
	mux.HandleFunc("GET /api/stations/{id}", a.getStation)
	mux.HandleFunc("GET /api/stations/{id}/history", a.getHistory)
	mux.HandleFunc("GET /api/stations/{id}/history.csv", a.exportHistoryCSV)
	mux.HandleFunc("GET /api/stations/{id}/sensors/{sensor}/logs", a.getSensorLogs)
	mux.HandleFunc("GET /api/stations/{id}/sensors/{sensor}/info", a.getSensorInfo)
	mux.HandleFunc("GET /api/stations/{id}/maintenance", a.getMaintenance)

	mux.HandleFunc("GET /api/alerts", a.listAlerts)
	mux.HandleFunc("POST /api/alerts", a.createAlert)
	mux.HandleFunc("POST /api/alerts/{id}/resolve", a.resolveAlert)

	mux.HandleFunc("GET /api/summary", a.getSummary)
}

func (a *api) listStations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("status")
	if q == "" {
		sharedobs.WriteJSON(w, http.StatusOK, a.monitor.Stations())
		return
	}
	status, err := domain.ParseStationStatus(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, a.monitor.StationsByStatus(status))
}

func (a *api) getStation(w http.ResponseWriter, r *http.Request) {
	st, ok := a.station(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, st)
}

func (a *api) getHistory(w http.ResponseWriter, r *http.Request) {
	st, ok := a.station(w, r)
	if !ok {
		return
	}
	days, err := a.parseDays(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, a.monitor.History(st.ID, days))
}

func (a *api) exportHistoryCSV(w http.ResponseWriter, r *http.Request) {
	st, ok := a.station(w, r)
	if !ok {
		return
	}
	days, err := a.parseDays(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	records := a.monitor.History(st.ID, days)
	a.download(w, contentTypeCSV, export.HistoryFilename(st.ID, days), func(buf *bytes.Buffer) error {
		return export.WriteHistoryCSV(buf, records)
	})
}

func (a *api) exportStationsCSV(w http.ResponseWriter, _ *http.Request) {
	stations := a.monitor.Stations()
	a.download(w, contentTypeCSV, export.StationsFilename(a.monitor.Now(), "csv"), func(buf *bytes.Buffer) error {
		return export.WriteStationsCSV(buf, stations)
	})
}

func (a *api) exportStationsXLSX(w http.ResponseWriter, _ *http.Request) {
	stations := a.monitor.Stations()
	a.download(w, contentTypeXLSX, export.StationsFilename(a.monitor.Now(), "xlsx"), func(buf *bytes.Buffer) error {
		return export.WriteStationsXLSX(buf, stations)
	})
}

func (a *api) getSensorLogs(w http.ResponseWriter, r *http.Request) {
	st, sensor, ok := a.stationSensor(w, r)
	if !ok {
		return
	}
	count := domain.DefaultLogCount
	if q := r.URL.Query().Get("count"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("count must be between 1 and 500, got %q", q))
			return
		}
		count = n
	}
	sharedobs.WriteJSON(w, http.StatusOK, domain.GenerateSensorLogs(st.ID, sensor, a.monitor.Now(), count))
}

func (a *api) getSensorInfo(w http.ResponseWriter, r *http.Request) {
	st, sensor, ok := a.stationSensor(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, domain.DescribeSensor(st, sensor))
}

func (a *api) getMaintenance(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.station(w, r); !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, domain.MaintenanceHistory())
}

type alertsResponse struct {
	Alerts       []domain.Alert `json:"alerts"`
	PendingCount int            `json:"pendingCount"`
}

func (a *api) listAlerts(w http.ResponseWriter, r *http.Request) {
	var f domain.AlertFilter
	if q := r.URL.Query().Get("status"); q != "" {
		status, err := domain.ParseAlertStatus(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		f.Status = status
	}
	f.StationID = r.URL.Query().Get("stationId")

	sharedobs.WriteJSON(w, http.StatusOK, alertsResponse{
		Alerts:       a.monitor.Alerts(f),
		PendingCount: a.monitor.PendingCount(),
	})
}

type createAlertRequest struct {
	StationID string `json:"stationId"`
	Type      string `json:"type"`
	Message   string `json:"message"`
}

func (a *api) createAlert(w http.ResponseWriter, r *http.Request) {
	var req createAlertRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode alert: %w", err))
		return
	}
	typ, err := domain.ParseAlertType(req.Type)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	alert, err := a.monitor.RaiseAlert(r.Context(), req.StationID, typ, req.Message)
	switch {
	case errors.Is(err, domain.ErrUnknownStation):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		a.logger.Error("raise alert failed", "station_id", req.StationID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
	default:
		sharedobs.WriteJSON(w, http.StatusCreated, alert)
	}
}

func (a *api) resolveAlert(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	alert, ok := a.monitor.ResolveAlert(r.Context(), id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("no pending alert %q", id))
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, alert)
}

func (a *api) getSummary(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, a.monitor.Summary())
}

// station resolves the {id} path segment, writing a 404 on a miss.
func (a *api) station(w http.ResponseWriter, r *http.Request) (domain.Station, bool) {
	id := r.PathValue("id")
	st, ok := a.monitor.Station(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("%w: %s", domain.ErrUnknownStation, id))
	}
	return st, ok
}

func (a *api) stationSensor(w http.ResponseWriter, r *http.Request) (domain.Station, domain.Sensor, bool) {
	st, ok := a.station(w, r)
	if !ok {
		return domain.Station{}, "", false
	}
	sensor, err := domain.ParseSensor(r.PathValue("sensor"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return domain.Station{}, "", false
	}
	return st, sensor, true
}

func (a *api) parseDays(r *http.Request) (int, error) {
	q := r.URL.Query().Get("days")
	if q == "" {
		return a.defaultDays, nil
	}
	days, err := strconv.Atoi(q)
	if err != nil || days < 1 || days > a.maxDays {
		return 0, fmt.Errorf("days must be between 1 and %d, got %q", a.maxDays, q)
	}
	return days, nil
}

// download renders into a buffer first so a failed export still gets a clean
// error response.
func (a *api) download(w http.ResponseWriter, contentType, filename string, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		a.logger.Error("render export failed", "filename", filename, "error", err)
		writeError(w, http.StatusInternalServerError, errors.New("export failed"))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
