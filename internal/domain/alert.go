package domain

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidAlertType is returned when an alert type is not one of the known kinds.
var ErrInvalidAlertType = errors.New("invalid alert type")

// AlertType classifies what raised an alert.
type AlertType string

const (
	AlertOffline AlertType = "offline"
	AlertWeather AlertType = "weather"
	AlertError   AlertType = "error"
)

// ParseAlertType validates an alert type name.
func ParseAlertType(s string) (AlertType, error) {
	switch t := AlertType(s); t {
	case AlertOffline, AlertWeather, AlertError:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAlertType, s)
}

// AlertStatus is the lifecycle state of an alert. The only transition is pending → resolved.
type AlertStatus string

const (
	AlertPending  AlertStatus = "pending"
	AlertResolved AlertStatus = "resolved"
)

// ParseAlertStatus validates an alert status name.
func ParseAlertStatus(s string) (AlertStatus, error) {
	switch st := AlertStatus(s); st {
	case AlertPending, AlertResolved:
		return st, nil
	}
	return "", fmt.Errorf("invalid alert status %q", s)
}

// DefaultAlertMessage is attached to synthesized alerts.
const DefaultAlertMessage = "New alert detected"

// Alert is an operator-facing notification about a station.
type Alert struct {
	ID          string      `json:"id"`
	Type        AlertType   `json:"type"`
	Status      AlertStatus `json:"status"`
	Timestamp   time.Time   `json:"timestamp"`
	StationID   string      `json:"stationId"`
	StationName string      `json:"stationName"`
	Message     string      `json:"message"`
}

// NewAlertID returns a unique, time-ordered alert identifier.
func NewAlertID() string {
	return "alert-" + uuid.Must(uuid.NewV7()).String()
}

// NewAlert builds a pending alert for a station.
func NewAlert(st Station, typ AlertType, message string, now time.Time) Alert {
	if message == "" {
		message = DefaultAlertMessage
	}
	return Alert{
		ID:          NewAlertID(),
		Type:        typ,
		Status:      AlertPending,
		Timestamp:   now,
		StationID:   st.ID,
		StationName: st.Name,
		Message:     message,
	}
}

// RollAlert synthesizes a pending alert with the given probability. The type
// is weather half the time and error or offline a quarter each; the station is
// drawn uniformly from the registry.
func RollAlert(stations []Station, rng Rand, probability float64, now time.Time) (Alert, bool) {
	if len(stations) == 0 || rng.Float64() >= probability {
		return Alert{}, false
	}
	typ := rollAlertType(rng)
	st := stations[rng.IntN(len(stations))]
	return NewAlert(st, typ, DefaultAlertMessage, now), true
}

func rollAlertType(rng Rand) AlertType {
	if rng.Float64() < 0.5 {
		return AlertWeather
	}
	if rng.Float64() < 0.5 {
		return AlertError
	}
	return AlertOffline
}

// PendingCount counts the alerts still awaiting acknowledgement.
func PendingCount(alerts []Alert) int {
	n := 0
	for _, a := range alerts {
		if a.Status == AlertPending {
			n++
		}
	}
	return n
}

// ResolveAlert marks the alert with the given ID resolved. It returns a new
// slice and the resolved alert; the input is left untouched. When the ID is
// absent or the alert is already resolved, the input is returned with false.
func ResolveAlert(alerts []Alert, id string) ([]Alert, Alert, bool) {
	i := slices.IndexFunc(alerts, func(a Alert) bool { return a.ID == id })
	if i < 0 || alerts[i].Status == AlertResolved {
		return alerts, Alert{}, false
	}
	out := slices.Clone(alerts)
	out[i].Status = AlertResolved
	return out, out[i], true
}

// AlertFilter narrows an alert listing. Zero fields match everything.
type AlertFilter struct {
	Status    AlertStatus
	StationID string
}

// FilterAlerts returns the alerts matching f, preserving order.
func FilterAlerts(alerts []Alert, f AlertFilter) []Alert {
	out := make([]Alert, 0, len(alerts))
	for _, a := range alerts {
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if f.StationID != "" && a.StationID != f.StationID {
			continue
		}
		out = append(out, a)
	}
	return out
}
