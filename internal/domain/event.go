package domain

import "time"

// EventKind names a state change pushed to dashboard subscribers and sinks.
type EventKind string

const (
	EventStations      EventKind = "stations"
	EventAlertRaised   EventKind = "alert.raised"
	EventAlertResolved EventKind = "alert.resolved"
	EventClock         EventKind = "clock"
)

// IsAlert reports whether the event carries an alert transition.
func (k EventKind) IsAlert() bool {
	return k == EventAlertRaised || k == EventAlertResolved
}

// Event is a state change emitted by the monitor. Exactly one of Stations or
// Alert is set for stations and alert events; clock events only carry Time.
type Event struct {
	Kind     EventKind
	Time     time.Time
	Stations []Station
	Alert    *Alert
}

// StationsEvent wraps a registry snapshot.
func StationsEvent(stations []Station, now time.Time) Event {
	return Event{Kind: EventStations, Time: now, Stations: stations}
}

// AlertEvent wraps an alert transition.
func AlertEvent(kind EventKind, a Alert, now time.Time) Event {
	return Event{Kind: kind, Time: now, Alert: &a}
}

// ClockEvent marks a wall-clock tick.
func ClockEvent(now time.Time) Event {
	return Event{Kind: EventClock, Time: now}
}
