package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownStation is returned when an operation names a station that is not in the registry.
var ErrUnknownStation = errors.New("unknown station")

// ErrInvalidSensor is returned when a sensor name does not match any reading.
var ErrInvalidSensor = errors.New("invalid sensor")

// StationStatus is the operational state of a station, fixed at seed time.
type StationStatus string

const (
	StatusOnline   StationStatus = "online"
	StatusOffline  StationStatus = "offline"
	StatusWarning  StationStatus = "warning"
	StatusCritical StationStatus = "critical"
)

// ParseStationStatus validates a status filter value.
func ParseStationStatus(s string) (StationStatus, error) {
	switch st := StationStatus(s); st {
	case StatusOnline, StatusOffline, StatusWarning, StatusCritical:
		return st, nil
	}
	return "", fmt.Errorf("invalid station status %q", s)
}

// Location is a WGS-84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SensorReadings holds the latest value of every sensor at a station.
type SensorReadings struct {
	ET0            float64 `json:"et0"`
	Rainfall       float64 `json:"rainfall"`
	WaterLevel     float64 `json:"waterLevel"`
	Temperature    float64 `json:"temperature"`
	Humidity       float64 `json:"humidity"`
	WindSpeed      float64 `json:"windSpeed"`
	SolarRadiation float64 `json:"solarRadiation"`
}

// Value returns the reading for the given sensor.
func (r SensorReadings) Value(s Sensor) float64 {
	switch s {
	case SensorET0:
		return r.ET0
	case SensorRainfall:
		return r.Rainfall
	case SensorWaterLevel:
		return r.WaterLevel
	case SensorTemperature:
		return r.Temperature
	case SensorHumidity:
		return r.Humidity
	case SensorWindSpeed:
		return r.WindSpeed
	case SensorSolarRadiation:
		return r.SolarRadiation
	}
	return 0
}

// Station is a sensor deployment site. Values are replaced, never mutated in place.
type Station struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Status      StationStatus  `json:"status"`
	Location    Location       `json:"location"`
	Address     string         `json:"address,omitempty"`
	LastUpdated time.Time      `json:"lastUpdated"`
	Sensors     SensorReadings `json:"sensors"`
}

// Sensor names a single reading of a station.
type Sensor string

const (
	SensorET0            Sensor = "et0"
	SensorRainfall       Sensor = "rainfall"
	SensorWaterLevel     Sensor = "waterLevel"
	SensorTemperature    Sensor = "temperature"
	SensorHumidity       Sensor = "humidity"
	SensorWindSpeed      Sensor = "windSpeed"
	SensorSolarRadiation Sensor = "solarRadiation"
)

// AllSensors lists every sensor in display order.
var AllSensors = []Sensor{
	SensorET0,
	SensorRainfall,
	SensorWaterLevel,
	SensorTemperature,
	SensorHumidity,
	SensorWindSpeed,
	SensorSolarRadiation,
}

// ParseSensor maps a sensor name to a Sensor.
func ParseSensor(s string) (Sensor, error) {
	for _, sensor := range AllSensors {
		if string(sensor) == s {
			return sensor, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSensor, s)
}

// Unit returns the measurement unit of the sensor.
func (s Sensor) Unit() string {
	switch s {
	case SensorET0:
		return "mm/day"
	case SensorRainfall:
		return "mm"
	case SensorWaterLevel:
		return "m"
	case SensorTemperature:
		return "°C"
	case SensorHumidity:
		return "%"
	case SensorWindSpeed:
		return "m/s"
	case SensorSolarRadiation:
		return "W/m²"
	}
	return ""
}

// IsWater reports whether the reading comes from the rain gauge / water-level sensor.
func (s Sensor) IsWater() bool {
	return s == SensorRainfall || s == SensorWaterLevel
}

// FindStation looks a station up by ID. A miss is not an error.
func FindStation(stations []Station, id string) (Station, bool) {
	for _, st := range stations {
		if st.ID == id {
			return st, true
		}
	}
	return Station{}, false
}

// FilterByStatus returns the stations with the given status, preserving order.
func FilterByStatus(stations []Station, status StationStatus) []Station {
	out := make([]Station, 0, len(stations))
	for _, st := range stations {
		if st.Status == status {
			out = append(out, st)
		}
	}
	return out
}
