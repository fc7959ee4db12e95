package domain

import "time"

// OnlineCount returns the number of stations reporting as online.
func OnlineCount(stations []Station) int {
	n := 0
	for _, st := range stations {
		if st.Status == StatusOnline {
			n++
		}
	}
	return n
}

// Average returns the mean of a sensor reading over online stations only.
// It is 0 when no station is online.
func Average(stations []Station, sensor Sensor) float64 {
	var sum float64
	n := 0
	for _, st := range stations {
		if st.Status != StatusOnline {
			continue
		}
		sum += st.Sensors.Value(sensor)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func AverageET0(stations []Station) float64        { return Average(stations, SensorET0) }
func AverageRainfall(stations []Station) float64   { return Average(stations, SensorRainfall) }
func AverageWaterLevel(stations []Station) float64 { return Average(stations, SensorWaterLevel) }

// Summary is the dashboard headline computed from a consistent snapshot.
type Summary struct {
	TotalStations     int       `json:"totalStations"`
	OnlineCount       int       `json:"onlineCount"`
	AverageET0        float64   `json:"averageEt0"`
	AverageRainfall   float64   `json:"averageRainfall"`
	AverageWaterLevel float64   `json:"averageWaterLevel"`
	PendingAlerts     int       `json:"pendingAlerts"`
	ServerTime        time.Time `json:"serverTime"`
}

// Summarize derives the dashboard headline. Nothing is cached; every call recounts.
func Summarize(stations []Station, alerts []Alert, now time.Time) Summary {
	return Summary{
		TotalStations:     len(stations),
		OnlineCount:       OnlineCount(stations),
		AverageET0:        AverageET0(stations),
		AverageRainfall:   AverageRainfall(stations),
		AverageWaterLevel: AverageWaterLevel(stations),
		PendingAlerts:     PendingCount(alerts),
		ServerTime:        now,
	}
}
