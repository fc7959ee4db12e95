package domain

import "time"

// SeedStations returns the static station registry. The offline station last
// reported a day before now.
func SeedStations(now time.Time) []Station {
	return []Station{
		{
			ID:          "station-1",
			Name:        "Mukdahan City",
			Status:      StatusOnline,
			Location:    Location{Lat: 16.5434, Lng: 104.7235},
			LastUpdated: now,
			Sensors: SensorReadings{
				ET0: 4.2, Rainfall: 0, WaterLevel: 138.5,
				Temperature: 32.4, Humidity: 65, WindSpeed: 2.1, SolarRadiation: 850,
			},
		},
		{
			ID:          "station-2",
			Name:        "Don Tan",
			Status:      StatusOnline,
			Location:    Location{Lat: 16.3012, Lng: 104.8765},
			LastUpdated: now,
			Sensors: SensorReadings{
				ET0: 3.8, Rainfall: 2.5, WaterLevel: 142.3,
				Temperature: 31.2, Humidity: 72, WindSpeed: 1.8, SolarRadiation: 820,
			},
		},
		{
			ID:          "station-3",
			Name:        "Nong Sung",
			Status:      StatusWarning,
			Location:    Location{Lat: 16.6789, Lng: 104.6543},
			LastUpdated: now,
			Sensors: SensorReadings{
				ET0: 4.5, Rainfall: 5.2, WaterLevel: 145.7,
				Temperature: 30.8, Humidity: 78, WindSpeed: 3.2, SolarRadiation: 780,
			},
		},
		{
			ID:          "station-4",
			Name:        "Khamcha-i",
			Status:      StatusOffline,
			Location:    Location{Lat: 16.4567, Lng: 104.5432},
			LastUpdated: now.Add(-24 * time.Hour),
		},
		{
			ID:          "station-5",
			Name:        "Dong Luang",
			Status:      StatusOnline,
			Location:    Location{Lat: 16.7123, Lng: 104.9876},
			LastUpdated: now,
			Sensors: SensorReadings{
				ET0: 4.1, Rainfall: 1.2, WaterLevel: 140.2,
				Temperature: 31.5, Humidity: 68, WindSpeed: 2.5, SolarRadiation: 830,
			},
		},
	}
}

// SeedAlerts returns the alerts present when the service starts, newest first.
func SeedAlerts(now time.Time) []Alert {
	return []Alert{
		{
			ID: "alert-1", Type: AlertOffline, Status: AlertPending,
			Timestamp: now.Add(-1 * time.Hour),
			StationID: "station-4", StationName: "Khamcha-i",
			Message: "Station offline for more than 24 hours",
		},
		{
			ID: "alert-2", Type: AlertWeather, Status: AlertPending,
			Timestamp: now.Add(-2 * time.Hour),
			StationID: "station-3", StationName: "Nong Sung",
			Message: "Heavy rainfall detected (5.2mm/hr)",
		},
		{
			ID: "alert-5", Type: AlertError, Status: AlertPending,
			Timestamp: now.Add(-3 * time.Hour),
			StationID: "station-5", StationName: "Dong Luang",
			Message: "Solar radiation sensor calibration required",
		},
		{
			ID: "alert-3", Type: AlertError, Status: AlertResolved,
			Timestamp: now.Add(-24 * time.Hour),
			StationID: "station-2", StationName: "Don Tan",
			Message: "Temperature sensor reading error",
		},
		{
			ID: "alert-4", Type: AlertWeather, Status: AlertResolved,
			Timestamp: now.Add(-48 * time.Hour),
			StationID: "station-1", StationName: "Mukdahan City",
			Message: "High wind speed detected (8.5m/s)",
		},
	}
}
