package domain

import (
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
)

// HistoricalRecord is one synthetic day of readings for a station.
type HistoricalRecord struct {
	Date           string  `json:"date"` // YYYY-MM-DD
	ET0            float64 `json:"et0"`
	Rainfall       float64 `json:"rainfall"`
	WaterLevel     float64 `json:"waterLevel"`
	Temperature    float64 `json:"temperature"`
	Humidity       float64 `json:"humidity"`
	WindSpeed      float64 `json:"windSpeed"`
	SolarRadiation float64 `json:"solarRadiation"`
}

// historyBase holds the values the daily series vary around.
var historyBase = SensorReadings{
	ET0:            4.0,
	Rainfall:       2.0,
	WaterLevel:     140.0,
	Temperature:    31.0,
	Humidity:       70.0,
	WindSpeed:      2.0,
	SolarRadiation: 800,
}

// HistorySeed derives the random seed for a (station, days) series.
func HistorySeed(stationID string, days int) uint64 {
	return xxhash.Sum64String(stationID + "|" + strconv.Itoa(days))
}

// GenerateHistory returns exactly days records ending on the anchor's UTC
// calendar day, oldest first. Values depend only on stationID and days.
func GenerateHistory(stationID string, days int, anchor time.Time) []HistoricalRecord {
	if days <= 0 {
		return []HistoricalRecord{}
	}
	return generateHistory(NewRand(HistorySeed(stationID, days)), days, anchor)
}

func generateHistory(rng Rand, days int, anchor time.Time) []HistoricalRecord {
	anchor = anchor.UTC()
	day := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, time.UTC)

	out := make([]HistoricalRecord, days)
	for i := range days {
		// Offset 0 is the anchor day; filling from the back yields ascending dates.
		out[days-1-i] = HistoricalRecord{
			Date:           day.AddDate(0, 0, -i).Format(time.DateOnly),
			Rainfall:       dailyRainfall(rng, i),
			ET0:            historyBase.ET0 * (1 + variation(rng)),
			WaterLevel:     historyBase.WaterLevel * (1 + variation(rng)*0.1),
			Temperature:    historyBase.Temperature * (1 + variation(rng)*0.5),
			Humidity:       historyBase.Humidity * (1 + variation(rng)*0.3),
			WindSpeed:      historyBase.WindSpeed * (1 + variation(rng)),
			SolarRadiation: historyBase.SolarRadiation * (1 + variation(rng)*0.4),
		}
	}
	return out
}

// variation draws a relative change in [-20%, +20%).
func variation(rng Rand) float64 {
	return rng.Float64()*0.4 - 0.2
}

// dailyRainfall spikes every 5th to 7th day; the period is re-drawn per offset.
func dailyRainfall(rng Rand, offset int) float64 {
	period := 5 + rng.IntN(3)
	if offset%period == 0 {
		return historyBase.Rainfall * (3 + rng.Float64()*2)
	}
	return historyBase.Rainfall * rng.Float64() * 0.8
}
