// Package domain models the environmental sensor stations behind the
// monitoring dashboard: their live readings, synthetic history, alerts and
// the metrics derived from them.
//
// # Stations
//
// A station is a field deployment combining a weather sensor set (ISMMA2300)
// and a rain gauge / water-level sensor (DQA230.1). Five stations around
// Mukdahan are seeded at startup by [SeedStations]; the registry is static and
// station status never transitions at runtime.
//
// # Readings and units
//
//	et0             reference evapotranspiration   mm/day
//	rainfall        accumulated rainfall           mm
//	waterLevel      river water level              m
//	temperature     air temperature                °C
//	humidity        relative humidity              %   (0–100)
//	windSpeed       wind speed                     m/s
//	solarRadiation  global solar radiation         W/m²
//
// No reading is ever negative; humidity is also capped at 100.
//
// # Simulation
//
// Live readings are simulated. [Simulate] nudges every station that is not
// offline by small bounded deltas; offline stations are frozen. Rainfall only
// ever accumulates.
//
// # History
//
// [GenerateHistory] synthesizes one record per day around fixed base values.
// The random source is seeded from the (station, days) pair so the same
// request always yields the same values; only the dates follow the anchor day.
// Every 5th to 7th day is rainy (3–5× base rainfall), other days see 0–0.8×.
//
// # Alerts
//
// Alerts are either pending or resolved. Resolution is one way. [RollAlert]
// synthesizes a pending alert with a configured probability per roll.
//
// # Derived metrics
//
// Averages only consider stations whose status is online. Stations in warning
// or critical status still report readings but are left out of the means.
package domain
