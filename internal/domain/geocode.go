package domain

import (
	"context"
	"log/slog"
)

// Geocoder looks up the place at a pair of coordinates. An empty result with a
// nil error means the provider knows nothing there.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lon float64) (GeocodingResult, error)
}

// GeocodingResult is the best place match for a coordinate pair.
type GeocodingResult struct {
	Lat, Lon         float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // provider relevance, 0 to 1
}

// LocateStations fills in the Address of every station that has coordinates
// but no address yet. Stations whose lookup fails or comes back empty keep
// their previous value. The input is not modified.
func LocateStations(ctx context.Context, stations []Station, geocoder Geocoder, logger *slog.Logger) []Station {
	out := make([]Station, len(stations))
	copy(out, stations)
	if geocoder == nil {
		return out
	}

	for i, st := range out {
		if st.Address != "" || (st.Location.Lat == 0 && st.Location.Lng == 0) {
			continue
		}
		result, err := geocoder.ReverseGeocode(ctx, st.Location.Lat, st.Location.Lng)
		if err != nil {
			logger.Warn("reverse geocoding failed",
				"station_id", st.ID,
				"lat", st.Location.Lat,
				"lng", st.Location.Lng,
				"error", err,
			)
			continue
		}
		if result.FormattedAddress == "" {
			continue
		}
		out[i].Address = result.FormattedAddress
	}
	return out
}
