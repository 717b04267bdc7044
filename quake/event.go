package quake

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for event retrieval.
var (
	// ErrNoEvent is returned when the feed has no event inside the
	// configured region.
	ErrNoEvent = errors.New("quake: no event in region")
)

// zoneICT renders local Thai timestamps without depending on tzdata.
var zoneICT = time.FixedZone("ICT", 7*60*60)

// Meta is the metadata of a single seismic event.
//
// TimeUTC is RFC3339 in UTC. TimeTH is the same instant rendered in
// Thai local time for display; callers preferring machine time should
// use TimeUTC.
type Meta struct {
	TimeUTC string  `json:"time_utc"`
	TimeTH  string  `json:"time_th"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Mag     float64 `json:"mag"`
	DepthKm float64 `json:"depth_km"`
	Place   string  `json:"place,omitempty"`
}

// MetaAt builds event metadata stamped with the given origin time.
func MetaAt(origin time.Time, lat, lon, depthKm, mag float64) Meta {
	return Meta{
		TimeUTC: origin.UTC().Format(time.RFC3339),
		TimeTH:  origin.In(zoneICT).Format("2006-01-02 15:04:05"),
		Lat:     lat,
		Lon:     lon,
		Mag:     mag,
		DepthKm: depthKm,
	}
}

// Source supplies the latest event metadata on demand.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Latest must honor cancellation/deadlines.
// - Errors: Latest returns ErrNoEvent when the feed is reachable but
//   carries no event in the configured region.
type Source interface {
	// Latest returns the most recent event.
	Latest(ctx context.Context) (Meta, error)
}

// Region is a geographic bounding box used to filter feed events.
type Region struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Contains reports whether the coordinate falls inside the region.
func (r Region) Contains(lat, lon float64) bool {
	return lat >= r.MinLat && lat <= r.MaxLat && lon >= r.MinLon && lon <= r.MaxLon
}

// Thailand is the default region of interest.
var Thailand = Region{MinLat: 4.5, MaxLat: 21.0, MinLon: 96.0, MaxLon: 106.5}
