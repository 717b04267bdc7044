package overlay

import (
	"errors"

	"github.com/shakemap/shakemapd/quake"
)

// Result source discriminators.
const (
	SourceFeed      = "feed"
	SourceSimulated = "simulated"
)

// Sentinel errors for out-of-domain inputs.
var (
	ErrLatitudeRange  = errors.New("overlay: latitude out of range")
	ErrLongitudeRange = errors.New("overlay: longitude out of range")
	ErrDepthRange     = errors.New("overlay: depth out of range")
	ErrMagnitudeRange = errors.New("overlay: magnitude out of range")
)

// Ring is an isoseismal contour: the radius within which shaking is
// expected to reach at least the given whole MMI level.
type Ring struct {
	MMI      int     `json:"mmi"`
	RadiusKm float64 `json:"radius_km"`
}

// Result is the computed overlay payload served to clients.
type Result struct {
	Meta           quake.Meta `json:"meta"`
	Source         string     `json:"source"`
	GeneratedAt    string     `json:"generated_at"`
	MaxMMI         float64    `json:"max_mmi"`
	EpicentralGal  float64    `json:"epicentral_pga_gal"`
	FeltRadiusKm   float64    `json:"felt_radius_km"`
	Rings          []Ring     `json:"rings"`
}

// Computer transforms event metadata into an overlay payload.
//
// Contract:
// - Purity: FromEvent must not retain or mutate shared state.
// - Concurrency: implementations must be safe for concurrent use.
type Computer interface {
	// FromEvent computes the overlay for an observed event.
	FromEvent(meta quake.Meta) (*Result, error)
}

// Simulator computes an overlay from synthetic event parameters.
// Simulation bypasses any caching layer entirely.
type Simulator interface {
	// Simulate computes the overlay for a synthetic event.
	Simulate(lat, lon, depthKm, mag float64) (*Result, error)
}

// validateParams rejects inputs outside the model's domain.
func validateParams(lat, lon, depthKm, mag float64) error {
	if lat < -90 || lat > 90 {
		return ErrLatitudeRange
	}
	if lon < -180 || lon > 180 {
		return ErrLongitudeRange
	}
	if depthKm < 0 || depthKm > 700 {
		return ErrDepthRange
	}
	if mag < 0 || mag > 10 {
		return ErrMagnitudeRange
	}
	return nil
}
