package overlay

import (
	"math"
	"time"

	"github.com/shakemap/shakemapd/quake"
)

// feltMMI is the weakest intensity level worth drawing a ring for.
const feltMMI = 3

// maxRingRadiusKm caps the contour search; shaking below feltMMI past
// this range is not map-relevant.
const maxRingRadiusKm = 2000.0

// Engine computes shaking overlays with a point-source attenuation model.
// PGA follows the Fukushima & Tanaka (1990) relation; PGA is mapped to
// MMI with the Wald et al. (1999) regressions.
type Engine struct {
	now func() time.Time
}

// NewEngine creates an overlay engine.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// FromEvent computes the overlay for an observed event.
func (e *Engine) FromEvent(meta quake.Meta) (*Result, error) {
	if err := validateParams(meta.Lat, meta.Lon, meta.DepthKm, meta.Mag); err != nil {
		return nil, err
	}
	return e.compute(meta, SourceFeed), nil
}

// Simulate computes the overlay for a synthetic event located at the
// given coordinates, occurring now.
func (e *Engine) Simulate(lat, lon, depthKm, mag float64) (*Result, error) {
	if err := validateParams(lat, lon, depthKm, mag); err != nil {
		return nil, err
	}
	meta := quake.MetaAt(e.now(), lat, lon, depthKm, mag)
	return e.compute(meta, SourceSimulated), nil
}

func (e *Engine) compute(meta quake.Meta, source string) *Result {
	maxMMI := mmiFromGal(galAt(meta.Mag, meta.DepthKm, 0))

	res := &Result{
		Meta:          meta,
		Source:        source,
		GeneratedAt:   e.now().UTC().Format(time.RFC3339),
		MaxMMI:        round1(maxMMI),
		EpicentralGal: round1(galAt(meta.Mag, meta.DepthKm, 0)),
	}

	for level := int(maxMMI); level >= feltMMI; level-- {
		r, ok := radiusForMMI(float64(level), meta.Mag, meta.DepthKm)
		if !ok {
			continue
		}
		res.Rings = append(res.Rings, Ring{MMI: level, RadiusKm: round1(r)})
	}

	if felt, ok := radiusForMMI(feltMMI, meta.Mag, meta.DepthKm); ok {
		res.FeltRadiusKm = round1(felt)
	}

	return res
}

// galAt estimates peak ground acceleration in gal (cm/s²) at the given
// epicentral distance. Fukushima & Tanaka (1990):
//
//	log10(PGA) = 0.41*M - log10(R + 0.032*10^(0.41*M)) - 0.0034*R + 1.30
//
// with R the hypocentral distance in km.
func galAt(mag, depthKm, epiKm float64) float64 {
	r := math.Sqrt(epiKm*epiKm + depthKm*depthKm)
	if r < 1 {
		r = 1
	}
	logPGA := 0.41*mag - math.Log10(r+0.032*math.Pow(10, 0.41*mag)) - 0.0034*r + 1.30
	return math.Pow(10, logPGA)
}

// mmiFromGal maps PGA to Modified Mercalli Intensity. Wald et al. (1999)
// regression for MMI >= V, with the lower-intensity branch below it.
func mmiFromGal(gal float64) float64 {
	if gal <= 0 {
		return 1
	}
	mmi := 3.66*math.Log10(gal) - 1.66
	if mmi < 5 {
		mmi = 2.20*math.Log10(gal) + 1.00
	}
	switch {
	case mmi < 1:
		return 1
	case mmi > 12:
		return 12
	default:
		return mmi
	}
}

// radiusForMMI finds the epicentral distance at which intensity falls to
// the target level. Intensity decreases monotonically with distance, so
// a bisection over [0, maxRingRadiusKm] suffices.
func radiusForMMI(target, mag, depthKm float64) (float64, bool) {
	if mmiFromGal(galAt(mag, depthKm, 0)) < target {
		return 0, false
	}
	if mmiFromGal(galAt(mag, depthKm, maxRingRadiusKm)) >= target {
		return maxRingRadiusKm, true
	}

	lo, hi := 0.0, maxRingRadiusKm
	for i := 0; i < 64; i++ {
		mid := (lo + hi) / 2
		if mmiFromGal(galAt(mag, depthKm, mid)) >= target {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo, true
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Ensure Engine implements both collaborator interfaces
var (
	_ Computer  = (*Engine)(nil)
	_ Simulator = (*Engine)(nil)
)
