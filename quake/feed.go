package quake

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shakemap/shakemapd/resilience"
)

// DefaultFeedURL is the USGS all-day GeoJSON summary feed.
const DefaultFeedURL = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_day.geojson"

// FeedConfig configures the GeoJSON feed source.
type FeedConfig struct {
	// URL is the GeoJSON summary feed endpoint.
	// Default: DefaultFeedURL
	URL string

	// Region filters events to a bounding box.
	// Default: Thailand
	Region Region

	// MinMag drops events below this magnitude.
	MinMag float64

	// Timeout bounds a single feed fetch, including body decode.
	// Default: 15 seconds
	Timeout time.Duration

	// HTTPClient is the client used for feed requests.
	// Default: a client without its own timeout (Timeout above applies).
	HTTPClient *http.Client
}

// FeedSource retrieves the latest event from a USGS-style GeoJSON feed.
// Fetches run through a circuit breaker so a dead upstream fails fast
// instead of holding every caller for the full timeout.
type FeedSource struct {
	config  FeedConfig
	breaker *resilience.CircuitBreaker
	timeout *resilience.Timeout
}

// NewFeedSource creates a feed source.
func NewFeedSource(config FeedConfig) *FeedSource {
	// Apply defaults
	if config.URL == "" {
		config.URL = DefaultFeedURL
	}
	if config.Region == (Region{}) {
		config.Region = Thailand
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}

	return &FeedSource{
		config:  config,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{}),
		timeout: resilience.NewTimeout(resilience.TimeoutConfig{Timeout: config.Timeout}),
	}
}

// Latest returns the most recent event in the configured region.
func (s *FeedSource) Latest(ctx context.Context) (Meta, error) {
	var meta Meta
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.timeout.Execute(ctx, func(ctx context.Context) error {
			m, err := s.fetch(ctx)
			if err != nil {
				return err
			}
			meta = m
			return nil
		})
	})
	if err != nil {
		return Meta{}, err
	}
	return meta, nil
}

// feedDocument is the subset of the GeoJSON summary format we read.
type feedDocument struct {
	Features []feedFeature `json:"features"`
}

type feedFeature struct {
	Properties struct {
		Mag   *float64 `json:"mag"`
		Place string   `json:"place"`
		Time  int64    `json:"time"` // epoch milliseconds
	} `json:"properties"`
	Geometry struct {
		// lon, lat, depth_km
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
}

func (s *FeedSource) fetch(ctx context.Context) (Meta, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.URL, nil)
	if err != nil {
		return Meta{}, fmt.Errorf("quake: create feed request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json")

	resp, err := s.config.HTTPClient.Do(req)
	if err != nil {
		return Meta{}, fmt.Errorf("quake: fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Meta{}, fmt.Errorf("quake: feed returned status %d", resp.StatusCode)
	}

	var doc feedDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return Meta{}, fmt.Errorf("quake: decode feed: %w", err)
	}

	latest, ok := s.pick(doc.Features)
	if !ok {
		return Meta{}, ErrNoEvent
	}

	origin := time.UnixMilli(latest.Properties.Time)
	meta := MetaAt(origin,
		latest.Geometry.Coordinates[1],
		latest.Geometry.Coordinates[0],
		latest.Geometry.Coordinates[2],
		*latest.Properties.Mag,
	)
	meta.Place = latest.Properties.Place
	return meta, nil
}

// pick selects the newest in-region feature that passes the magnitude floor.
func (s *FeedSource) pick(features []feedFeature) (feedFeature, bool) {
	var best feedFeature
	found := false
	for _, f := range features {
		if f.Properties.Mag == nil || *f.Properties.Mag < s.config.MinMag {
			continue
		}
		if len(f.Geometry.Coordinates) < 3 {
			continue
		}
		lat, lon := f.Geometry.Coordinates[1], f.Geometry.Coordinates[0]
		if !s.config.Region.Contains(lat, lon) {
			continue
		}
		if !found || f.Properties.Time > best.Properties.Time {
			best = f
			found = true
		}
	}
	return best, found
}

// Ensure FeedSource implements Source
var _ Source = (*FeedSource)(nil)
