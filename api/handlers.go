package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/shakemap/shakemapd/observe"
)

// runRequest is the body of POST /api/run. All fields are optional; the
// simulate fields only matter when Mode is "simulate".
type runRequest struct {
	Mode  string   `json:"mode"`
	Force bool     `json:"force"`
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
	Depth *float64 `json:"depth"`
	Mag   *float64 `json:"mag"`
}

// simulateRequest is the body of POST /api/simulate. All fields are
// mandatory.
type simulateRequest struct {
	Lat   *float64 `json:"lat"`
	Lon   *float64 `json:"lon"`
	Depth *float64 `json:"depth"`
	Mag   *float64 `json:"mag"`
}

// cacheStateResponse mirrors the cache inspection payload. EventKey is
// null and Timestamp zero until a result is stored; TTLSec is null when
// expiry is disabled.
type cacheStateResponse struct {
	HasCache bool    `json:"has_cache"`
	EventKey *string `json:"event_key"`
	Ts       float64 `json:"ts"`
	TTLSec   *int    `json:"ttl_sec"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	serveIndex(w, r)
}

func (s *Server) handleRunGet(w http.ResponseWriter, r *http.Request) {
	data, err := s.store.GetOrCompute(r.Context(), false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleRunPost(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decodeBody(r.Body, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if req.Mode == "simulate" {
		s.simulate(w, r, req.Lat, req.Lon, req.Depth, req.Mag)
		return
	}

	data, err := s.store.GetOrCompute(r.Context(), req.Force)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow() {
		s.writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"error": "refresh rate limit exceeded",
		})
		return
	}

	data, err := s.store.GetOrCompute(r.Context(), true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	snap := s.store.Peek()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"meta":      data.Meta,
		"event_key": snap.EventKey,
	})
}

func (s *Server) handleCacheState(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Peek()

	resp := cacheStateResponse{HasCache: snap.HasResult}
	if snap.HasResult {
		resp.EventKey = &snap.EventKey
		resp.Ts = float64(snap.StoredAt.UnixMilli()) / 1000
	}
	if snap.TTL > 0 {
		ttlSec := int(snap.TTL.Seconds())
		resp.TTLSec = &ttlSec
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := decodeBody(r.Body, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.simulate(w, r, req.Lat, req.Lon, req.Depth, req.Mag)
}

func (s *Server) simulate(w http.ResponseWriter, r *http.Request, lat, lon, depth, mag *float64) {
	if err := requireParams(map[string]*float64{
		"lat":   lat,
		"lon":   lon,
		"depth": depth,
		"mag":   mag,
	}); err != nil {
		s.writeError(w, r, err)
		return
	}

	data, err := s.simulator.Simulate(*lat, *lon, *depth, *mag)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, data)
}

// decodeBody decodes a JSON request body, treating an empty body as an
// empty object.
func decodeBody(body io.Reader, dst any) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("api: invalid request body: %w", err)
	}
	return nil
}

// requireParams returns an error naming the first missing parameter in a
// stable order.
func requireParams(params map[string]*float64) error {
	for _, name := range []string{"lat", "lon", "depth", "mag"} {
		if params[name] == nil {
			return fmt.Errorf("api: missing or invalid parameter: %s", name)
		}
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are out the door; an encode failure here can only be dropped.
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error(r.Context(), "request failed",
		observe.Field{Key: "path", Value: r.URL.Path},
		observe.Field{Key: "error", Value: err.Error()},
	)
	s.writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": err.Error(),
	})
}
