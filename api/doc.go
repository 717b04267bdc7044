// Package api provides the HTTP surface of the shakemap service.
//
// It mounts the landing page, the overlay endpoints (/api/run,
// /api/simulate), the operator refresh endpoint (/api/refresh) and the
// cache inspection endpoint (/api/cache_state), with a CORS allow-list
// and per-route observability middleware.
package api
