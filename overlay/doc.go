// Package overlay computes map-ready shaking intensity overlays from
// seismic event metadata, either observed or simulated.
package overlay
