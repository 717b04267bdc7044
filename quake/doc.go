// Package quake provides seismic event metadata and sources that
// retrieve the most recent event from an upstream earthquake feed.
package quake
