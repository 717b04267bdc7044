package cache

import (
	"strconv"
	"strings"

	"github.com/shakemap/shakemapd/quake"
)

// keyDelimiter joins the event key fields.
const keyDelimiter = "|"

// EventKey derives the identity string of a cached event from its
// metadata: origin time (UTC, falling back to Thai local time), then
// latitude, longitude, magnitude and depth.
//
// The key is deterministic for identical metadata. It exists for
// observability and diagnostics only; cache-hit decisions never
// consult it.
func EventKey(meta quake.Meta) string {
	t := meta.TimeUTC
	if t == "" {
		t = meta.TimeTH
	}

	parts := []string{
		t,
		formatCoord(meta.Lat),
		formatCoord(meta.Lon),
		formatCoord(meta.Mag),
		formatCoord(meta.DepthKm),
	}
	return strings.Join(parts, keyDelimiter)
}

// formatCoord renders a float without trailing zeros, so the same
// value always produces the same key text.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
