// Package cache holds the single most recently computed shakemap
// overlay and coordinates its recomputation.
//
// The store keeps exactly one result together with a derived event key
// and a timestamp, replaced atomically as a unit. Concurrent misses are
// coalesced into one computation; a forced refresh always recomputes.
package cache
