// Package health provides liveness and readiness checking for the
// shakemap service.
//
// A Checker reports the health of one component: the upstream earthquake
// feed, the overlay cache, process memory. The Aggregator combines
// registered checkers into a composite status and backs the HTTP probe
// endpoints:
//
//	agg := health.NewAggregator()
//	agg.Register("memory", health.NewMemoryChecker(health.MemoryCheckerConfig{}))
//	agg.Register("feed", health.NewFeedChecker(health.FeedCheckerConfig{URL: feedURL}))
//	health.RegisterHandlers(mux, agg)
//
// RegisterHandlers mounts /healthz (liveness), /readyz (readiness) and
// /health (detailed JSON) on the given mux.
package health
