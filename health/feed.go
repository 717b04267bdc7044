package health

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// FeedCheckerConfig configures the upstream feed health checker.
type FeedCheckerConfig struct {
	// URL is the feed endpoint to probe. Required.
	URL string

	// Timeout bounds the probe request. Default: 5 seconds.
	Timeout time.Duration

	// HTTPClient is the client used for probes. Default: a dedicated
	// client with the configured timeout.
	HTTPClient *http.Client
}

// FeedChecker probes the upstream earthquake feed for reachability.
// It issues a HEAD request and treats any 2xx or 3xx answer as healthy.
type FeedChecker struct {
	url    string
	client *http.Client
}

// NewFeedChecker creates a new feed health checker.
func NewFeedChecker(config FeedCheckerConfig) *FeedChecker {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}

	return &FeedChecker{
		url:    config.URL,
		client: client,
	}
}

// Name returns the name of this checker.
func (f *FeedChecker) Name() string {
	return "feed"
}

// Check probes the feed endpoint.
func (f *FeedChecker) Check(ctx context.Context) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, f.url, nil)
	if err != nil {
		return Unhealthy("invalid feed URL", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Unhealthy("feed unreachable", err).WithDetails(map[string]any{
			"url": f.url,
		})
	}
	defer resp.Body.Close()

	details := map[string]any{
		"url":    f.url,
		"status": resp.StatusCode,
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		return Healthy("feed reachable").WithDetails(details)
	}

	if resp.StatusCode >= 500 {
		return Unhealthy(
			fmt.Sprintf("feed returned %d", resp.StatusCode),
			ErrCheckFailed,
		).WithDetails(details)
	}

	return Degraded(fmt.Sprintf("feed returned %d", resp.StatusCode)).WithDetails(details)
}
