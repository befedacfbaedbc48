package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, class := range []string{"immutable", "public"} {
		for _, result := range []string{"hit", "miss"} {
			StaticRequestsTotal.WithLabelValues(class, result)
		}
	}

	for _, status := range []string{"success", "error"} {
		AssetBuildsTotal.WithLabelValues(status)
	}

	for _, outcome := range []string{"saved", "destroyed", "error", "late"} {
		SessionCommitsTotal.WithLabelValues(outcome)
	}

	for _, op := range []string{"create", "write", "remove", "rename"} {
		WatcherEventsTotal.WithLabelValues(op)
	}
}
