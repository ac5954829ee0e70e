package handler

import (
	"fmt"
	"net/http"

	"github.com/stackfluence/stackfluence/internal/metrics"
)

// MetricsHandler exposes in-memory metrics.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

// Metrics returns metrics in Prometheus exposition format.
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	snap := h.snapshotter.Snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	writeMetric(w, "stackfluence_redirect_cache_hits_total %d\n", snap.RedirectCacheHits)
	writeMetric(w, "stackfluence_redirect_cache_misses_total %d\n", snap.RedirectCacheMisses)
	writeMetric(w, "stackfluence_redirect_duration_seconds_count %d\n", snap.RedirectDurationCount)
	writeMetric(w, "stackfluence_redirect_duration_seconds_sum %.6f\n", float64(snap.RedirectDurationTotalNs)/1e9)
	writeMetric(w, "stackfluence_redirects_served_total %d\n", snap.RedirectsServed)

	writeMetric(w, "stackfluence_bots_blocked_total %d\n", snap.BotsBlocked)
	writeMetric(w, "stackfluence_bots_flagged_total %d\n", snap.BotsFlagged)

	writeMetric(w, "stackfluence_links_created_total %d\n", snap.LinksCreated)
	writeMetric(w, "stackfluence_links_updated_total %d\n", snap.LinksUpdated)
	writeMetric(w, "stackfluence_links_deleted_total %d\n", snap.LinksDeleted)

	writeMetric(w, "stackfluence_attribution_events_ingested_total %d\n", snap.AttributionIngested)

	writeMetric(w, "stackfluence_analytics_events_published_total{status=\"success\"} %d\n", snap.AnalyticsPublished)
	writeMetric(w, "stackfluence_analytics_events_published_total{status=\"dropped\"} %d\n", snap.AnalyticsDropped)

	writeMetric(w, "stackfluence_analytics_events_processed_total{status=\"success\"} %d\n", snap.AnalyticsProcessed)
	writeMetric(w, "stackfluence_analytics_events_processed_total{status=\"failed\"} %d\n", snap.AnalyticsFailed)

	writeMetric(w, "stackfluence_analytics_queue_depth %d\n", snap.AnalyticsQueueDepth)
}

func writeMetric(w http.ResponseWriter, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
