package metrics

import (
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	RedirectCacheHits       uint64
	RedirectCacheMisses     uint64
	RedirectDurationCount   uint64
	RedirectDurationTotalNs int64
	RedirectsServed         uint64
	BotsBlocked             uint64
	BotsFlagged             uint64
	LinksCreated            uint64
	LinksUpdated            uint64
	LinksDeleted            uint64
	AttributionIngested     uint64
	AnalyticsPublished      uint64
	AnalyticsDropped        uint64
	AnalyticsProcessed      uint64
	AnalyticsFailed         uint64
	AnalyticsQueueDepth     int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	redirectCacheHits       uint64
	redirectCacheMisses     uint64
	redirectDurationCount   uint64
	redirectDurationTotalNs int64
	redirectsServed         uint64
	botsBlocked             uint64
	botsFlagged             uint64
	linksCreated            uint64
	linksUpdated            uint64
	linksDeleted            uint64
	attributionIngested     uint64
	analyticsPublished      uint64
	analyticsDropped        uint64
	analyticsProcessed      uint64
	analyticsFailed         uint64
	analyticsQueueDepth     int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		RedirectCacheHits:       atomic.LoadUint64(&m.redirectCacheHits),
		RedirectCacheMisses:     atomic.LoadUint64(&m.redirectCacheMisses),
		RedirectDurationCount:   atomic.LoadUint64(&m.redirectDurationCount),
		RedirectDurationTotalNs: atomic.LoadInt64(&m.redirectDurationTotalNs),
		RedirectsServed:         atomic.LoadUint64(&m.redirectsServed),
		BotsBlocked:             atomic.LoadUint64(&m.botsBlocked),
		BotsFlagged:             atomic.LoadUint64(&m.botsFlagged),
		LinksCreated:            atomic.LoadUint64(&m.linksCreated),
		LinksUpdated:            atomic.LoadUint64(&m.linksUpdated),
		LinksDeleted:            atomic.LoadUint64(&m.linksDeleted),
		AttributionIngested:     atomic.LoadUint64(&m.attributionIngested),
		AnalyticsPublished:      atomic.LoadUint64(&m.analyticsPublished),
		AnalyticsDropped:        atomic.LoadUint64(&m.analyticsDropped),
		AnalyticsProcessed:      atomic.LoadUint64(&m.analyticsProcessed),
		AnalyticsFailed:         atomic.LoadUint64(&m.analyticsFailed),
		AnalyticsQueueDepth:     atomic.LoadInt64(&m.analyticsQueueDepth),
	}
}

// IncRedirectCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncRedirectCacheHit() {
	atomic.AddUint64(&m.redirectCacheHits, 1)
}

// IncRedirectCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncRedirectCacheMiss() {
	atomic.AddUint64(&m.redirectCacheMisses, 1)
}

// ObserveRedirectDuration records redirect duration.
func (m *InMemoryRecorder) ObserveRedirectDuration(duration time.Duration) {
	atomic.AddUint64(&m.redirectDurationCount, 1)
	atomic.AddInt64(&m.redirectDurationTotalNs, duration.Nanoseconds())
}

// IncRedirectServed increments the served-redirect counter.
func (m *InMemoryRecorder) IncRedirectServed() {
	atomic.AddUint64(&m.redirectsServed, 1)
}

// IncBotBlocked increments the hard-block counter.
func (m *InMemoryRecorder) IncBotBlocked() {
	atomic.AddUint64(&m.botsBlocked, 1)
}

// IncBotFlagged increments the suspected-bot counter.
func (m *InMemoryRecorder) IncBotFlagged() {
	atomic.AddUint64(&m.botsFlagged, 1)
}

// IncLinkCreated increments link created counter.
func (m *InMemoryRecorder) IncLinkCreated() {
	atomic.AddUint64(&m.linksCreated, 1)
}

// IncLinkUpdated increments link updated counter.
func (m *InMemoryRecorder) IncLinkUpdated() {
	atomic.AddUint64(&m.linksUpdated, 1)
}

// IncLinkDeleted increments link deleted counter.
func (m *InMemoryRecorder) IncLinkDeleted() {
	atomic.AddUint64(&m.linksDeleted, 1)
}

// IncAttributionEventIngested increments the ingestion counter.
func (m *InMemoryRecorder) IncAttributionEventIngested(eventType string) {
	atomic.AddUint64(&m.attributionIngested, 1)
}

// IncAnalyticsEventPublished tracks publish outcomes.
func (m *InMemoryRecorder) IncAnalyticsEventPublished(status string) {
	if status == "success" {
		atomic.AddUint64(&m.analyticsPublished, 1)
		return
	}
	atomic.AddUint64(&m.analyticsDropped, 1)
}

// IncAnalyticsEventProcessed tracks worker outcomes.
func (m *InMemoryRecorder) IncAnalyticsEventProcessed(status string) {
	if status == "success" {
		atomic.AddUint64(&m.analyticsProcessed, 1)
		return
	}
	atomic.AddUint64(&m.analyticsFailed, 1)
}

// ObserveAnalyticsBatchSize is not tracked in memory.
func (m *InMemoryRecorder) ObserveAnalyticsBatchSize(size int) {}

// ObserveAnalyticsBatchDuration is not tracked in memory.
func (m *InMemoryRecorder) ObserveAnalyticsBatchDuration(duration time.Duration) {}

// SetAnalyticsQueueDepth stores the latest queue depth.
func (m *InMemoryRecorder) SetAnalyticsQueueDepth(depth int64) {
	atomic.StoreInt64(&m.analyticsQueueDepth, depth)
}

// ObserveAnalyticsIngestLag is not tracked in memory.
func (m *InMemoryRecorder) ObserveAnalyticsIngestLag(lag time.Duration) {}
