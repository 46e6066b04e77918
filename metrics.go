package goShopAuth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one in-process counter or histogram.
type MetricID uint16

const (
	// MetricTokenExchangeSuccess counts completed token exchanges, offline and online.
	MetricTokenExchangeSuccess MetricID = iota
	// MetricTokenExchangeFailure counts token exchanges that failed or could not be stored.
	MetricTokenExchangeFailure
	// MetricRefreshSuccess counts refreshed and stored sessions.
	MetricRefreshSuccess
	// MetricRefreshFailure counts failed refresh grants.
	MetricRefreshFailure
	// MetricSessionTokenInvalid counts session tokens rejected by the validator.
	MetricSessionTokenInvalid
	// MetricAdminAuthenticated counts successful AuthenticateAdmin calls.
	MetricAdminAuthenticated
	// MetricWebhookValid counts webhooks whose signature verified.
	MetricWebhookValid
	// MetricWebhookInvalid counts webhooks rejected for a bad signature or missing headers.
	MetricWebhookInvalid
	// MetricAppProxyValid counts app proxy requests whose signature verified.
	MetricAppProxyValid
	// MetricAppProxyInvalid counts rejected app proxy requests.
	MetricAppProxyInvalid
	// MetricHookRun counts after-auth hook executions. Coalesced and replayed callers are not counted.
	MetricHookRun
	// MetricHookFailure counts after-auth hook executions that returned an error.
	MetricHookFailure
	// MetricRecoveryBouncePage counts RecoveryRedirectToBouncePage decisions.
	MetricRecoveryBouncePage
	// MetricRecoveryExitIframe counts RecoveryRedirectToExitIframe decisions.
	MetricRecoveryExitIframe
	// MetricRecoveryInstall counts RecoveryRedirectToInstall decisions.
	MetricRecoveryInstall
	// MetricRecoveryRetryHeader counts RecoveryUnauthorizedWithRetryHeader decisions.
	MetricRecoveryRetryHeader
	// MetricRecoveryReauthURL counts RecoveryUnauthorizedWithReauthURL decisions.
	MetricRecoveryReauthURL
	// MetricRecoveryBadRequest counts RecoveryBadRequest decisions.
	MetricRecoveryBadRequest
	// MetricAuthenticateAdminLatency is the AuthenticateAdmin latency histogram.
	MetricAuthenticateAdminLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and the optional latency histogram.
//
// Metrics instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter and histogram.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics set. When cfg.Enabled is false every operation is a no-op.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled describes the enabled operation and its observable behavior.
//
// Enabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether Observe records anything.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments a counter.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records one latency sample. Only histogram IDs accept samples.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricAuthenticateAdminLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

// Value returns the current value of a counter.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricAuthenticateAdminLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricAuthenticateAdminLatency].buckets[i])
		}
		s.Histograms[MetricAuthenticateAdminLatency] = buckets
	}

	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
