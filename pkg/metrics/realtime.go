package metrics

import "github.com/prometheus/client_golang/prometheus"

// RealtimeMetrics covers the change-feed hub and the query cache.
type RealtimeMetrics struct {
	feeds       prometheus.Gauge
	subscribers prometheus.Gauge
	delivered   *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	cache       *prometheus.CounterVec
}

func NewRealtimeMetrics(reg prometheus.Registerer) *RealtimeMetrics {
	if reg == nil {
		return &RealtimeMetrics{}
	}
	m := &RealtimeMetrics{
		feeds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "feeds",
			Help:      "Distinct change-feed filters with at least one subscriber.",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "subscribers",
			Help:      "Open change-feed subscriptions.",
		}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_delivered_total",
			Help:      "Change events delivered to subscribers.",
		}, []string{"table"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "realtime",
			Name:      "events_dropped_total",
			Help:      "Change events dropped because a subscriber buffer was full.",
		}, []string{"table"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Query cache lookups by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.feeds, m.subscribers, m.delivered, m.dropped, m.cache)
	return m
}

// SetFeeds records the number of live feed entries.
func (m *RealtimeMetrics) SetFeeds(n int) {
	if m == nil || m.feeds == nil {
		return
	}
	m.feeds.Set(float64(n))
}

// SetSubscribers records the number of open subscription handles.
func (m *RealtimeMetrics) SetSubscribers(n int) {
	if m == nil || m.subscribers == nil {
		return
	}
	m.subscribers.Set(float64(n))
}

func (m *RealtimeMetrics) IncDelivered(table string) {
	if m == nil || m.delivered == nil {
		return
	}
	m.delivered.WithLabelValues(normalizeLabel(table)).Inc()
}

func (m *RealtimeMetrics) IncDropped(table string) {
	if m == nil || m.dropped == nil {
		return
	}
	m.dropped.WithLabelValues(normalizeLabel(table)).Inc()
}

// CacheHit and CacheMiss count query cache lookups.
func (m *RealtimeMetrics) CacheHit() {
	if m == nil || m.cache == nil {
		return
	}
	m.cache.WithLabelValues("hit").Inc()
}

func (m *RealtimeMetrics) CacheMiss() {
	if m == nil || m.cache == nil {
		return
	}
	m.cache.WithLabelValues("miss").Inc()
}
