package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DomainMetrics counts the business events of the calculator.
type DomainMetrics struct {
	QuotesTotal    *prometheus.CounterVec
	QuoteAmount    *prometheus.HistogramVec
	ImportsTotal   *prometheus.CounterVec
	SettingsWrites *prometheus.CounterVec
	LoginAttempts  *prometheus.CounterVec
	CacheFallbacks prometheus.Counter
	StreamClients  prometheus.Gauge
}

// NewDomainMetrics registers the calculator collectors on reg.
func NewDomainMetrics(namespace string, reg prometheus.Registerer) *DomainMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &DomainMetrics{
		QuotesTotal: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Quotes calculated by format and branding tier.",
		}, []string{"format", "branding"})),
		QuoteAmount: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quote_total_usd",
			Help:      "Distribution of quote totals in the base currency.",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 8),
		}, []string{"branding"})),
		ImportsTotal: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "curriculum_import_total",
			Help:      "Curriculum imports by source kind and outcome.",
		}, []string{"kind", "result"})),
		SettingsWrites: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settings_writes_total",
			Help:      "Settings blob writes by setting type and operation.",
		}, []string{"type", "op"})),
		LoginAttempts: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Admin login attempts by outcome.",
		}, []string{"result"})),
		CacheFallbacks: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settings_cache_fallback_total",
			Help:      "Settings reads served from cache after a store failure.",
		})),
		StreamClients: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "settings_stream_clients",
			Help:      "Connected settings change stream clients.",
		})),
	}
}

// The helpers below accept a nil receiver so callers can run without metrics.

func (m *DomainMetrics) Quote(format, branding string, total float64) {
	if m == nil {
		return
	}
	m.QuotesTotal.WithLabelValues(format, branding).Inc()
	m.QuoteAmount.WithLabelValues(branding).Observe(total)
}

func (m *DomainMetrics) Import(kind, result string) {
	if m == nil {
		return
	}
	m.ImportsTotal.WithLabelValues(kind, result).Inc()
}

func (m *DomainMetrics) SettingsWrite(settingType, op string) {
	if m == nil {
		return
	}
	m.SettingsWrites.WithLabelValues(settingType, op).Inc()
}

func (m *DomainMetrics) Login(result string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(result).Inc()
}

func (m *DomainMetrics) CacheFallback() {
	if m == nil {
		return
	}
	m.CacheFallbacks.Inc()
}

func (m *DomainMetrics) StreamConnected(delta float64) {
	if m == nil {
		return
	}
	m.StreamClients.Add(delta)
}
