package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for the triage and streaming flows.
type ChatMetrics struct {
	turnsTotal       *prometheus.CounterVec
	providerAttempts *prometheus.CounterVec
	streamDuration   *prometheus.HistogramVec
	archiveTotal     *prometheus.CounterVec
	screeningsTotal  *prometheus.CounterVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kokoro",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Total chat turns by assessed risk level",
		}, []string{"risk_level", "mode"}),
		providerAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kokoro",
			Subsystem: "chat",
			Name:      "provider_attempts_total",
			Help:      "Generative provider attempts by outcome",
		}, []string{"provider", "outcome"}),
		streamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "kokoro",
			Subsystem: "chat",
			Name:      "stream_duration_seconds",
			Help:      "Wall time of one streamed turn",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		archiveTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kokoro",
			Subsystem: "memory",
			Name:      "archive_total",
			Help:      "Conversation archival attempts by status",
		}, []string{"status"}),
		screeningsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "kokoro",
			Subsystem: "screening",
			Name:      "submissions_total",
			Help:      "EPDS submissions by resulting risk level",
		}, []string{"risk_level"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.providerAttempts, m.streamDuration, m.archiveTotal, m.screeningsTotal)
	return m
}

func (m *ChatMetrics) ObserveTurn(riskLevel, mode string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(riskLevel, mode).Inc()
}

func (m *ChatMetrics) ObserveProviderAttempt(provider, outcome string) {
	if m == nil {
		return
	}
	m.providerAttempts.WithLabelValues(provider, outcome).Inc()
}

func (m *ChatMetrics) ObserveStreamDuration(provider string, seconds float64) {
	if m == nil {
		return
	}
	m.streamDuration.WithLabelValues(provider).Observe(seconds)
}

func (m *ChatMetrics) ObserveArchive(status string) {
	if m == nil {
		return
	}
	m.archiveTotal.WithLabelValues(status).Inc()
}

func (m *ChatMetrics) ObserveScreening(riskLevel string) {
	if m == nil {
		return
	}
	m.screeningsTotal.WithLabelValues(riskLevel).Inc()
}
