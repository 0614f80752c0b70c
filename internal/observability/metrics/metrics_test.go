package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestChatMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)
	m.ObserveTurn("critical", "stream")
	m.ObserveProviderAttempt("gemini", "failure")
	m.ObserveProviderAttempt("openai", "success")
	m.ObserveStreamDuration("openai", 1.2)
	m.ObserveArchive("ok")
	m.ObserveScreening("orange")
}

func TestChatMetricsNilSafe(t *testing.T) {
	var m *ChatMetrics
	m.ObserveTurn("none", "message")
	m.ObserveProviderAttempt("gemini", "success")
	m.ObserveStreamDuration("local", 0.1)
	m.ObserveArchive("failed")
	m.ObserveScreening("green")
}
