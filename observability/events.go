package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type eventMetrics struct {
	actions *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking committed contract events.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			actions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "contract_actions_total",
				Help:      "Count of committed contract actions segmented by action.",
			}, []string{"action"}),
		}
		prometheus.MustRegister(eventRegistry.actions)
	})
	return eventRegistry
}

// RecordAction increments the counter for a committed contract action.
func (m *eventMetrics) RecordAction(action string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(strings.ToLower(action))
	if normalized == "" {
		normalized = "unknown"
	}
	m.actions.WithLabelValues(normalized).Inc()
}
