package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"go-jobsearch-agent/internal/models"
)

// Metrics counts search sessions and what they produced.
type Metrics struct {
	SessionsStarted  *prometheus.CounterVec
	SessionsFinished *prometheus.CounterVec
	RecordsFound     *prometheus.CounterVec
	ActiveSessions   prometheus.Gauge
}

// NewMetrics registers the search metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SessionsStarted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jobsearch_sessions_started_total",
			Help: "Search sessions started, by selector strategy",
		}, []string{"strategy"}),
		SessionsFinished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jobsearch_sessions_finished_total",
			Help: "Search sessions finished, by strategy and outcome (complete, error, aborted)",
		}, []string{"strategy", "outcome"}),
		RecordsFound: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jobsearch_records_found_total",
			Help: "Job records streamed to clients",
		}, []string{"strategy"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "jobsearch_active_sessions",
			Help: "Search sessions currently streaming",
		}),
	}
}

func (m *Metrics) observe(strategy string, ev models.Event) {
	switch ev.Type {
	case models.EventRecordFound:
		m.RecordsFound.WithLabelValues(strategy).Inc()
	case models.EventComplete:
		m.SessionsFinished.WithLabelValues(strategy, "complete").Inc()
	case models.EventError:
		m.SessionsFinished.WithLabelValues(strategy, "error").Inc()
	}
}
