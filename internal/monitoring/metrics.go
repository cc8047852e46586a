package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the application. They live on
// their own registry so tests can build isolated instances.
type Metrics struct {
	Registry *prometheus.Registry

	RowsScraped   prometheus.Counter
	RowsSkipped   prometheus.Counter
	ParseWarnings prometheus.Counter
	Inserts       *prometheus.CounterVec
	Runs          *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RowsScraped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "followups_rows_scraped_total",
			Help: "Rows parsed out of the dashboard table",
		}),
		RowsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "followups_rows_skipped_total",
			Help: "Rows dropped for being hidden or missing a location",
		}),
		ParseWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "followups_parse_warnings_total",
			Help: "Numeric cells that fell back to 0",
		}),
		Inserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "followups_inserts_total",
			Help: "Stored-procedure inserts by result",
		}, []string{"result"}), // 'ok' or 'failed'
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "followups_runs_total",
			Help: "Snapshot runs by result",
		}, []string{"result"}), // 'ok', 'failed' or 'skipped'
	}
	m.Registry.MustRegister(m.RowsScraped, m.RowsSkipped, m.ParseWarnings, m.Inserts, m.Runs)
	return m
}

func (m *Metrics) IncInserts(result string) {
	m.Inserts.WithLabelValues(result).Inc()
}

func (m *Metrics) IncRuns(result string) {
	m.Runs.WithLabelValues(result).Inc()
}
