package songbook

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts pipeline activity. A nil *Metrics records nothing.
type Metrics struct {
	reg *prometheus.Registry

	SongsParsed  prometheus.Counter
	ParseErrors  prometheus.Counter
	SongsWritten prometheus.Counter
	WatchEvents  *prometheus.CounterVec
	RunDuration  prometheus.Histogram
}

// NewMetrics registers the pipeline metrics with reg. A nil reg gets a
// fresh registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		SongsParsed: f.NewCounter(prometheus.CounterOpts{
			Name: "songbook_songs_parsed_total",
			Help: "Total number of songs parsed from inputs",
		}),
		ParseErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "songbook_parse_errors_total",
			Help: "Total number of inputs that failed to parse",
		}),
		SongsWritten: f.NewCounter(prometheus.CounterOpts{
			Name: "songbook_songs_written_total",
			Help: "Total number of songs written",
		}),
		WatchEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "songbook_watch_events_total",
			Help: "Total number of watched file changes by operation",
		}, []string{"op"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "songbook_run_duration_seconds",
			Help:    "Duration of conversion runs",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
}

// Handler serves the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) parseError() {
	if m != nil {
		m.ParseErrors.Inc()
	}
}

func (m *Metrics) songsParsed(n int) {
	if m != nil {
		m.SongsParsed.Add(float64(n))
	}
}

func (m *Metrics) songsWritten(n int) {
	if m != nil {
		m.SongsWritten.Add(float64(n))
	}
}

func (m *Metrics) observeRun(d time.Duration) {
	if m != nil {
		m.RunDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) watchEvent(op string) {
	if m != nil {
		m.WatchEvents.WithLabelValues(op).Inc()
	}
}
