package mapper

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts rendered, degraded and downloaded citations per style.
// A nil *Metrics records nothing.
type Metrics struct {
	Rendered   *prometheus.CounterVec
	Degraded   *prometheus.CounterVec
	Downloaded *prometheus.CounterVec
}

// NewMetrics creates the citation counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Rendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cslcite_citations_rendered_total",
			Help: "Citations rendered, by style.",
		}, []string{"style"}),
		Degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cslcite_citations_degraded_total",
			Help: "Citations that rendered empty because of a missing style file or a render failure.",
		}, []string{"style"}),
		Downloaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cslcite_citation_downloads_total",
			Help: "Citation downloads, by format.",
		}, []string{"format"}),
	}
	reg.MustRegister(m.Rendered, m.Degraded, m.Downloaded)
	return m
}

func (m *Metrics) rendered(styleID string) {
	if m != nil {
		m.Rendered.WithLabelValues(styleID).Inc()
	}
}

func (m *Metrics) degraded(styleID string) {
	if m != nil {
		m.Degraded.WithLabelValues(styleID).Inc()
	}
}

func (m *Metrics) downloaded(format string) {
	if m != nil {
		m.Downloaded.WithLabelValues(format).Inc()
	}
}
