package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/defistate/defistate-amm/ammerrors"
)

const (
	operationQuote = "quote"
	operationSize  = "size"

	outcomeOK = "ok"
)

// Metrics counts and times the engine's calculations.
type Metrics struct {
	calculations *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

// NewMetrics registers the engine's collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		calculations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "amm_calculations_total",
			Help: "Quotes and sizings computed, by protocol, operation and outcome.",
		}, []string{"protocol", "operation", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "amm_calculation_duration_seconds",
			Help:    "Time spent computing a quote or sizing.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"protocol", "operation"}),
	}
}

func (m *Metrics) observe(protocol ProtocolID, operation string, start time.Time, err error) {
	outcome := outcomeOK
	if err != nil {
		outcome = ammerrors.KindOf(err).String()
	}
	p := string(protocol)
	if p == "" {
		p = "none"
	}
	m.calculations.WithLabelValues(p, operation, outcome).Inc()
	m.duration.WithLabelValues(p, operation).Observe(time.Since(start).Seconds())
}
