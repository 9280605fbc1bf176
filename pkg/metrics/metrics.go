package metrics

import (
	"github.com/nergy-se/hourcontroller/pkg/hourselection"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hourcontroller"

type Metrics struct {
	Updates      *prometheus.CounterVec
	UpdateErrors *prometheus.CounterVec
	DayFailures  *prometheus.CounterVec
	Rollovers    prometheus.Counter
	CautionHours *prometheus.GaugeVec
	Allowance    prometheus.Gauge
	Peak         prometheus.Gauge
	PriceFetches *prometheus.CounterVec
}

// New creates the controller metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Hour selection updates by caller.",
		}, []string{"caller"}),
		UpdateErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "update_errors_total",
			Help:      "Hour selection updates rejected because of invalid options.",
		}, []string{"caller"}),
		DayFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "day_failures_total",
			Help:      "Days that failed classification and kept their previous hours.",
		}, []string{"day"}),
		Rollovers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rollovers_total",
			Help:      "Midnight rollovers where tomorrow's smoothed hours became today's.",
		}),
		CautionHours: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "caution_hours",
			Help:      "Number of caution hours by day.",
		}, []string{"day"}),
		Allowance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "allowance_ratio",
			Help:      "Share of the load allowed in the current hour.",
		}),
		Peak: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peak_kw",
			Help:      "Highest hourly mean load of the month.",
		}),
		PriceFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_fetches_total",
			Help:      "Price fetches by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.Updates,
		m.UpdateErrors,
		m.DayFailures,
		m.Rollovers,
		m.CautionHours,
		m.Allowance,
		m.Peak,
		m.PriceFetches,
	)
	return m
}

// ObserveHours sets the caution hour gauges from published hour objects.
func (m *Metrics) ObserveHours(today, tomorrow hourselection.HourObject) {
	m.CautionHours.WithLabelValues("today").Set(float64(len(today.CautionHours)))
	m.CautionHours.WithLabelValues("tomorrow").Set(float64(len(tomorrow.CautionHours)))
}
