package catalog

import "github.com/prometheus/client_golang/prometheus"

const (
	labelDirection = "direction"

	directionUp   = "up"
	directionDown = "down"
)

type Metrics struct {
	Adjustments *prometheus.CounterVec
	Subscribers prometheus.Gauge
}

func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Adjustments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_price_adjustments_total",
				Help: "Applied price adjustments",
			},
			[]string{labelDirection},
		),
		Subscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "catalog_subscribers",
				Help: "Open snapshot subscriptions",
			},
		),
	}

	reg.MustRegister(m.Adjustments, m.Subscribers)
	return m
}

func direction(delta int64) string {
	if delta < 0 {
		return directionDown
	}
	return directionUp
}
