package provision

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	provisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "netfab",
		Subsystem: "provision",
		Name:      "requests_total",
		Help:      "Provisioning requests by outcome.",
	}, []string{"outcome"})

	decommissionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "netfab",
		Subsystem: "provision",
		Name:      "decommissions_total",
		Help:      "Completed service decommissions.",
	})

	activeServicesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "netfab",
		Subsystem: "provision",
		Name:      "active_services",
		Help:      "Services currently holding capacity.",
	})
)
