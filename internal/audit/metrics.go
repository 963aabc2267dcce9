package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "netfab",
	Subsystem: "audit",
	Name:      "events_total",
	Help:      "Audit events written, by category.",
}, []string{"category"})
