package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	opTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "groupshare_engine",
			Name:      "operations_total",
			Help:      "Completed synchronization operations.",
		},
		[]string{"op"},
	)

	opFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "groupshare_engine",
			Name:      "operation_failures_total",
			Help:      "Synchronization operations that surfaced an error.",
		},
		[]string{"op"},
	)
)
