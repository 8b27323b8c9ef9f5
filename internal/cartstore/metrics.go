package cartstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	restoreOK          = "ok"
	restoreEmpty       = "empty"
	restoreMalformed   = "malformed"
	restoreUnavailable = "unavailable"
)

var (
	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Cart mutations that changed state, by operation",
		},
		[]string{"op"},
	)

	restoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_restores_total",
			Help: "Cart restores from storage, by outcome",
		},
		[]string{"outcome"},
	)

	persistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_cart_persist_failures_total",
			Help: "Cart snapshot writes that failed and were skipped",
		},
	)
)
