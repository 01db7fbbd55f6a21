package query

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query outcomes
const (
	outcomeSuggest         = "suggest"
	outcomeIdle            = "idle"
	outcomeTranslated      = "translated"
	outcomeUnknownLanguage = "unknown_language"
	outcomeCancelled       = "cancelled"
	outcomeError           = "error"
)

var queriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "flowlibre_queries_total",
		Help: "Total number of launcher queries by outcome",
	},
	[]string{"outcome"},
)

func recordOutcome(outcome string) {
	queriesTotal.WithLabelValues(outcome).Inc()
}
