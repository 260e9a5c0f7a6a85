package llm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var fallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "copilot_llm_fallbacks_total",
	Help: "Generations served from canned fallback templates.",
})
