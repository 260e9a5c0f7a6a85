package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chatRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "copilot_chat_requests_total",
		Help: "Chat turns processed.",
	})
	chatErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "copilot_chat_errors_total",
		Help: "Chat turns that ended in an error response.",
	})
	stageAdvancesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "copilot_stage_advances_total",
		Help: "Pipeline stage advancements.",
	})
	planSavesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "copilot_plan_saves_total",
		Help: "Business plan save operations.",
	})
	cleanupRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "copilot_cleanup_runs_total",
		Help: "Scheduled data directory cleanup runs.",
	})
)
