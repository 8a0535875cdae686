package table

import "expvar"

var (
	metricGamesCreated     = expvar.NewInt("games_created_total")
	metricActionsApplied   = expvar.NewInt("actions_applied_total")
	metricActionsRejected  = expvar.NewInt("actions_rejected_total")
	metricHandsCompleted   = expvar.NewInt("hands_completed_total")
	metricVersionConflicts = expvar.NewInt("version_conflicts_total")
)
