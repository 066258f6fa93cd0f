package app

import "github.com/prometheus/client_golang/prometheus"

var (
	// calculationsTotal counts pace calculations.
	// Labels:
	//   - outcome: "ok", "error" or the validation reason
	calculationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biblepace_planner_calculations_total",
			Help: "Total number of pace calculations by outcome",
		},
		[]string{"outcome"},
	)

	remindersPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biblepace_planner_reminder_commands_total",
			Help: "Total number of reminder commands forwarded to the worker",
		},
		[]string{"type", "status"},
	)
)

func init() {
	prometheus.MustRegister(calculationsTotal)
	prometheus.MustRegister(remindersPublished)
}
