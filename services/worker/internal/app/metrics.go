package app

import "github.com/prometheus/client_golang/prometheus"

var (
	// fetchTotal counts intercepted asset requests.
	// Labels:
	//   - result: "hit", "miss", "passthrough" or "error"
	fetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biblepace_worker_fetch_total",
			Help: "Total number of intercepted asset requests by cache result",
		},
		[]string{"result"},
	)

	// revalidateTotal counts background network legs.
	// Labels:
	//   - outcome: "stored", "skipped", "superseded" or "failed"
	revalidateTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biblepace_worker_revalidate_total",
			Help: "Total number of network revalidations by outcome",
		},
		[]string{"outcome"},
	)

	installDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "biblepace_worker_install_duration_seconds",
			Help:    "Duration of cache install attempts in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		},
		[]string{"outcome"},
	)

	activateTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biblepace_worker_activate_total",
			Help: "Total number of cache activation attempts by outcome",
		},
		[]string{"outcome"},
	)

	lifecycleState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "biblepace_worker_lifecycle_state",
		Help: "Current cache lifecycle state (0 idle, 1 installing, 2 activating, 3 active, 4 redundant)",
	})

	remindersFired = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "biblepace_worker_reminders_fired_total",
		Help: "Total number of reminder notifications emitted",
	})

	reminderArmed = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "biblepace_worker_reminder_armed",
		Help: "1 when a daily reminder is armed, 0 otherwise",
	})
)

func init() {
	prometheus.MustRegister(fetchTotal)
	prometheus.MustRegister(revalidateTotal)
	prometheus.MustRegister(installDuration)
	prometheus.MustRegister(activateTotal)
	prometheus.MustRegister(lifecycleState)
	prometheus.MustRegister(remindersFired)
	prometheus.MustRegister(reminderArmed)
}
