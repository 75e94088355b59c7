package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mq_designer_validations_total",
			Help: "Total number of validation checks by subject and outcome.",
		},
		[]string{"subject", "outcome"},
	)

	MutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mq_designer_mutations_total",
			Help: "Total number of applied topology mutations by entity and action.",
		},
		[]string{"entity", "action"},
	)

	ActiveSimulations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "mq_designer_active_simulations",
			Help: "Current number of running simulation engines.",
		},
	)

	SimulatedMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mq_designer_simulated_messages_total",
			Help: "Total number of messages published into the simulated broker by design.",
		},
		[]string{"design_id"},
	)

	PollCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mq_designer_poll_cycles_total",
			Help: "Total number of metrics poll cycles by design and result.",
		},
		[]string{"design_id", "result"},
	)

	GeneratorRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mq_designer_generator_runs_total",
			Help: "Total number of traffic generator runs by result.",
		},
		[]string{"generator_id", "result"},
	)

	ProvisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mq_designer_provisions_total",
			Help: "Total number of live broker provisioning attempts by result.",
		},
		[]string{"result"},
	)
)

func Register() {

}
