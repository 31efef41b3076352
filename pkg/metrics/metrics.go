package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Workflow counts preview state-machine activity.
type Workflow struct {
	Transitions *prometheus.CounterVec
	Captures    *prometheus.CounterVec
}

// NewWorkflow registers the workflow counters on reg. A nil reg uses the
// default registerer.
func NewWorkflow(reg prometheus.Registerer) *Workflow {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderflow",
		Subsystem: "preview",
		Name:      "transitions_total",
		Help:      "Total number of preview state transitions.",
	}, []string{"transition", "result"})
	captures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orderflow",
		Subsystem: "payment",
		Name:      "captures_total",
		Help:      "Total number of payment capture attempts.",
	}, []string{"result"})

	reg.MustRegister(transitions, captures)
	return &Workflow{Transitions: transitions, Captures: captures}
}

func Handler() http.Handler {
	return promhttp.Handler()
}
