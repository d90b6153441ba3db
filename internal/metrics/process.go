// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	processRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vmerge_process_runs_total",
		Help: "External tool invocations by outcome",
	}, []string{"tool", "outcome"}) // outcome=ok|exit_nonzero|timeout|canceled|start_failed

	procTerminate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vmerge_proc_terminate_total",
		Help: "Signals sent to external process groups",
	}, []string{"signal", "outcome"}) // outcome=sent|gone|error

	procWait = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vmerge_proc_wait_total",
		Help: "Exit observations of terminated process groups",
	}, []string{"outcome"})
)

// IncProcessRun records one external tool run.
func IncProcessRun(tool, outcome string) {
	processRuns.WithLabelValues(tool, outcome).Inc()
}

// IncProcTerminate records a signal sent to a process group.
func IncProcTerminate(signal, outcome string) {
	procTerminate.WithLabelValues(signal, outcome).Inc()
}

// IncProcWait records how a terminated process group exited.
func IncProcWait(outcome string) {
	procWait.WithLabelValues(outcome).Inc()
}
