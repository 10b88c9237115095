// Package coremetrics instruments corepit's primitives with Prometheus
// counters, registered against the default registerer. None of the
// counters sit in a hot retry loop — [intrusive.TransferStack.Push]'s CAS
// loop is deliberately left uninstrumented.
package coremetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stackTakeAlls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corepit_stack_take_all_total",
		Help: "Number of TransferStack.TakeAll calls, by stack name.",
	}, []string{"stack"})

	stackElementsDrained = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corepit_stack_elements_drained_total",
		Help: "Number of elements observed leaving a TransferStack via TakeAll, by stack name.",
	}, []string{"stack"})

	waitRegisterOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corepit_waitcell_register_total",
		Help: "WaitCell.Register outcomes, by result (ok, busy, closed).",
	}, []string{"outcome"})

	waitNotifyOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corepit_waitcell_notify_total",
		Help: "WaitCell.Notify outcomes, by whether a waiter was woken.",
	}, []string{"woke"})

	pitInterrupts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "corepit_pit_interrupts_total",
		Help: "Number of PIT channel 0 interrupts handled.",
	})

	pitErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corepit_pit_errors_total",
		Help: "PIT driver errors, by kind.",
	}, []string{"kind"})
)

// ObserveStackTakeAll records a TakeAll call on the named stack that
// drained n elements.
func ObserveStackTakeAll(stack string, n int) {
	stackTakeAlls.WithLabelValues(stack).Inc()
	if n > 0 {
		stackElementsDrained.WithLabelValues(stack).Add(float64(n))
	}
}

// ObserveWaitRegister records the outcome of a WaitCell.Register call.
// outcome is one of "ok", "busy", or "closed".
func ObserveWaitRegister(outcome string) {
	waitRegisterOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveWaitNotify records the outcome of a WaitCell.Notify call.
func ObserveWaitNotify(wokeWaiter bool) {
	label := "false"
	if wokeWaiter {
		label = "true"
	}
	waitNotifyOutcomes.WithLabelValues(label).Inc()
}

// ObservePitInterrupt records a handled PIT channel 0 interrupt.
func ObservePitInterrupt() {
	pitInterrupts.Inc()
}

// ObservePitError records a PIT driver error of the given kind (e.g.
// "already_running", "sleep_in_progress", "invalid_duration").
func ObservePitError(kind string) {
	pitErrors.WithLabelValues(kind).Inc()
}
