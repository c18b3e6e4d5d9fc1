package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	labelsPrintedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labeldesk",
			Subsystem: "print",
			Name:      "labels_printed_total",
			Help:      "已打印的标签总数。",
		},
		[]string{"outcome"},
	)

	printCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labeldesk",
			Subsystem: "print",
			Name:      "cycles_total",
			Help:      "打印周期总数，按结束方式区分。",
		},
		[]string{"outcome"},
	)

	sequenceTierFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labeldesk",
			Subsystem: "sequence",
			Name:      "tier_failures_total",
			Help:      "单号计数器各存储层的读写失败次数。",
		},
		[]string{"tier", "op"},
	)

	sequenceRecoveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labeldesk",
			Subsystem: "sequence",
			Name:      "recoveries_total",
			Help:      "从较低存储层恢复并回填的次数。",
		},
		[]string{"tier"},
	)
)

// ObservePrintCycle 记录一次打印周期及其标签数量。
func ObservePrintCycle(outcome string, labels int) {
	printCyclesTotal.WithLabelValues(outcome).Inc()
	labelsPrintedTotal.WithLabelValues(outcome).Add(float64(labels))
}

// SequenceTierFailure 记录存储层的一次读写失败。
func SequenceTierFailure(tier, op string) {
	sequenceTierFailuresTotal.WithLabelValues(tier, op).Inc()
}

// SequenceRecovered 记录一次从 tier 恢复。
func SequenceRecovered(tier string) {
	sequenceRecoveriesTotal.WithLabelValues(tier).Inc()
}
