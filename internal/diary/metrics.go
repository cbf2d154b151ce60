package diary

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hyperengineering/platewise/internal/engine"
)

var (
	metricEntriesLogged = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "platewise",
		Name:      "entries_logged_total",
		Help:      "Diary entries logged, by combination verdict.",
	}, []string{"verdict"})
	metricConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "platewise",
		Name:      "conflicts_total",
		Help:      "Unsafe verdicts, by reason.",
	}, []string{"reason"})
	metricBPReminders = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "platewise",
		Name:      "bp_reminders_total",
		Help:      "Blood pressure reminders issued.",
	})
)

func recordVerdict(combo engine.ComboResult) {
	if combo.Safe {
		metricEntriesLogged.WithLabelValues("safe").Inc()
		return
	}
	metricEntriesLogged.WithLabelValues("unsafe").Inc()
	metricConflicts.WithLabelValues(conflictReason(combo)).Inc()
}

func conflictReason(combo engine.ComboResult) string {
	if combo.Timing != nil {
		return combo.Timing.ConflictType
	}
	return "S + P"
}
