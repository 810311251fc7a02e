package gateway

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the gateway's prometheus collectors.
type metrics struct {
	checkpoints      prometheus.Counter
	locksCreated     prometheus.Counter
	lockAcquisitions prometheus.Counter
	hashLookups      *prometheus.CounterVec
	disallowedEvents prometheus.Counter
	crashNoteDepth   prometheus.Gauge
	fatalErrors      *prometheus.CounterVec
}

func newCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "rrgate",
		Subsystem: "gateway",
		Name:      name,
		Help:      help,
	})
}

func newCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rrgate",
		Subsystem: "gateway",
		Name:      name,
		Help:      help,
	}, labels)
}

// newMetrics creates the collectors and registers them on reg, if not nil.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		checkpoints:      newCounter("checkpoints_total", "Checkpoints requested from the driver."),
		locksCreated:     newCounter("ordered_locks_created_total", "Ordered lock handles created."),
		lockAcquisitions: newCounter("ordered_lock_acquisitions_total", "Ordered lock acquisitions."),
		hashLookups:      newCounterVec("stable_hash_lookups_total", "Stable hash code lookups by result.", []string{"result"}),
		disallowedEvents: newCounter("disallowed_events_total", "Recordable events observed while disallowed."),
		crashNoteDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "rrgate",
			Subsystem: "gateway",
			Name:      "crash_note_depth",
			Help:      "Depth of the main thread's crash note stack.",
		}),
		fatalErrors: newCounterVec("fatal_errors_total", "Fatal errors by code.", []string{"code"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.checkpoints,
			m.locksCreated,
			m.lockAcquisitions,
			m.hashLookups,
			m.disallowedEvents,
			m.crashNoteDepth,
			m.fatalErrors,
		)
	}
	return m
}
