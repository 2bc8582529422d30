package stash

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// counters are per-table operation counters in the process-global
// VictoriaMetrics registry. An embedding application that already
// exposes the registry (metrics.WritePrometheus) gets stash series for
// free; nothing here starts a server or a goroutine.
//
// Counts are best effort: an operation increments its counter when it
// executes, so work inside a transaction that later rolls back still
// counts. The series tracks attempted operations, not durable writes.
type counters struct {
	sets    *metrics.Counter
	gets    *metrics.Counter
	hits    *metrics.Counter
	misses  *metrics.Counter
	deletes *metrics.Counter
	sweeps  *metrics.Counter
}

func newCounters(table string) *counters {
	c := func(op string) *metrics.Counter {
		// GetOrCreate keeps repeated Opens of the same table sharing one
		// series instead of panicking on double registration.
		return metrics.GetOrCreateCounter(
			fmt.Sprintf(`stash_ops_total{op=%q,table=%q}`, op, table))
	}
	return &counters{
		sets:    c("set"),
		gets:    c("get"),
		hits:    c("hit"),
		misses:  c("miss"),
		deletes: c("delete"),
		sweeps:  c("sweep"),
	}
}
