package designer

import (
	"context"
	"time"

	"mq-designer/emulation"
	"mq-designer/metrics"
)

// startPoller runs the metrics polling loop for one loaded design. Every
// interval it reads a full snapshot from the engine and swaps the cached map
// only when something actually differs, so readers holding the old map never
// see a torn update and unchanged cycles cost nothing downstream.
func (s *Service) startPoller(designID string, st *designState) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	st.cancelPoll = cancel
	st.pollDone = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				next := st.engine.AllQueueMetrics()

				st.metricsMu.Lock()
				changed := !metricsEqual(st.metrics, next)
				if changed {
					st.metrics = next
				}
				st.metricsMu.Unlock()

				result := "unchanged"
				if changed {
					result = "changed"
				}
				metrics.PollCyclesTotal.WithLabelValues(designID, result).Inc()
			}
		}
	}()
}

// metricsEqual compares two metric maps field by field.
func metricsEqual(a, b map[string]emulation.QueueMetrics) bool {
	if len(a) != len(b) {
		return false
	}
	for name, am := range a {
		bm, ok := b[name]
		if !ok || am != bm {
			return false
		}
	}
	return true
}
