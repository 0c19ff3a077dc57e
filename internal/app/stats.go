package service

import (
	"sync/atomic"
	"time"
)

type counters struct {
	saves        atomic.Int64
	conflicts    atomic.Int64
	invalid      atomic.Int64
	transactions atomic.Int64
	builds       atomic.Int64
	challenges   map[string]*atomic.Int64
}

func newCounters() *counters {
	c := &counters{challenges: make(map[string]*atomic.Int64)}
	for _, k := range []string{"ok", "not_found", "already_accepted", "already_completed", "status_changed", "invalid"} {
		c.challenges[k] = new(atomic.Int64)
	}
	return c
}

func (c *counters) challenge(kind string) {
	if n, ok := c.challenges[kind]; ok {
		n.Add(1)
	}
}

// GetStats returns service statistics.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	challenges := make(map[string]int64, len(s.stats.challenges))
	for k, n := range s.stats.challenges {
		challenges[k] = n.Load()
	}
	stats := map[string]interface{}{
		"started":      s.started,
		"store":        s.store.Backend(),
		"saves":        s.stats.saves.Load(),
		"conflicts":    s.stats.conflicts.Load(),
		"invalid":      s.stats.invalid.Load(),
		"transactions": s.stats.transactions.Load(),
		"builds":       s.stats.builds.Load(),
		"challenges":   challenges,
		"rosterLimit":  s.rosterLimit,
		"maxEntries":   s.maxEntries,
		"dedupeSize":   s.dedupeSize,
	}
	if s.started {
		stats["uptime"] = time.Since(s.startedAt).Round(time.Second).String()
		stats["activityQueueClosed"] = s.queue.IsClosed()
	}
	return stats
}
