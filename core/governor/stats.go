package governor

import (
	"sync"
	"time"
)

// Session accumulates counters for a single Run. It is folded into the
// long-lived collector exactly once at the run's completion point, never from
// inside a retried attempt, so totals cannot be double-counted.
type Session struct {
	mu         sync.Mutex
	attempts   uint64
	successes  uint64
	floodWaits uint64
	bytes      int64
	folded     bool
}

func (s *Session) recordAttempt() {
	s.mu.Lock()
	s.attempts++
	s.mu.Unlock()
}

func (s *Session) recordSuccess(bytes int64) {
	s.mu.Lock()
	s.successes++
	s.bytes += bytes
	s.mu.Unlock()
}

func (s *Session) recordFloodWait() {
	s.mu.Lock()
	s.floodWaits++
	s.mu.Unlock()
}

// StatsCollector keeps the long-lived monotonic counters for a downloader
// instance.
type StatsCollector struct {
	mu         sync.Mutex
	start      time.Time
	attempts   uint64
	successes  uint64
	floodWaits uint64
	bytes      int64

	now func() time.Time
}

// NewStatsCollector starts the wall-clock baseline at construction.
func NewStatsCollector() *StatsCollector {
	c := &StatsCollector{now: time.Now}
	c.start = c.now()
	return c
}

// Fold merges a session into the totals. Folding the same session again is a
// no-op.
func (c *StatsCollector) Fold(s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.folded {
		return
	}
	s.folded = true

	c.mu.Lock()
	c.attempts += s.attempts
	c.successes += s.successes
	c.floodWaits += s.floodWaits
	c.bytes += s.bytes
	c.mu.Unlock()
}

// Stats is a derived, read-only view over the counters plus the governor's
// current adaptive parameters.
type Stats struct {
	TotalAttempts       uint64
	SuccessfulDownloads uint64
	FloodWaits          uint64
	Bytes               int64
	SuccessRate         float64
	FloodWaitRate       float64
	DownloadsPerMinute  float64
	CurrentWorkers      int
	AdaptiveDelay       time.Duration
	ConsecutiveSuccess  int
}

// Snapshot recomputes the derived view, including any sessions still in
// flight. Both rates guard against zero attempts.
func (c *StatsCollector) Snapshot(state State, live ...*Session) Stats {
	c.mu.Lock()
	stats := Stats{
		TotalAttempts:       c.attempts,
		SuccessfulDownloads: c.successes,
		FloodWaits:          c.floodWaits,
		Bytes:               c.bytes,
	}
	start := c.start
	c.mu.Unlock()

	for _, s := range live {
		s.mu.Lock()
		if !s.folded {
			stats.TotalAttempts += s.attempts
			stats.SuccessfulDownloads += s.successes
			stats.FloodWaits += s.floodWaits
			stats.Bytes += s.bytes
		}
		s.mu.Unlock()
	}

	if stats.TotalAttempts > 0 {
		stats.SuccessRate = float64(stats.SuccessfulDownloads) / float64(stats.TotalAttempts) * 100
		stats.FloodWaitRate = float64(stats.FloodWaits) / float64(stats.TotalAttempts) * 100
	}
	if minutes := c.now().Sub(start).Minutes(); minutes > 0 {
		stats.DownloadsPerMinute = float64(stats.SuccessfulDownloads) / minutes
	}

	stats.CurrentWorkers = state.Workers
	stats.AdaptiveDelay = state.Delay
	stats.ConsecutiveSuccess = state.Consecutive
	return stats
}
