// Package governor implements the adaptive concurrent download governor: it
// decides how many fetches run at once, how long to wait between dispatches,
// how to react to flood waits and how to classify and retry failures.
package governor

import (
	"context"
	"iter"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/trubeko66/tg-export/pkg/tmedia"
)

// Fetcher is the injected fetch primitive. It writes the attachment to dest
// and reports the bytes written; its internal behavior is opaque to the
// governor.
type Fetcher interface {
	Fetch(ctx context.Context, file tmedia.File, dest string) (int64, error)
}

// Scheduler drives batches of download tasks through a bounded concurrent
// stage, one batch at a time. The batch barrier is the point where the
// adaptive parameters are recomputed from complete feedback.
type Scheduler struct {
	gov     *RateGovernor
	stats   *StatsCollector
	fetcher Fetcher
	logger  *log.Logger

	mu      sync.Mutex
	session *Session
}

// NewScheduler validates cfg and wires the governor state.
func NewScheduler(cfg Config, fetcher Fetcher, logger *log.Logger) (*Scheduler, error) {
	gov, err := NewRateGovernor(cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewWithOptions(os.Stdout, log.Options{Level: log.InfoLevel})
	}
	return &Scheduler{
		gov:     gov,
		stats:   NewStatsCollector(),
		fetcher: fetcher,
		logger:  logger.WithPrefix("governor"),
	}, nil
}

// Run consumes the lazy task sequence and returns the stream of terminal
// outcomes. The channel is closed when the sequence is exhausted or ctx is
// cancelled; cancelled in-flight tasks are dropped without an outcome.
func (s *Scheduler) Run(ctx context.Context, tasks iter.Seq[*DownloadTask]) <-chan TaskOutcome {
	out := make(chan TaskOutcome)
	go func() {
		defer close(out)

		next, stop := iter.Pull(tasks)
		defer stop()
		queue := newBatcher(next)

		sess := &Session{}
		s.setSession(sess)
		defer func() {
			s.stats.Fold(sess)
			s.setSession(nil)
			s.logSummary()
		}()

		batchNum := 0
		for ctx.Err() == nil {
			batch := queue.Next(s.gov.Workers())
			if batch == nil {
				break
			}
			batchNum++
			s.logger.Debugf("Batch %d: %d task(s), %d worker(s), delay %s",
				batchNum, len(batch), s.gov.Workers(), s.gov.State().Delay)
			s.runBatch(ctx, batch, queue, sess, out)
		}
	}()
	return out
}

// Stats returns the point-in-time snapshot, including the active session.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()
	if sess != nil {
		return s.stats.Snapshot(s.gov.State(), sess)
	}
	return s.stats.Snapshot(s.gov.State())
}

type result struct {
	task     *DownloadTask
	bytes    int64
	elapsed  time.Duration
	cls      Classified
	canceled bool
}

// runBatch dispatches the batch through a bounded worker stage and blocks
// until every task is terminal or re-queued. Governor mutations happen only
// in the collect loop below, a single goroutine, so the two adjustment rules
// are serialized relative to each other.
func (s *Scheduler) runBatch(ctx context.Context, batch []*DownloadTask, queue *batcher, sess *Session, out chan<- TaskOutcome) {
	results := make(chan result)
	collected := make(chan struct{})

	go func() {
		defer close(collected)
		for r := range results {
			s.collect(ctx, r, queue, sess, out)
		}
	}()

	g := new(errgroup.Group)
	g.SetLimit(s.gov.Workers())
	for _, task := range batch {
		g.Go(func() error {
			s.attempt(ctx, task, results)
			return nil
		})
	}
	_ = g.Wait()
	close(results)
	<-collected
}

// attempt runs one dispatch of one task: governed delay, fetch, report, and
// the post-failure backoff scoped to this task alone.
func (s *Scheduler) attempt(ctx context.Context, task *DownloadTask, results chan<- result) {
	if err := sleepCtx(ctx, s.gov.NextDelay()); err != nil {
		results <- result{task: task, canceled: true}
		return
	}

	task.Attempts++
	start := time.Now()
	n, err := s.fetcher.Fetch(ctx, task.File, task.Dest)
	elapsed := time.Since(start)

	if ctx.Err() != nil {
		results <- result{task: task, canceled: true}
		return
	}

	cls := Classify(err)
	results <- result{task: task, bytes: n, elapsed: elapsed, cls: cls}

	switch cls.Kind {
	case KindFloodWait:
		s.logger.Warnf("⏳ Flood wait %s on %s (attempt %d)", cls.Wait, task.File.Name(), task.Attempts)
		_ = sleepCtx(ctx, cls.Wait)
	case KindNetwork:
		backoff := networkBackoff()
		s.logger.Warnf("Network error on %s, backing off %s: %v", task.File.Name(), backoff, cls.Err)
		_ = sleepCtx(ctx, backoff)
	}
}

// collect is the single writer over governor state and session counters.
func (s *Scheduler) collect(ctx context.Context, r result, queue *batcher, sess *Session, out chan<- TaskOutcome) {
	if r.canceled {
		return
	}
	sess.recordAttempt()

	switch r.cls.Kind {
	case KindNone:
		s.gov.OnSuccess()
		sess.recordSuccess(r.bytes)
		s.emit(ctx, out, TaskOutcome{
			TaskID:   r.task.ID,
			Dest:     r.task.Dest,
			Status:   StatusSucceeded,
			Bytes:    r.bytes,
			Elapsed:  r.elapsed,
			Attempts: r.task.Attempts,
		})
	case KindFloodWait:
		s.gov.OnThrottle(r.cls.Wait)
		sess.recordFloodWait()
		s.retryOrExhaust(ctx, r, queue, out)
	case KindPermission:
		s.gov.OnFailure()
		s.logger.Errorf("❌ Permanent failure on %s: %v", r.task.File.Name(), r.cls.Err)
		s.emit(ctx, out, TaskOutcome{
			TaskID:   r.task.ID,
			Dest:     r.task.Dest,
			Status:   StatusPermanent,
			Elapsed:  r.elapsed,
			Attempts: r.task.Attempts,
			Kind:     r.cls.Kind,
			Err:      r.cls.Err,
		})
	default:
		s.gov.OnFailure()
		s.retryOrExhaust(ctx, r, queue, out)
	}
}

func (s *Scheduler) retryOrExhaust(ctx context.Context, r result, queue *batcher, out chan<- TaskOutcome) {
	if r.task.Attempts < MaxRetries {
		queue.Requeue(r.task)
		return
	}
	s.logger.Errorf("❌ Task exhausted after %d attempts: %s (%v)", r.task.Attempts, r.task.File.Name(), r.cls.Err)
	s.emit(ctx, out, TaskOutcome{
		TaskID:   r.task.ID,
		Dest:     r.task.Dest,
		Status:   StatusExhausted,
		Elapsed:  r.elapsed,
		Attempts: r.task.Attempts,
		Kind:     r.cls.Kind,
		Err:      r.cls.Err,
	})
}

func (s *Scheduler) emit(ctx context.Context, out chan<- TaskOutcome, outcome TaskOutcome) {
	select {
	case out <- outcome:
	case <-ctx.Done():
	}
}

func (s *Scheduler) setSession(sess *Session) {
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
}

func (s *Scheduler) logSummary() {
	stats := s.Stats()
	if stats.TotalAttempts == 0 {
		return
	}
	s.logger.Infof("✅ Run complete: %.1f%% success rate, %d flood wait(s), %.1f files/min",
		stats.SuccessRate, stats.FloodWaits, stats.DownloadsPerMinute)
}

func networkBackoff() time.Duration {
	return time.Duration((3 + rand.Float64()*5) * float64(time.Second))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
