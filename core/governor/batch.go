package governor

import "sync"

// minBatchSize keeps batches useful even at concurrency 1.
const minBatchSize = 5

// batcher slices the pending queue into batches sized against the current
// concurrency. Tasks keep submission order: re-queued retries join the tail,
// fresh tasks are pulled lazily from the source only when a batch needs them.
type batcher struct {
	mu      sync.Mutex
	pending []*DownloadTask
	pull    func() (*DownloadTask, bool)
	drained bool
}

func newBatcher(pull func() (*DownloadTask, bool)) *batcher {
	return &batcher{pull: pull}
}

// Next forms the next batch, max(5, workers*2) tasks, FIFO and stable.
// Returns nil when both the queue and the source are exhausted.
func (b *batcher) Next(workers int) []*DownloadTask {
	size := workers * 2
	if size < minBatchSize {
		size = minBatchSize
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	batch := make([]*DownloadTask, 0, size)
	for len(batch) < size && len(b.pending) > 0 {
		batch = append(batch, b.pending[0])
		b.pending = b.pending[1:]
	}
	for len(batch) < size && !b.drained {
		task, ok := b.pull()
		if !ok {
			b.drained = true
			break
		}
		batch = append(batch, task)
	}
	if len(batch) == 0 {
		return nil
	}
	return batch
}

// Requeue puts a retryable task at the tail of the pending queue.
func (b *batcher) Requeue(task *DownloadTask) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, task)
}
