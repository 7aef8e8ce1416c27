package governor

import (
	"time"

	"github.com/rs/xid"

	"github.com/trubeko66/tg-export/pkg/tmedia"
)

// MaxRetries caps how many retryable failures a single task may accumulate
// before it is reported as exhausted.
const MaxRetries = 3

// DownloadTask is one pending attachment. The governor only reads the media
// handle and destination; Attempts is bumped on every dispatch.
type DownloadTask struct {
	ID       string
	File     tmedia.File
	Dest     string
	Attempts int
}

// NewTask builds a task with a generated ID.
func NewTask(file tmedia.File, dest string) *DownloadTask {
	return &DownloadTask{
		ID:   xid.New().String(),
		File: file,
		Dest: dest,
	}
}

// Status is the terminal disposition of a task.
type Status int

const (
	// StatusSucceeded means the destination file is valid.
	StatusSucceeded Status = iota
	// StatusPermanent means the failure cannot be retried for this task.
	StatusPermanent
	// StatusExhausted means the task kept failing until the attempt cap.
	StatusExhausted
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusPermanent:
		return "failed_permanent"
	case StatusExhausted:
		return "failed_exhausted"
	default:
		return "unknown"
	}
}

// TaskOutcome is the per-task record emitted once a task reaches a terminal
// state. Err and Kind are set only for failures.
type TaskOutcome struct {
	TaskID   string
	Dest     string
	Status   Status
	Bytes    int64
	Elapsed  time.Duration
	Attempts int
	Kind     Kind
	Err      error
}
