package governor

import (
	"strings"
	"time"

	"github.com/gotd/td/tgerr"
)

// Kind buckets a raised fetch failure for retry handling.
type Kind int

const (
	KindNone Kind = iota
	// KindFloodWait is a server-imposed cool-down carrying a mandatory wait.
	KindFloodWait
	// KindNetwork is a transient transport failure.
	KindNetwork
	// KindPermission is unrecoverable for the task, no point retrying.
	KindPermission
	// KindUnknown covers everything else; retried up to the attempt cap.
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindFloodWait:
		return "flood_wait"
	case KindNetwork:
		return "network"
	case KindPermission:
		return "permission"
	case KindUnknown:
		return "unknown"
	default:
		return "none"
	}
}

// Classified is the verdict for one failure. Wait is set only for flood waits.
type Classified struct {
	Kind Kind
	Wait time.Duration
	Err  error
}

// Classify maps a raised fetch error to a retry bucket. It never fails: an
// unrecognized error falls through to KindUnknown.
func Classify(err error) Classified {
	if err == nil {
		return Classified{Kind: KindNone}
	}
	if wait, ok := tgerr.AsFloodWait(err); ok {
		return Classified{Kind: KindFloodWait, Wait: wait, Err: err}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection"), strings.Contains(msg, "network"):
		return Classified{Kind: KindNetwork, Err: err}
	case strings.Contains(msg, "permission"), strings.Contains(msg, "access"):
		return Classified{Kind: KindPermission, Err: err}
	default:
		return Classified{Kind: KindUnknown, Err: err}
	}
}
