package transcription

import (
	"context"
	"errors"
	"fmt"

	"github.com/devgamesan/SimpleAIChat/internal/segment"
)

// ErrClosed reports a send attempted after the dispatcher was closed.
var ErrClosed = errors.New("transcription: dispatcher is closed")

// Result is the outcome of dispatching one segment. Exactly one of Text
// and Err is meaningful.
type Result struct {
	Seq  uint64
	ID   string
	Text string
	Err  error
}

// Dispatcher submits encoded segments to the transcription service.
//
// Send queues or performs the submission for one segment; it must not be
// blocked on by the audio pipeline (the session controller calls it from
// a per-segment goroutine so the next segment accumulates while earlier
// dispatches are in flight). Outcomes, including per-segment transport
// failures, arrive on Results in submission order for ordered transports.
// Send itself returns an error only when the segment cannot be submitted
// at all.
//
// Close releases the transport after in-flight submissions have resolved
// and then closes the Results channel. It is idempotent.
type Dispatcher interface {
	Send(ctx context.Context, seg *segment.EncodedSegment) error
	Results() <-chan Result
	Close() error
}

// resultBuffer is the channel depth used by both dispatcher
// implementations; deep enough that a briefly busy consumer does not
// stall the read loop.
const resultBuffer = 64

// NewDispatcher creates the dispatcher for the configured transport mode.
func NewDispatcher(cfg Config) (Dispatcher, error) {
	switch cfg.Mode {
	case ModeWebSocket:
		return NewStream(cfg)
	case ModeHTTP:
		return NewClient(cfg)
	default:
		return nil, fmt.Errorf("unknown transport mode %q (must be %q or %q)", cfg.Mode, ModeWebSocket, ModeHTTP)
	}
}
