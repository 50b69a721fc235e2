package capture

import (
	"context"
	"errors"

	"github.com/devgamesan/SimpleAIChat/internal/audio"
)

// ErrPermissionDenied reports that the capture source exists but access
// to it was refused. It is fatal to session start and must be
// distinguishable from mid-session device errors.
var ErrPermissionDenied = errors.New("capture: permission denied")

// Device is a source of time-ordered audio frames.
//
// Start acquires the source and returns a channel of frames. The channel
// is closed when the source ends, Stop is called, or the context is
// cancelled; after it closes, Err reports the terminal failure, or nil
// for a clean stop. Start may be called once per device instance.
type Device interface {
	Start(ctx context.Context) (<-chan audio.Frame, error)
	Stop() error
	Err() error

	SampleRate() int
	FrameSize() int
}
