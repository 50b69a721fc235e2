package segment

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/devgamesan/SimpleAIChat/internal/audio"
)

// Segment is a contiguous run of frames collected between two silence
// boundaries, forwarded as one transcription unit.
type Segment struct {
	// Seq increases by one per forwarded segment and correlates dispatch
	// responses when the transport is asynchronous. Discarded segments do
	// not consume sequence numbers.
	Seq uint64
	// ID is a unique request identifier for logging and transport metadata.
	ID string

	Frames      []audio.Frame
	SampleCount int
	HasVoice    bool
	// Container holds the concatenated opaque blob bytes when the capture
	// subsystem produces container-encoded chunks.
	Container []byte

	Start time.Time
	End   time.Time
}

// Duration returns the segment length in audio time at the given rate.
func (s *Segment) Duration(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(s.SampleCount) * time.Second / time.Duration(sampleRate)
}

// DiscardReason explains why a flushed segment was dropped instead of
// being forwarded for encoding.
type DiscardReason int

const (
	// DiscardNone means the segment was forwarded.
	DiscardNone DiscardReason = iota
	// DiscardNoVoice means no frame in the segment reached the loudness
	// threshold.
	DiscardNoVoice
	// DiscardTooShort means the segment had voice but fewer frames than
	// the configured minimum.
	DiscardTooShort
)

// String returns a user-displayable reason.
func (r DiscardReason) String() string {
	switch r {
	case DiscardNoVoice:
		return "no voice detected"
	case DiscardTooShort:
		return "too short"
	default:
		return ""
	}
}

// Accumulator buffers frames into the currently open segment. Exactly one
// segment buffer is open at any time during an active session: Flush
// finalizes the current buffer and immediately opens a fresh one.
//
// An accumulator is owned by a single session goroutine and is not safe
// for concurrent use.
type Accumulator struct {
	minFrames int

	frames      []audio.Frame
	sampleCount int
	hasVoice    bool
	container   []byte
	start       time.Time

	nextSeq uint64

	// statistics
	flushed   uint64
	discarded uint64
}

// AccumulatorStats is a snapshot of accumulator counters for monitoring.
type AccumulatorStats struct {
	OpenFrames        int    `json:"open_frames"`
	OpenSamples       int    `json:"open_samples"`
	OpenHasVoice      bool   `json:"open_has_voice"`
	SegmentsFlushed   uint64 `json:"segments_flushed"`
	SegmentsDiscarded uint64 `json:"segments_discarded"`
}

// NewAccumulator creates an accumulator that discards segments shorter
// than minFrames frames.
func NewAccumulator(minFrames int) (*Accumulator, error) {
	if minFrames < 1 {
		return nil, fmt.Errorf("minimum segment frames must be at least 1, got %d", minFrames)
	}
	return &Accumulator{minFrames: minFrames}, nil
}

// Push appends a frame to the open segment. voiced marks whether the
// frame's loudness reached the threshold; the first voiced frame flags
// the whole segment as voice-bearing.
func (a *Accumulator) Push(frame audio.Frame, voiced bool, now time.Time) {
	if len(a.frames) == 0 {
		a.start = now
	}
	a.frames = append(a.frames, frame)
	a.sampleCount += frame.Len()
	if len(frame.Container) > 0 {
		a.container = append(a.container, frame.Container...)
	}
	if voiced {
		a.hasVoice = true
	}
}

// Flush finalizes the open segment and opens a fresh empty one. It
// returns the completed segment, or a nil segment and a non-zero discard
// reason when the buffer held no voice or fewer frames than the minimum.
func (a *Accumulator) Flush(now time.Time) (*Segment, DiscardReason) {
	frames := a.frames
	sampleCount := a.sampleCount
	hasVoice := a.hasVoice
	container := a.container
	start := a.start

	a.frames = nil
	a.sampleCount = 0
	a.hasVoice = false
	a.container = nil
	a.start = time.Time{}

	if !hasVoice {
		if len(frames) > 0 {
			a.discarded++
		}
		return nil, DiscardNoVoice
	}
	if len(frames) < a.minFrames {
		a.discarded++
		return nil, DiscardTooShort
	}

	a.nextSeq++
	a.flushed++

	return &Segment{
		Seq:         a.nextSeq,
		ID:          uuid.NewString(),
		Frames:      frames,
		SampleCount: sampleCount,
		HasVoice:    true,
		Container:   container,
		Start:       start,
		End:         now,
	}, DiscardNone
}

// Len returns the number of frames in the open segment.
func (a *Accumulator) Len() int {
	return len(a.frames)
}

// HasVoice reports whether the open segment contains a voiced frame.
func (a *Accumulator) HasVoice() bool {
	return a.hasVoice
}

// Stats returns a snapshot of the accumulator counters.
func (a *Accumulator) Stats() AccumulatorStats {
	return AccumulatorStats{
		OpenFrames:        len(a.frames),
		OpenSamples:       a.sampleCount,
		OpenHasVoice:      a.hasVoice,
		SegmentsFlushed:   a.flushed,
		SegmentsDiscarded: a.discarded,
	}
}
