package vad

import (
	"fmt"
	"time"
)

// State is the detector's position in the voice/silence cycle.
type State int

const (
	// StateIdle means no voice has been observed since the last boundary
	// (or since the session started). No boundary timer is ever armed from
	// Idle, so leading silence can never produce a boundary.
	StateIdle State = iota
	// StateVoiced means the current accumulation contains voice and the
	// most recent sample was at or above the threshold.
	StateVoiced
	// StateWaitingSilence means voice has been heard but recent samples
	// are below the threshold; the boundary deadline is armed.
	StateWaitingSilence
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateVoiced:
		return "voiced"
	case StateWaitingSilence:
		return "waiting_silence"
	default:
		return "idle"
	}
}

// Event is the outcome of feeding one loudness sample to the detector.
type Event int

const (
	// EventNone means nothing notable happened.
	EventNone Event = iota
	// EventVoice means the sample was at or above the threshold. Any
	// pending boundary deadline has been cancelled.
	EventVoice
	// EventBoundary means silence has been held for the full delay after
	// voice: the current accumulation should be flushed as a segment.
	EventBoundary
)

// Config holds detector tuning parameters.
type Config struct {
	// Threshold is the loudness below which a frame counts as silent.
	Threshold float64
	// SilenceDelay is the duration of continuous silence required after
	// voice before a boundary is declared.
	SilenceDelay time.Duration
}

// Detector converts a stream of per-frame loudness values into discrete
// voice and boundary events. The boundary "timer" is a deadline checked
// against caller-supplied timestamps, which makes cancellation
// deterministic: a voiced sample processed strictly before the deadline
// always wins over expiry, and a cancelled deadline can never fire.
//
// A detector is owned by a single session goroutine and is not safe for
// concurrent use.
type Detector struct {
	cfg Config

	state    State
	armed    bool
	deadline time.Time

	// statistics
	samplesSeen uint64
	voicedSeen  uint64
	boundaries  uint64
}

// Stats is a snapshot of detector counters for monitoring.
type Stats struct {
	State           string  `json:"state"`
	SamplesSeen     uint64  `json:"samples_seen"`
	VoicedSeen      uint64  `json:"voiced_seen"`
	Boundaries      uint64  `json:"boundaries"`
	VoicePercentage float64 `json:"voice_percentage"`
}

// NewDetector creates a detector. Threshold must be positive (a zero
// threshold would classify every frame as voiced, including digital
// silence) and the silence delay must be positive.
func NewDetector(cfg Config) (*Detector, error) {
	if cfg.Threshold <= 0 {
		return nil, fmt.Errorf("threshold must be positive, got %g", cfg.Threshold)
	}
	if cfg.SilenceDelay <= 0 {
		return nil, fmt.Errorf("silence delay must be positive, got %s", cfg.SilenceDelay)
	}
	return &Detector{cfg: cfg}, nil
}

// Process feeds one loudness sample observed at the given time.
//
// Samples at or above the threshold cancel any pending deadline and
// return EventVoice. Samples below the threshold arm the deadline on the
// first silent frame after voice, and return EventBoundary once the
// deadline has passed. Silence before any voice is ignored.
func (d *Detector) Process(level float64, now time.Time) Event {
	d.samplesSeen++

	if level >= d.cfg.Threshold {
		d.voicedSeen++
		d.armed = false
		d.state = StateVoiced
		return EventVoice
	}

	switch d.state {
	case StateIdle:
		return EventNone
	case StateVoiced:
		d.armed = true
		d.deadline = now.Add(d.cfg.SilenceDelay)
		d.state = StateWaitingSilence
		return EventNone
	default: // StateWaitingSilence
		return d.Expire(now)
	}
}

// Expire declares a boundary if the armed deadline has passed. It lets
// the session loop fire the boundary from a ticker even when the capture
// device momentarily delivers no frames. Calling Expire with no deadline
// armed is a no-op.
func (d *Detector) Expire(now time.Time) Event {
	if !d.armed || now.Before(d.deadline) {
		return EventNone
	}
	d.armed = false
	d.state = StateIdle
	d.boundaries++
	return EventBoundary
}

// Cancel disarms any pending boundary deadline without emitting an
// event. It is used on session stop, where the trailing accumulation is
// flushed explicitly.
func (d *Detector) Cancel() {
	d.armed = false
	d.state = StateIdle
}

// State returns the current detector state.
func (d *Detector) State() State {
	return d.state
}

// Stats returns a snapshot of the detector counters.
func (d *Detector) Stats() Stats {
	voicePct := float64(0)
	if d.samplesSeen > 0 {
		voicePct = float64(d.voicedSeen) / float64(d.samplesSeen) * 100
	}
	return Stats{
		State:           d.state.String(),
		SamplesSeen:     d.samplesSeen,
		VoicedSeen:      d.voicedSeen,
		Boundaries:      d.boundaries,
		VoicePercentage: voicePct,
	}
}
