package segment

import (
	"fmt"
	"time"

	"github.com/devgamesan/SimpleAIChat/internal/audio"
)

// Encoding identifies the wire format of an encoded segment.
type Encoding string

const (
	// EncodingPCM16 is raw PCM 16-bit little-endian mono.
	EncodingPCM16 Encoding = "pcm16"
	// EncodingContainer is an opaque container blob produced by the
	// capture subsystem, relabeled with a MIME type for transport.
	EncodingContainer Encoding = "container"
)

// ParseEncoding validates and returns an Encoding from its configuration
// string.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case EncodingPCM16:
		return EncodingPCM16, nil
	case EncodingContainer:
		return EncodingContainer, nil
	default:
		return "", fmt.Errorf("unknown segment encoding %q (must be %q or %q)", s, EncodingPCM16, EncodingContainer)
	}
}

// EncodedSegment is an immutable wire-ready payload plus the metadata a
// dispatcher needs to submit and correlate it.
type EncodedSegment struct {
	Seq      uint64
	ID       string
	Payload  []byte
	Encoding Encoding
	MIME     string
	Filename string

	SampleRate  int
	SampleCount int
	Duration    time.Duration
}

// Encoder converts accumulated segments into wire-ready payloads. The
// encoding is a capability of the transport: low-latency channels want
// raw PCM frames, batch endpoints accept container blobs. The rest of the
// pipeline does not care which is active.
type Encoder struct {
	encoding   Encoding
	sampleRate int
	mime       string
	ext        string
}

// NewEncoder creates an encoder for the given encoding and sample rate.
// containerMIME is only consulted for EncodingContainer and defaults to
// audio/webm.
func NewEncoder(encoding Encoding, sampleRate int, containerMIME string) (*Encoder, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	e := &Encoder{encoding: encoding, sampleRate: sampleRate}
	switch encoding {
	case EncodingPCM16:
		e.mime = "audio/pcm"
		e.ext = "pcm"
	case EncodingContainer:
		if containerMIME == "" {
			containerMIME = "audio/webm"
		}
		e.mime = containerMIME
		e.ext = extForMIME(containerMIME)
	default:
		return nil, fmt.Errorf("unknown segment encoding %q", encoding)
	}
	return e, nil
}

// Encode converts a completed segment into its wire payload. It is pure:
// the same segment always yields the same bytes.
func (e *Encoder) Encode(seg *Segment) (*EncodedSegment, error) {
	if seg == nil {
		return nil, fmt.Errorf("cannot encode nil segment")
	}

	var payload []byte
	switch e.encoding {
	case EncodingPCM16:
		samples := make([]float32, 0, seg.SampleCount)
		for _, frame := range seg.Frames {
			samples = append(samples, frame.Samples...)
		}
		payload = audio.EncodePCM16(samples)
	case EncodingContainer:
		if len(seg.Container) == 0 {
			return nil, fmt.Errorf("segment %d carries no container data", seg.Seq)
		}
		payload = seg.Container
	default:
		return nil, fmt.Errorf("unknown segment encoding %q", e.encoding)
	}

	return &EncodedSegment{
		Seq:         seg.Seq,
		ID:          seg.ID,
		Payload:     payload,
		Encoding:    e.encoding,
		MIME:        e.mime,
		Filename:    fmt.Sprintf("%s.%s", seg.ID, e.ext),
		SampleRate:  e.sampleRate,
		SampleCount: seg.SampleCount,
		Duration:    seg.Duration(e.sampleRate),
	}, nil
}

// extForMIME maps common audio MIME types to a filename extension.
func extForMIME(mime string) string {
	switch mime {
	case "audio/webm":
		return "webm"
	case "audio/ogg":
		return "ogg"
	case "audio/wav", "audio/x-wav":
		return "wav"
	case "audio/mp4":
		return "m4a"
	default:
		return "bin"
	}
}
