package segment

import (
	"testing"
	"time"

	"github.com/devgamesan/SimpleAIChat/internal/audio"
)

func TestParseEncoding(t *testing.T) {
	tests := []struct {
		input     string
		expected  Encoding
		expectErr bool
	}{
		{"pcm16", EncodingPCM16, false},
		{"container", EncodingContainer, false},
		{"", "", true},
		{"flac", "", true},
	}

	for _, tt := range tests {
		enc, err := ParseEncoding(tt.input)
		if tt.expectErr {
			if err == nil {
				t.Errorf("Expected error for input %q, got none", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("Unexpected error for input %q: %v", tt.input, err)
		}
		if enc != tt.expected {
			t.Errorf("Expected encoding %q, got %q", tt.expected, enc)
		}
	}
}

func TestEncodePCM16Segment(t *testing.T) {
	enc, err := NewEncoder(EncodingPCM16, 48000, "")
	if err != nil {
		t.Fatalf("Failed to create encoder: %v", err)
	}

	seg := &Segment{
		Seq: 7,
		ID:  "test-segment",
		Frames: []audio.Frame{
			{Samples: []float32{0, 0.5}},
			{Samples: []float32{-0.5, 1.0}},
		},
		SampleCount: 4,
		HasVoice:    true,
	}

	out, err := enc.Encode(seg)
	if err != nil {
		t.Fatalf("Failed to encode segment: %v", err)
	}

	if out.Seq != 7 || out.ID != "test-segment" {
		t.Errorf("Expected identity to carry over, got seq=%d id=%q", out.Seq, out.ID)
	}
	if out.Encoding != EncodingPCM16 {
		t.Errorf("Expected pcm16 encoding, got %q", out.Encoding)
	}
	if out.MIME != "audio/pcm" {
		t.Errorf("Expected audio/pcm MIME, got %q", out.MIME)
	}
	if out.Filename != "test-segment.pcm" {
		t.Errorf("Expected filename test-segment.pcm, got %q", out.Filename)
	}
	if len(out.Payload) != 8 {
		t.Errorf("Expected 8 payload bytes for 4 samples, got %d", len(out.Payload))
	}

	// Frames concatenate in order: payload equals frame-by-frame encoding.
	expected := audio.EncodePCM16([]float32{0, 0.5, -0.5, 1.0})
	for i := range expected {
		if out.Payload[i] != expected[i] {
			t.Fatalf("Payload byte %d: expected 0x%02X, got 0x%02X", i, expected[i], out.Payload[i])
		}
	}
}

func TestEncodeIsPure(t *testing.T) {
	enc, _ := NewEncoder(EncodingPCM16, 16000, "")
	seg := &Segment{
		Seq:         1,
		ID:          "abc",
		Frames:      []audio.Frame{{Samples: []float32{0.1, -0.2, 0.3}}},
		SampleCount: 3,
		HasVoice:    true,
	}

	first, err := enc.Encode(seg)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}
	second, err := enc.Encode(seg)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	if string(first.Payload) != string(second.Payload) {
		t.Error("Expected identical payload bytes for repeated encoding")
	}
}

func TestEncodeContainerSegment(t *testing.T) {
	enc, err := NewEncoder(EncodingContainer, 48000, "audio/webm")
	if err != nil {
		t.Fatalf("Failed to create encoder: %v", err)
	}

	seg := &Segment{
		Seq:       1,
		ID:        "blob",
		Container: []byte{0xDE, 0xAD, 0xBE, 0xEF},
		HasVoice:  true,
	}

	out, err := enc.Encode(seg)
	if err != nil {
		t.Fatalf("Failed to encode segment: %v", err)
	}
	if string(out.Payload) != string(seg.Container) {
		t.Error("Expected container bytes passed through unchanged")
	}
	if out.MIME != "audio/webm" {
		t.Errorf("Expected audio/webm MIME, got %q", out.MIME)
	}
	if out.Filename != "blob.webm" {
		t.Errorf("Expected filename blob.webm, got %q", out.Filename)
	}
}

func TestEncodeContainerWithoutData(t *testing.T) {
	enc, _ := NewEncoder(EncodingContainer, 48000, "")

	seg := &Segment{Seq: 1, ID: "empty", HasVoice: true}
	if _, err := enc.Encode(seg); err == nil {
		t.Error("Expected error for container segment with no blob")
	}
}

func TestEncodedSegmentDuration(t *testing.T) {
	enc, _ := NewEncoder(EncodingPCM16, 48000, "")

	samples := make([]float32, 24000)
	seg := &Segment{
		Seq:         1,
		ID:          "half",
		Frames:      []audio.Frame{{Samples: samples}},
		SampleCount: 24000,
		HasVoice:    true,
		Start:       time.Now(),
	}

	out, err := enc.Encode(seg)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}
	if out.Duration != 500*time.Millisecond {
		t.Errorf("Expected 500ms duration, got %v", out.Duration)
	}
}
