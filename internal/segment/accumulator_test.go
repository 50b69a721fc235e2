package segment

import (
	"testing"
	"time"

	"github.com/devgamesan/SimpleAIChat/internal/audio"
)

func testFrame(n int, value float32) audio.Frame {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = value
	}
	return audio.Frame{Samples: samples}
}

func TestNewAccumulatorValidation(t *testing.T) {
	if _, err := NewAccumulator(0); err == nil {
		t.Error("Expected error for min frames 0, got none")
	}
	if _, err := NewAccumulator(1); err != nil {
		t.Errorf("Unexpected error for min frames 1: %v", err)
	}
}

func TestFlushVoicedSegment(t *testing.T) {
	acc, err := NewAccumulator(2)
	if err != nil {
		t.Fatalf("Failed to create accumulator: %v", err)
	}

	start := time.Now()
	acc.Push(testFrame(160, 0.5), true, start)
	acc.Push(testFrame(160, 0.5), true, start.Add(10*time.Millisecond))
	acc.Push(testFrame(160, 0.0), false, start.Add(20*time.Millisecond))

	end := start.Add(time.Second)
	seg, reason := acc.Flush(end)
	if seg == nil {
		t.Fatalf("Expected segment, got discard reason %q", reason)
	}
	if reason != DiscardNone {
		t.Errorf("Expected DiscardNone, got %v", reason)
	}
	if seg.Seq != 1 {
		t.Errorf("Expected sequence 1, got %d", seg.Seq)
	}
	if seg.ID == "" {
		t.Error("Expected non-empty segment ID")
	}
	if len(seg.Frames) != 3 {
		t.Errorf("Expected 3 frames, got %d", len(seg.Frames))
	}
	if seg.SampleCount != 480 {
		t.Errorf("Expected 480 samples, got %d", seg.SampleCount)
	}
	if !seg.HasVoice {
		t.Error("Expected segment to carry voice")
	}
	if !seg.Start.Equal(start) {
		t.Errorf("Expected start %v, got %v", start, seg.Start)
	}
	if !seg.End.Equal(end) {
		t.Errorf("Expected end %v, got %v", end, seg.End)
	}
}

func TestFlushOpensFreshBuffer(t *testing.T) {
	acc, _ := NewAccumulator(1)

	acc.Push(testFrame(10, 0.5), true, time.Now())
	seg, _ := acc.Flush(time.Now())
	if seg == nil {
		t.Fatal("Expected segment")
	}

	if acc.Len() != 0 {
		t.Errorf("Expected empty buffer after flush, got %d frames", acc.Len())
	}
	if acc.HasVoice() {
		t.Error("Expected voice flag reset after flush")
	}

	// The next segment gets the next sequence number.
	acc.Push(testFrame(10, 0.5), true, time.Now())
	second, _ := acc.Flush(time.Now())
	if second == nil {
		t.Fatal("Expected second segment")
	}
	if second.Seq != seg.Seq+1 {
		t.Errorf("Expected sequence %d, got %d", seg.Seq+1, second.Seq)
	}
	if second.ID == seg.ID {
		t.Error("Expected distinct segment IDs")
	}
}

func TestFlushDiscardsUnvoicedSegment(t *testing.T) {
	acc, _ := NewAccumulator(1)

	for i := 0; i < 50; i++ {
		acc.Push(testFrame(160, 0.0), false, time.Now())
	}

	seg, reason := acc.Flush(time.Now())
	if seg != nil {
		t.Fatal("Expected unvoiced segment to be discarded")
	}
	if reason != DiscardNoVoice {
		t.Errorf("Expected DiscardNoVoice, got %v", reason)
	}
	if got := acc.Stats().SegmentsDiscarded; got != 1 {
		t.Errorf("Expected 1 discarded segment, got %d", got)
	}
}

func TestFlushDiscardsShortSegmentEvenWithVoice(t *testing.T) {
	acc, _ := NewAccumulator(10)

	// 3 loud frames: voiced, but under the floor.
	for i := 0; i < 3; i++ {
		acc.Push(testFrame(160, 0.9), true, time.Now())
	}

	seg, reason := acc.Flush(time.Now())
	if seg != nil {
		t.Fatal("Expected short segment to be discarded")
	}
	if reason != DiscardTooShort {
		t.Errorf("Expected DiscardTooShort, got %v", reason)
	}

	// Discard must not consume a sequence number.
	for i := 0; i < 10; i++ {
		acc.Push(testFrame(160, 0.9), true, time.Now())
	}
	next, _ := acc.Flush(time.Now())
	if next == nil {
		t.Fatal("Expected segment")
	}
	if next.Seq != 1 {
		t.Errorf("Expected sequence 1 after a discard, got %d", next.Seq)
	}
}

func TestFlushEmptyBuffer(t *testing.T) {
	acc, _ := NewAccumulator(1)

	seg, reason := acc.Flush(time.Now())
	if seg != nil {
		t.Fatal("Expected no segment from empty buffer")
	}
	if reason != DiscardNoVoice {
		t.Errorf("Expected DiscardNoVoice, got %v", reason)
	}
	// An empty buffer is not a discarded segment.
	if got := acc.Stats().SegmentsDiscarded; got != 0 {
		t.Errorf("Expected 0 discarded segments, got %d", got)
	}
}

func TestSegmentDuration(t *testing.T) {
	seg := &Segment{SampleCount: 48000}
	if got := seg.Duration(48000); got != time.Second {
		t.Errorf("Expected 1s duration, got %v", got)
	}
	if got := seg.Duration(0); got != 0 {
		t.Errorf("Expected 0 duration for invalid rate, got %v", got)
	}
}

func TestAccumulatorContainerBytes(t *testing.T) {
	acc, _ := NewAccumulator(1)

	acc.Push(audio.Frame{Samples: []float32{0.5}, Container: []byte{0x01, 0x02}}, true, time.Now())
	acc.Push(audio.Frame{Samples: []float32{0.5}, Container: []byte{0x03}}, true, time.Now())

	seg, _ := acc.Flush(time.Now())
	if seg == nil {
		t.Fatal("Expected segment")
	}
	if string(seg.Container) != "\x01\x02\x03" {
		t.Errorf("Expected concatenated container bytes, got %v", seg.Container)
	}
}
