package audio

import (
	"math"
	"testing"
)

func TestQuantizePCM16Boundaries(t *testing.T) {
	tests := []struct {
		name     string
		input    float32
		expected int16
	}{
		{"negative full scale", -1.0, -32768},
		{"zero", 0.0, 0},
		{"positive full scale", 1.0, 32767},
		{"clamped below", -2.5, -32768},
		{"clamped above", 2.5, 32767},
		{"half positive", 0.5, 16383},
		{"half negative", -0.5, -16384},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := QuantizePCM16(tt.input)
			if got != tt.expected {
				t.Errorf("Expected %d for input %f, got %d", tt.expected, tt.input, got)
			}
		})
	}
}

func TestQuantizePCM16Deterministic(t *testing.T) {
	inputs := []float32{-1.0, -0.31415, 0, 0.0001, 0.9999, 1.0}
	for _, in := range inputs {
		first := QuantizePCM16(in)
		for i := 0; i < 10; i++ {
			if got := QuantizePCM16(in); got != first {
				t.Fatalf("Quantization of %f not reproducible: got %d then %d", in, first, got)
			}
		}
	}
}

func TestEncodePCM16LittleEndian(t *testing.T) {
	data := EncodePCM16([]float32{1.0})
	if len(data) != 2 {
		t.Fatalf("Expected 2 bytes, got %d", len(data))
	}
	// 32767 = 0x7FFF, little-endian
	if data[0] != 0xFF || data[1] != 0x7F {
		t.Errorf("Expected bytes [0xFF 0x7F], got [0x%02X 0x%02X]", data[0], data[1])
	}

	data = EncodePCM16([]float32{-1.0})
	// -32768 = 0x8000, little-endian
	if data[0] != 0x00 || data[1] != 0x80 {
		t.Errorf("Expected bytes [0x00 0x80], got [0x%02X 0x%02X]", data[0], data[1])
	}
}

func TestPCM16RoundTrip(t *testing.T) {
	samples := []float32{-1.0, -0.75, -0.1, 0, 0.1, 0.5, 0.99, 1.0}

	decoded := DecodePCM16(EncodePCM16(samples))
	if len(decoded) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(decoded))
	}

	// One quantization step of tolerance.
	const tolerance = 1.0 / 32767
	for i, want := range samples {
		if diff := math.Abs(float64(decoded[i] - want)); diff > tolerance {
			t.Errorf("Sample %d: expected %f within %g, got %f (diff %g)", i, want, tolerance, decoded[i], diff)
		}
	}
}

func TestDecodePCM16OddTrailingByte(t *testing.T) {
	decoded := DecodePCM16([]byte{0x00, 0x00, 0xFF})
	if len(decoded) != 1 {
		t.Errorf("Expected 1 sample from 3 bytes, got %d", len(decoded))
	}
}
