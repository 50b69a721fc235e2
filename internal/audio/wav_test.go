package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestEncodeWAVHeader(t *testing.T) {
	pcm := EncodePCM16([]float32{0.1, -0.2, 0.3, -0.4})

	data, err := EncodeWAV(pcm, 48000)
	if err != nil {
		t.Fatalf("Failed to encode WAV: %v", err)
	}

	if len(data) != 44+len(pcm) {
		t.Fatalf("Expected %d bytes, got %d", 44+len(pcm), len(data))
	}

	if string(data[0:4]) != "RIFF" {
		t.Errorf("Expected RIFF chunk ID, got %q", string(data[0:4]))
	}
	if string(data[8:12]) != "WAVE" {
		t.Errorf("Expected WAVE format, got %q", string(data[8:12]))
	}
	if string(data[12:16]) != "fmt " {
		t.Errorf("Expected fmt chunk, got %q", string(data[12:16]))
	}
	if string(data[36:40]) != "data" {
		t.Errorf("Expected data chunk, got %q", string(data[36:40]))
	}

	if format := binary.LittleEndian.Uint16(data[20:22]); format != 1 {
		t.Errorf("Expected PCM format 1, got %d", format)
	}
	if channels := binary.LittleEndian.Uint16(data[22:24]); channels != 1 {
		t.Errorf("Expected 1 channel, got %d", channels)
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 48000 {
		t.Errorf("Expected sample rate 48000, got %d", rate)
	}
	if bits := binary.LittleEndian.Uint16(data[34:36]); bits != 16 {
		t.Errorf("Expected 16 bits per sample, got %d", bits)
	}
	if size := binary.LittleEndian.Uint32(data[40:44]); size != uint32(len(pcm)) {
		t.Errorf("Expected data size %d, got %d", len(pcm), size)
	}
}

func TestEncodeWAVValidation(t *testing.T) {
	tests := []struct {
		name       string
		pcm        []byte
		sampleRate int
	}{
		{"empty data", nil, 48000},
		{"odd length", []byte{0x01}, 48000},
		{"zero sample rate", []byte{0x01, 0x02}, 0},
		{"negative sample rate", []byte{0x01, 0x02}, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := EncodeWAV(tt.pcm, tt.sampleRate); err == nil {
				t.Error("Expected error, got none")
			}
		})
	}
}

func TestWAVRoundTrip(t *testing.T) {
	samples := []float32{-1.0, -0.5, 0, 0.25, 0.5, 1.0}

	data, err := EncodeWAV(EncodePCM16(samples), 16000)
	if err != nil {
		t.Fatalf("Failed to encode WAV: %v", err)
	}

	decoded, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("Failed to decode WAV: %v", err)
	}
	if rate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", rate)
	}
	if len(decoded) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(decoded))
	}

	const tolerance = 1.0 / 32767
	for i, want := range samples {
		if diff := math.Abs(float64(decoded[i] - want)); diff > tolerance {
			t.Errorf("Sample %d: expected %f within %g, got %f", i, want, tolerance, decoded[i])
		}
	}
}

func TestDecodeWAVInvalid(t *testing.T) {
	valid, err := EncodeWAV([]byte{0x01, 0x02}, 8000)
	if err != nil {
		t.Fatalf("Failed to encode WAV: %v", err)
	}

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"too short", func(d []byte) []byte { return d[:20] }},
		{"bad riff", func(d []byte) []byte { d[0] = 'X'; return d }},
		{"bad wave", func(d []byte) []byte { d[8] = 'X'; return d }},
		{"non-pcm format", func(d []byte) []byte { d[20] = 3; return d }},
		{"stereo", func(d []byte) []byte { d[22] = 2; return d }},
		{"8-bit", func(d []byte) []byte { d[34] = 8; return d }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]byte, len(valid))
			copy(data, valid)
			if _, _, err := DecodeWAV(tt.mutate(data)); err == nil {
				t.Error("Expected error, got none")
			}
		})
	}
}
