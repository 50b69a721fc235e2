package audio

// PCM16 conversion between float samples in [-1, 1] and 16-bit signed
// little-endian integers. The mapping is asymmetric on purpose: negative
// samples scale by 32768 and non-negative samples by 32767, so -1.0 maps
// to -32768, 0 to 0, and +1.0 to 32767. Encoding is bit-reproducible for
// a given input.

// QuantizePCM16 converts one float sample to a 16-bit integer, clamping
// the input to [-1, 1] first.
func QuantizePCM16(s float32) int16 {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	if s < 0 {
		return int16(s * 32768)
	}
	return int16(s * 32767)
}

// EncodePCM16 serializes float samples as raw PCM16 little-endian bytes.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := QuantizePCM16(s)
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// DecodePCM16 converts raw PCM16 little-endian bytes back to float
// samples. Trailing odd bytes are ignored.
func DecodePCM16(data []byte) []float32 {
	n := len(data) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(data[i*2]) | int16(data[i*2+1])<<8
		if v < 0 {
			out[i] = float32(v) / 32768
		} else {
			out[i] = float32(v) / 32767
		}
	}
	return out
}
