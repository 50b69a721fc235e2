package audio

// Frame is one fixed-size block of mono audio samples delivered by the
// capture device. Samples are floating point in the range [-1, 1] and
// arrive strictly time-ordered.
//
// Container optionally carries an opaquely-encoded blob produced by the
// capture subsystem itself (e.g. a compressed container chunk). It is
// passed through untouched for transports that accept container uploads
// instead of raw PCM.
type Frame struct {
	Samples   []float32
	Container []byte
}

// Len returns the number of samples in the frame.
func (f Frame) Len() int {
	return len(f.Samples)
}
