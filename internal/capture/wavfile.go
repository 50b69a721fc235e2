package capture

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/devgamesan/SimpleAIChat/internal/audio"
)

// Compile-time assertions that both implementations satisfy Device.
var (
	_ Device = (*ReaderDevice)(nil)
)

// OpenWAVFile opens a mono 16-bit WAV file as a capture device. The
// sample rate comes from the file header; cfg.SampleRate, if non-zero,
// must match it. Permission errors on open are reported as
// ErrPermissionDenied.
func OpenWAVFile(path string, cfg ReaderConfig) (*ReaderDevice, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to open audio source %s: %w", path, err)
	}

	samples, rate, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if cfg.SampleRate != 0 && cfg.SampleRate != rate {
		return nil, fmt.Errorf("%s has sample rate %d Hz, configuration expects %d Hz", path, rate, cfg.SampleRate)
	}
	cfg.SampleRate = rate

	return NewReaderDevice(bytes.NewReader(audio.EncodePCM16(samples)), cfg)
}

// Open creates a capture device for the configured source kind.
func Open(source, path string, cfg ReaderConfig) (Device, error) {
	switch source {
	case "wav":
		return OpenWAVFile(path, cfg)
	case "pcm":
		return OpenPCMFile(path, cfg)
	case "stdin":
		return NewReaderDevice(nopCloser{os.Stdin}, cfg)
	default:
		return nil, fmt.Errorf("unknown capture source %q (must be wav, pcm or stdin)", source)
	}
}

// nopCloser keeps Stop from closing os.Stdin.
type nopCloser struct {
	*os.File
}

func (nopCloser) Close() error { return nil }
