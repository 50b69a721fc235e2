package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/devgamesan/SimpleAIChat/internal/audio"
)

// ReaderDevice streams raw PCM16 little-endian mono audio from an
// io.Reader (a pipe, stdin, or a file) as fixed-size frames. When
// Realtime is set, frames are paced at the audio rate so silence gating
// behaves as it would with a live microphone.
type ReaderDevice struct {
	r          io.Reader
	closer     io.Closer
	sampleRate int
	frameSize  int
	realtime   bool

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	err     error
	done    chan struct{}
}

// ReaderConfig configures a ReaderDevice.
type ReaderConfig struct {
	SampleRate int
	FrameSize  int
	// Realtime paces frame delivery at the audio rate instead of reading
	// as fast as the reader allows.
	Realtime bool
}

// NewReaderDevice wraps r as a capture device. If r is also an io.Closer
// it is closed on Stop.
func NewReaderDevice(r io.Reader, cfg ReaderConfig) (*ReaderDevice, error) {
	if r == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.FrameSize <= 0 {
		return nil, fmt.Errorf("frame size must be positive, got %d", cfg.FrameSize)
	}

	d := &ReaderDevice{
		r:          r,
		sampleRate: cfg.SampleRate,
		frameSize:  cfg.FrameSize,
		realtime:   cfg.Realtime,
		done:       make(chan struct{}),
	}
	if c, ok := r.(io.Closer); ok {
		d.closer = c
	}
	return d, nil
}

// OpenPCMFile opens a raw PCM16 file as a capture device. Permission
// errors on open are reported as ErrPermissionDenied.
func OpenPCMFile(path string, cfg ReaderConfig) (*ReaderDevice, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("failed to open audio source %s: %w", path, err)
	}
	return NewReaderDevice(f, cfg)
}

// Start begins frame delivery.
func (d *ReaderDevice) Start(ctx context.Context) (<-chan audio.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return nil, fmt.Errorf("capture device already started")
	}
	d.started = true

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	frames := make(chan audio.Frame)
	go d.run(runCtx, frames)

	return frames, nil
}

// run reads frameSize samples at a time and delivers them until EOF,
// error, or cancellation.
func (d *ReaderDevice) run(ctx context.Context, frames chan<- audio.Frame) {
	defer close(frames)
	defer close(d.done)

	frameInterval := time.Duration(d.frameSize) * time.Second / time.Duration(d.sampleRate)
	var ticker *time.Ticker
	if d.realtime {
		ticker = time.NewTicker(frameInterval)
		defer ticker.Stop()
	}

	buf := make([]byte, d.frameSize*2)
	for {
		n, err := io.ReadFull(d.r, buf)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
				d.setErr(fmt.Errorf("capture read failed: %w", err))
			} else if n > 0 {
				// Deliver the final partial frame.
				d.deliver(ctx, frames, audio.Frame{Samples: audio.DecodePCM16(buf[:n])})
			}
			return
		}

		frame := audio.Frame{Samples: audio.DecodePCM16(buf)}

		if d.realtime {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
		if !d.deliver(ctx, frames, frame) {
			return
		}
	}
}

// deliver sends one frame unless the context is cancelled first.
func (d *ReaderDevice) deliver(ctx context.Context, frames chan<- audio.Frame, frame audio.Frame) bool {
	select {
	case frames <- frame:
		return true
	case <-ctx.Done():
		return false
	}
}

func (d *ReaderDevice) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err == nil {
		d.err = err
	}
}

// Stop cancels frame delivery and releases the underlying reader. It is
// idempotent.
func (d *ReaderDevice) Stop() error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	cancel := d.cancel
	started := d.started
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if started {
		<-d.done
	}
	if d.closer != nil {
		return d.closer.Close()
	}
	return nil
}

// Err returns the terminal capture error, or nil after a clean stop.
func (d *ReaderDevice) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// SampleRate returns the configured sample rate in Hz.
func (d *ReaderDevice) SampleRate() int { return d.sampleRate }

// FrameSize returns the frame length in samples.
func (d *ReaderDevice) FrameSize() int { return d.frameSize }
