package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/devgamesan/SimpleAIChat/internal/audio"
	"github.com/devgamesan/SimpleAIChat/internal/capture"
	"github.com/devgamesan/SimpleAIChat/internal/display"
	"github.com/devgamesan/SimpleAIChat/internal/metrics"
	"github.com/devgamesan/SimpleAIChat/internal/segment"
	"github.com/devgamesan/SimpleAIChat/internal/transcription"
	"github.com/devgamesan/SimpleAIChat/internal/vad"
)

// Session states.
const (
	StateIdle      = "idle"
	StateRecording = "recording"
	StateStopping  = "stopping"
	StateFinished  = "finished"
)

// ErrAlreadyStarted reports a Start call on a session that is recording
// or has already run.
var ErrAlreadyStarted = errors.New("session: already started")

// ErrCaptureUnavailable reports that the capture device could not be
// opened, e.g. because microphone permission was denied. The session
// never enters the recording state.
var ErrCaptureUnavailable = errors.New("session: capture unavailable")

// Config holds the pipeline parameters for one session.
type Config struct {
	SampleRate int
	Metric     audio.Metric

	SilenceThreshold float64
	SilenceDelay     time.Duration
	MinSegmentFrames int

	Encoding      segment.Encoding
	ContainerMIME string

	// TickInterval bounds how late a silence boundary can fire when no
	// frames arrive. Zero selects a default of 100ms.
	TickInterval time.Duration
}

// Controller drives one recording session. All pipeline stages run on a
// single goroutine; only dispatch submissions leave it, one goroutine per
// segment, so transcription of earlier segments overlaps accumulation of
// later ones.
type Controller struct {
	cfg        Config
	device     capture.Device
	dispatcher transcription.Dispatcher
	surface    display.Surface
	logger     *slog.Logger
	metrics    *metrics.Metrics

	meter    *audio.Meter
	detector *vad.Detector
	acc      *segment.Accumulator
	encoder  *segment.Encoder

	dispatchWG sync.WaitGroup

	mu        sync.RWMutex
	state     string
	startTime time.Time
	stopCh    chan struct{}
	doneCh    chan struct{}
	stats     SessionStats
	inFlight  map[uint64]time.Time
}

// SessionStats are the mutable session counters, guarded by Controller.mu.
type SessionStats struct {
	FramesProcessed   uint64 `json:"frames_processed"`
	FramesVoiced      uint64 `json:"frames_voiced"`
	Boundaries        uint64 `json:"boundaries"`
	SegmentsFlushed   uint64 `json:"segments_flushed"`
	SegmentsDiscarded uint64 `json:"segments_discarded"`
	DispatchesSent    uint64 `json:"dispatches_sent"`
	ResultsSucceeded  uint64 `json:"results_succeeded"`
	ResultsFailed     uint64 `json:"results_failed"`
}

// SessionInfo is a read-only session snapshot for monitoring and APIs.
type SessionInfo struct {
	State           string        `json:"state"`
	StartTime       time.Time     `json:"start_time"`
	Duration        time.Duration `json:"duration"`
	SampleRate      int           `json:"sample_rate"`
	VoicePercentage float64       `json:"voice_percentage"`
	PendingResults  int           `json:"pending_results"`
	Stats           SessionStats  `json:"stats"`
}

// NewController creates a session controller over an opened capture
// device and a transcription dispatcher.
func NewController(cfg Config, device capture.Device, dispatcher transcription.Dispatcher, surface display.Surface, logger *slog.Logger, m *metrics.Metrics) (*Controller, error) {
	meter, err := audio.NewMeter(cfg.Metric)
	if err != nil {
		return nil, fmt.Errorf("failed to create level meter: %w", err)
	}

	detector, err := vad.NewDetector(vad.Config{
		Threshold:    cfg.SilenceThreshold,
		SilenceDelay: cfg.SilenceDelay,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create silence detector: %w", err)
	}

	acc, err := segment.NewAccumulator(cfg.MinSegmentFrames)
	if err != nil {
		return nil, fmt.Errorf("failed to create accumulator: %w", err)
	}

	encoder, err := segment.NewEncoder(cfg.Encoding, cfg.SampleRate, cfg.ContainerMIME)
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 100 * time.Millisecond
	}

	return &Controller{
		cfg:        cfg,
		device:     device,
		dispatcher: dispatcher,
		surface:    surface,
		logger:     logger,
		metrics:    m,
		meter:      meter,
		detector:   detector,
		acc:        acc,
		encoder:    encoder,
		state:      StateIdle,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		inFlight:   make(map[uint64]time.Time),
	}, nil
}

// Start opens the capture stream and begins processing. A permission
// failure is fatal: the session stays idle and the error is returned.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.state = StateRecording
	c.startTime = time.Now()
	c.mu.Unlock()

	frames, err := c.device.Start(ctx)
	if err != nil {
		c.mu.Lock()
		c.state = StateFinished
		c.mu.Unlock()
		close(c.doneCh)

		if errors.Is(err, capture.ErrPermissionDenied) {
			c.surface.Error(0, err)
			return fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
		}
		return fmt.Errorf("failed to start capture: %w", err)
	}

	c.metrics.SetSessionActive(true)
	c.surface.Status(StateRecording)
	c.logger.Info("Session started",
		slog.Int("sample_rate", c.cfg.SampleRate),
		slog.String("metric", string(c.cfg.Metric)),
		slog.Float64("silence_threshold", c.cfg.SilenceThreshold),
		slog.Duration("silence_delay", c.cfg.SilenceDelay),
	)

	go c.run(ctx, frames)
	return nil
}

// Stop ends the session: it cancels any armed silence timer, flushes the
// open segment, stops capture, waits for in-flight dispatches, and
// displays their results. Calling Stop on a session that is not recording
// is a no-op.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.state != StateRecording {
		done := c.state == StateStopping
		c.mu.Unlock()
		if done {
			<-c.doneCh
		}
		return nil
	}
	c.state = StateStopping
	c.mu.Unlock()

	close(c.stopCh)
	<-c.doneCh
	return nil
}

// Wait blocks until the session has fully shut down, whether by Stop or
// by the capture source ending on its own.
func (c *Controller) Wait() {
	<-c.doneCh
}

// run is the session loop. It is the only goroutine touching the
// detector and the accumulator.
func (c *Controller) run(ctx context.Context, frames <-chan audio.Frame) {
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	results := c.dispatcher.Results()

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				if err := c.device.Err(); err != nil {
					c.logger.Error("Capture ended with error", slog.String("error", err.Error()))
					c.metrics.RecordCaptureError()
					c.surface.Error(0, err)
				} else {
					c.surface.Notice("capture ended")
				}
				c.shutdown(ctx, results)
				return
			}
			c.handleFrame(ctx, frame)

		case res, ok := <-results:
			if !ok {
				// Dispatcher died underneath us; finish the session.
				results = nil
				continue
			}
			c.handleResult(res)

		case now := <-ticker.C:
			if c.detector.Expire(now) == vad.EventBoundary {
				c.onBoundary(ctx, now)
			}

		case <-c.stopCh:
			c.shutdown(ctx, results)
			return

		case <-ctx.Done():
			c.shutdown(context.Background(), results)
			return
		}
	}
}

// handleFrame runs one frame through metering, silence detection, and
// accumulation, flushing a segment when a boundary fires.
func (c *Controller) handleFrame(ctx context.Context, frame audio.Frame) {
	now := time.Now()
	level := c.meter.Measure(frame)
	event := c.detector.Process(level, now)
	voiced := event == vad.EventVoice

	c.acc.Push(frame, voiced, now)
	c.metrics.RecordFrame(level, voiced)

	c.mu.Lock()
	c.stats.FramesProcessed++
	if voiced {
		c.stats.FramesVoiced++
	}
	c.mu.Unlock()

	if event == vad.EventBoundary {
		c.onBoundary(ctx, now)
	}
}

// onBoundary flushes the open segment and dispatches it.
func (c *Controller) onBoundary(ctx context.Context, now time.Time) {
	c.metrics.RecordBoundary()
	c.mu.Lock()
	c.stats.Boundaries++
	c.mu.Unlock()

	c.flushAndDispatch(ctx, now)
}

// flushAndDispatch closes the open segment, encodes it, and submits it on
// its own goroutine so the next segment accumulates while this one is in
// flight.
func (c *Controller) flushAndDispatch(ctx context.Context, now time.Time) {
	buffered := c.acc.Len()
	seg, reason := c.acc.Flush(now)
	if seg == nil {
		if reason != segment.DiscardNone && buffered > 0 {
			c.metrics.RecordSegmentDiscarded(reason.String())
			c.mu.Lock()
			c.stats.SegmentsDiscarded++
			c.mu.Unlock()
			c.surface.Notice(fmt.Sprintf("segment discarded: %s", reason))
			c.logger.Debug("Segment discarded", slog.String("reason", reason.String()))
		}
		return
	}

	encoded, err := c.encoder.Encode(seg)
	if err != nil {
		c.logger.Error("Failed to encode segment",
			slog.Uint64("sequence", seg.Seq),
			slog.String("error", err.Error()),
		)
		c.surface.Error(seg.Seq, err)
		return
	}

	c.metrics.RecordSegmentFlushed(encoded.Duration.Seconds(), len(encoded.Payload))
	c.mu.Lock()
	c.stats.SegmentsFlushed++
	c.stats.DispatchesSent++
	c.inFlight[encoded.Seq] = time.Now()
	c.mu.Unlock()

	c.logger.Info("Segment flushed",
		slog.Uint64("sequence", encoded.Seq),
		slog.String("segment_id", encoded.ID),
		slog.Float64("duration", encoded.Duration.Seconds()),
		slog.Int("payload_bytes", len(encoded.Payload)),
	)

	c.metrics.RecordDispatchSent()
	c.dispatchWG.Add(1)
	go func() {
		defer c.dispatchWG.Done()
		if err := c.dispatcher.Send(ctx, encoded); err != nil {
			c.mu.Lock()
			delete(c.inFlight, encoded.Seq)
			c.stats.ResultsFailed++
			c.mu.Unlock()
			c.metrics.RecordDispatchResult(false, 0)
			c.surface.Error(encoded.Seq, err)
			c.logger.Error("Failed to submit segment",
				slog.Uint64("sequence", encoded.Seq),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// handleResult displays one dispatch outcome.
func (c *Controller) handleResult(res transcription.Result) {
	c.mu.Lock()
	started, tracked := c.inFlight[res.Seq]
	delete(c.inFlight, res.Seq)
	if res.Err != nil {
		c.stats.ResultsFailed++
	} else {
		c.stats.ResultsSucceeded++
	}
	c.mu.Unlock()

	elapsed := float64(0)
	if tracked {
		elapsed = time.Since(started).Seconds()
	}
	c.metrics.RecordDispatchResult(res.Err == nil, elapsed)

	if res.Err != nil {
		c.surface.Error(res.Seq, res.Err)
		c.logger.Warn("Segment transcription failed",
			slog.Uint64("sequence", res.Seq),
			slog.String("segment_id", res.ID),
			slog.String("error", res.Err.Error()),
		)
		return
	}

	c.surface.Transcript(res.Seq, res.Text)
	c.logger.Info("Segment transcribed",
		slog.Uint64("sequence", res.Seq),
		slog.String("segment_id", res.ID),
		slog.Float64("dispatch_duration", elapsed),
	)
}

// shutdown finishes the session: cancel the armed timer, flush the open
// segment, stop capture, wait out in-flight dispatches, and drain their
// results so nothing already paid for goes undisplayed.
func (c *Controller) shutdown(ctx context.Context, results <-chan transcription.Result) {
	now := time.Now()

	c.detector.Cancel()
	if c.acc.Len() > 0 {
		c.surface.Notice("flushing partial segment")
		c.flushAndDispatch(ctx, now)
	}

	if err := c.device.Stop(); err != nil {
		c.logger.Warn("Error stopping capture device", slog.String("error", err.Error()))
	}

	// Let in-flight submissions resolve, displaying their results as they
	// land. Draining concurrently matters: a dispatcher whose result
	// buffer is full blocks its Send until someone reads, so waiting
	// without draining could deadlock the shutdown.
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		if results == nil {
			return
		}
		for res := range results {
			c.handleResult(res)
		}
	}()

	c.dispatchWG.Wait()
	if err := c.dispatcher.Close(); err != nil {
		c.logger.Warn("Error closing dispatcher", slog.String("error", err.Error()))
	}
	<-drained

	c.mu.Lock()
	c.state = StateFinished
	duration := time.Since(c.startTime)
	stats := c.stats
	c.mu.Unlock()

	c.metrics.SetSessionActive(false)
	c.metrics.RecordSessionEnded(duration.Seconds())
	c.surface.Status(StateIdle)

	detectorStats := c.detector.Stats()
	c.logger.Info("Session finished",
		slog.Duration("duration", duration),
		slog.Uint64("frames_processed", stats.FramesProcessed),
		slog.Float64("voice_percentage", detectorStats.VoicePercentage),
		slog.Uint64("segments_flushed", stats.SegmentsFlushed),
		slog.Uint64("segments_discarded", stats.SegmentsDiscarded),
		slog.Uint64("results_succeeded", stats.ResultsSucceeded),
		slog.Uint64("results_failed", stats.ResultsFailed),
	)

	close(c.doneCh)
}

// State returns the current session state.
func (c *Controller) State() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Info returns a session snapshot for monitoring.
func (c *Controller) Info() SessionInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := SessionInfo{
		State:          c.state,
		StartTime:      c.startTime,
		SampleRate:     c.cfg.SampleRate,
		PendingResults: len(c.inFlight),
		Stats:          c.stats,
	}
	if !c.startTime.IsZero() {
		info.Duration = time.Since(c.startTime)
	}
	if c.stats.FramesProcessed > 0 {
		info.VoicePercentage = float64(c.stats.FramesVoiced) / float64(c.stats.FramesProcessed) * 100
	}
	return info
}
