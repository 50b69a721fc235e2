package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devgamesan/SimpleAIChat/internal/audio"
	"github.com/devgamesan/SimpleAIChat/internal/segment"
	"github.com/devgamesan/SimpleAIChat/internal/transcription"
)

// Config represents the complete application configuration
type Config struct {
	Capture       CaptureConfig       `yaml:"capture"`
	Segmenter     SegmenterConfig     `yaml:"segmenter"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	HTTP          HTTPConfig          `yaml:"http"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// CaptureConfig contains audio capture configuration
type CaptureConfig struct {
	Source     string `yaml:"source"`      // "wav", "pcm", or "stdin"
	Path       string `yaml:"path"`        // input file for wav/pcm sources
	SampleRate int    `yaml:"sample_rate"` // Hz
	FrameSize  int    `yaml:"frame_size"`  // samples per frame
	Realtime   bool   `yaml:"realtime"`    // pace file playback at the sample rate
}

// SegmenterConfig contains silence detection and segmentation parameters
type SegmenterConfig struct {
	Metric           string  `yaml:"metric"`             // "rms" or "mean_abs"
	SilenceThreshold float64 `yaml:"silence_threshold"`  // level below which a frame is silent
	SilenceDelay     float64 `yaml:"silence_delay"`      // seconds of silence that closes a segment
	MinSegmentFrames int     `yaml:"min_segment_frames"` // discard floor for flushed segments
	Encoding         string  `yaml:"encoding"`           // "pcm16" or "container"
	ContainerMIME    string  `yaml:"container_mime"`
}

// TranscriptionConfig contains transcription transport configuration
type TranscriptionConfig struct {
	Mode          string `yaml:"mode"` // "websocket" or "http"
	Endpoint      string `yaml:"endpoint"`
	APIKey        string `yaml:"api_key"`
	Model         string `yaml:"model"`
	Language      string `yaml:"language"`
	Framing       string `yaml:"framing"` // websocket mode: "binary" or "json"
	Timeout       int    `yaml:"timeout"` // seconds
	MaxRetries    int    `yaml:"max_retries"`
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// HTTPConfig contains the monitoring API server configuration
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture config: %w", err)
	}

	if err := c.Segmenter.Validate(); err != nil {
		return fmt.Errorf("segmenter config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates capture configuration
func (c *CaptureConfig) Validate() error {
	switch c.Source {
	case "wav", "pcm":
		if c.Path == "" {
			return fmt.Errorf("path cannot be empty for source %q", c.Source)
		}
	case "stdin":
	default:
		return fmt.Errorf("source must be one of [wav, pcm, stdin], got %q", c.Source)
	}

	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %d", c.SampleRate)
	}

	if c.FrameSize < 64 || c.FrameSize > 65536 {
		return fmt.Errorf("frame_size must be between 64 and 65536 samples, got %d", c.FrameSize)
	}

	return nil
}

// Validate validates segmenter configuration
func (s *SegmenterConfig) Validate() error {
	if s.Metric == "" {
		s.Metric = string(audio.MetricRMS)
	}
	if _, err := audio.ParseMetric(s.Metric); err != nil {
		return err
	}

	if s.SilenceThreshold <= 0 || s.SilenceThreshold >= 1 {
		return fmt.Errorf("silence_threshold must be between 0 and 1 (exclusive), got %f", s.SilenceThreshold)
	}

	if s.SilenceDelay <= 0 {
		return fmt.Errorf("silence_delay must be positive, got %f", s.SilenceDelay)
	}

	if s.MinSegmentFrames < 1 {
		return fmt.Errorf("min_segment_frames must be at least 1, got %d", s.MinSegmentFrames)
	}

	if s.Encoding == "" {
		s.Encoding = string(segment.EncodingPCM16)
	}
	if _, err := segment.ParseEncoding(s.Encoding); err != nil {
		return err
	}

	return nil
}

// Validate validates transcription configuration by mapping it through
// the dispatcher's own validation
func (t *TranscriptionConfig) Validate() error {
	dc := t.DispatcherConfig()
	return dc.Validate()
}

// DispatcherConfig maps the YAML section onto the dispatcher configuration
func (t *TranscriptionConfig) DispatcherConfig() transcription.Config {
	return transcription.Config{
		Mode:          t.Mode,
		Endpoint:      t.Endpoint,
		APIKey:        t.APIKey,
		Model:         t.Model,
		Language:      t.Language,
		Framing:       t.Framing,
		Timeout:       t.GetTimeoutDuration(),
		MaxRetries:    t.MaxRetries,
		MaxConcurrent: t.MaxConcurrent,
	}
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetSilenceDelayDuration returns the silence delay as a time.Duration
func (s *SegmenterConfig) GetSilenceDelayDuration() time.Duration {
	return time.Duration(s.SilenceDelay * float64(time.Second))
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}
