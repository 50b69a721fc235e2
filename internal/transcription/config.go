package transcription

import (
	"fmt"
	"time"
)

// Transport modes.
const (
	// ModeWebSocket keeps one long-lived bidirectional connection per
	// session and streams segments as they complete.
	ModeWebSocket = "websocket"
	// ModeHTTP submits each segment as an independent multipart request.
	ModeHTTP = "http"
)

// Framing selects how the WebSocket transport frames segment payloads.
const (
	// FramingBinary sends raw PCM16 bytes as a binary message.
	FramingBinary = "binary"
	// FramingJSON wraps the payload base64-encoded in a typed JSON
	// envelope.
	FramingJSON = "json"
)

// Config holds dispatcher configuration shared by both transports.
type Config struct {
	Mode     string
	Endpoint string

	// Request/response transport parameters.
	APIKey        string
	Model         string
	Language      string
	MaxRetries    int
	MaxConcurrent int

	// Persistent-channel transport parameters.
	Framing string

	Timeout time.Duration
}

// Validate checks the configuration for the selected mode and fills in
// defaults.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}

	switch c.Mode {
	case ModeWebSocket:
		switch c.Framing {
		case "":
			c.Framing = FramingBinary
		case FramingBinary, FramingJSON:
		default:
			return fmt.Errorf("framing must be %q or %q, got %q", FramingBinary, FramingJSON, c.Framing)
		}
	case ModeHTTP:
		if c.APIKey == "" {
			return fmt.Errorf("api_key cannot be empty for the http transport")
		}
		if c.Model == "" {
			c.Model = "whisper-1"
		}
		if c.Language == "" {
			c.Language = "ja"
		}
		if c.MaxRetries < 0 {
			return fmt.Errorf("max_retries cannot be negative, got %d", c.MaxRetries)
		}
		if c.MaxConcurrent <= 0 {
			c.MaxConcurrent = 4
		}
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModeWebSocket, ModeHTTP, c.Mode)
	}

	return nil
}
