package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strconv"
	"sync"
	"time"

	"github.com/devgamesan/SimpleAIChat/internal/audio"
	"github.com/devgamesan/SimpleAIChat/internal/segment"
)

// Client is the request/response dispatcher: each segment is submitted as
// an independent multipart request carrying the audio file, a model
// identifier, a language hint, and a bearer credential. The synchronous
// response body is the segment's result.
type Client struct {
	cfg        Config
	httpClient *http.Client
	semaphore  chan struct{}
	results    chan Result

	done      chan struct{}
	closeOnce sync.Once

	mu sync.Mutex
	// statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	totalRetries    uint64
}

// ClientStats is a snapshot of client counters for monitoring.
type ClientStats struct {
	TotalRequests   uint64  `json:"total_requests"`
	SuccessRequests uint64  `json:"success_requests"`
	FailedRequests  uint64  `json:"failed_requests"`
	SuccessRate     float64 `json:"success_rate"`
	TotalRetries    uint64  `json:"total_retries"`
}

// NewClient creates an HTTP dispatcher. cfg must already be validated.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		semaphore: make(chan struct{}, cfg.MaxConcurrent),
		results:   make(chan Result, resultBuffer),
		done:      make(chan struct{}),
	}, nil
}

// Send submits one segment and emits its outcome on Results. It blocks
// through retries, so callers dispatch from a goroutine; failures never
// abort the session, they surface as an error result for that segment.
func (c *Client) Send(ctx context.Context, seg *segment.EncodedSegment) error {
	select {
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	case c.semaphore <- struct{}{}:
	}
	defer func() { <-c.semaphore }()

	c.mu.Lock()
	c.totalRequests++
	c.mu.Unlock()

	text, err := c.transcribe(ctx, seg)

	c.mu.Lock()
	if err != nil {
		c.failedRequests++
	} else {
		c.successRequests++
	}
	c.mu.Unlock()

	c.emit(Result{Seq: seg.Seq, ID: seg.ID, Text: text, Err: err})
	return nil
}

// transcribe performs the request with retries and exponential backoff.
func (c *Client) transcribe(ctx context.Context, seg *segment.EncodedSegment) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			c.mu.Lock()
			c.totalRetries++
			c.mu.Unlock()

			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			if backoff > 30*time.Second {
				backoff = 30 * time.Second
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			case <-c.done:
				return "", ErrClosed
			}
		}

		text, err := c.doRequest(ctx, seg)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if !isRetryable(err) {
			break
		}
	}

	return "", fmt.Errorf("dispatch of segment %d failed: %w", seg.Seq, lastErr)
}

// transcribeResponse is the result body: a transcript on success, an
// error string on failure. A response with no transcript is a failure.
type transcribeResponse struct {
	Text  *string `json:"text"`
	Error string  `json:"error"`
}

// doRequest performs a single multipart submission.
func (c *Client) doRequest(ctx context.Context, seg *segment.EncodedSegment) (string, error) {
	body, contentType, err := c.buildMultipart(seg)
	if err != nil {
		return "", fmt.Errorf("failed to build multipart request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, body)
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &statusError{status: resp.StatusCode, body: string(respBody)}
	}

	var parsed transcribeResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response JSON: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("service error: %s", parsed.Error)
	}
	if parsed.Text == nil {
		return "", fmt.Errorf("response carries no transcript")
	}

	return *parsed.Text, nil
}

// buildMultipart assembles the multipart body. PCM16 segments are wrapped
// in a WAV container so the service receives a self-describing file;
// container segments upload their blob unchanged.
func (c *Client) buildMultipart(seg *segment.EncodedSegment) (io.Reader, string, error) {
	var (
		fileData []byte
		filename string
		mimeType string
		err      error
	)
	switch seg.Encoding {
	case segment.EncodingPCM16:
		fileData, err = audio.EncodeWAV(seg.Payload, seg.SampleRate)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode WAV: %w", err)
		}
		filename = seg.ID + ".wav"
		mimeType = "audio/wav"
	case segment.EncodingContainer:
		fileData = seg.Payload
		filename = seg.Filename
		mimeType = seg.MIME
	default:
		return nil, "", fmt.Errorf("unsupported segment encoding %q", seg.Encoding)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", mimeType)
	fw, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fw.Write(fileData); err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}

	fields := map[string]string{
		"model":           c.cfg.Model,
		"language":        c.cfg.Language,
		"response_format": "json",
		"segment_id":      seg.ID,
		"sequence":        strconv.FormatUint(seg.Seq, 10),
		"sample_rate":     strconv.Itoa(seg.SampleRate),
		"duration":        fmt.Sprintf("%.3f", seg.Duration.Seconds()),
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

// emit delivers a result unless the client is closed.
func (c *Client) emit(res Result) {
	select {
	case c.results <- res:
	case <-c.done:
	}
}

// Results returns the channel of per-segment outcomes.
func (c *Client) Results() <-chan Result {
	return c.results
}

// Close waits for in-flight submissions to finish and closes the results
// channel. It is idempotent.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		// Drain the semaphore so every active Send has emitted its result.
		for i := 0; i < cap(c.semaphore); i++ {
			c.semaphore <- struct{}{}
		}
		close(c.done)
		close(c.results)
	})
	return nil
}

// Stats returns a snapshot of the client counters.
func (c *Client) Stats() ClientStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}
	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		TotalRetries:    c.totalRetries,
	}
}

// statusError is a non-2xx HTTP response.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP error %d: %s", e.status, e.body)
}

// isRetryable reports whether a failed attempt is worth repeating:
// timeouts, transport-level errors, rate limiting, and server errors are;
// client errors and malformed responses are not.
func isRetryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.status == http.StatusTooManyRequests || se.status >= 500
	}

	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded)
}
