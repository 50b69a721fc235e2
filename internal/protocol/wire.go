package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// MessageTypeAudioChunk identifies the structured audio envelope sent by
// the client. The alternative client framing is a raw binary PCM16
// message with no envelope at all.
const MessageTypeAudioChunk = "audio_chunk"

// AudioChunkMessage is the structured client-to-server framing: the
// segment payload is carried base64-encoded inside a typed JSON envelope.
type AudioChunkMessage struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// EncodeAudioChunk wraps a segment payload in the structured envelope.
func EncodeAudioChunk(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("cannot encode empty audio chunk")
	}
	msg := AudioChunkMessage{
		Type: MessageTypeAudioChunk,
		Data: base64.StdEncoding.EncodeToString(payload),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal audio chunk: %w", err)
	}
	return data, nil
}

// DecodeAudioChunk parses the structured envelope and returns the raw
// segment payload. Used by the local fake transcription server.
func DecodeAudioChunk(data []byte) ([]byte, error) {
	var msg AudioChunkMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse audio chunk: %w", err)
	}
	if msg.Type != MessageTypeAudioChunk {
		return nil, fmt.Errorf("unexpected message type %q", msg.Type)
	}
	payload, err := base64.StdEncoding.DecodeString(msg.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio chunk data: %w", err)
	}
	return payload, nil
}

// Result is the server-to-client payload: a transcript on success or an
// error string on failure.
type Result struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// EncodeResult serializes a result payload. Used by the local fake
// transcription server.
func EncodeResult(r Result) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return data, nil
}

// ParseResult parses a server payload. It returns ok=false for anything
// that is not the expected structured form; such payloads are silently
// ignored by the transport.
func ParseResult(data []byte) (Result, bool) {
	var raw struct {
		Text  *string `json:"text"`
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Result{}, false
	}
	if raw.Text == nil && raw.Error == nil {
		return Result{}, false
	}

	var r Result
	if raw.Text != nil {
		r.Text = *raw.Text
	}
	if raw.Error != nil {
		r.Error = *raw.Error
	}
	return r, true
}
