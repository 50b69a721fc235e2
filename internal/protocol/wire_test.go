package protocol

import (
	"encoding/json"
	"testing"
)

func TestAudioChunkRoundTrip(t *testing.T) {
	payload := []byte{0x00, 0x01, 0x7F, 0xFF}

	data, err := EncodeAudioChunk(payload)
	if err != nil {
		t.Fatalf("Failed to encode audio chunk: %v", err)
	}

	var msg AudioChunkMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Envelope is not valid JSON: %v", err)
	}
	if msg.Type != MessageTypeAudioChunk {
		t.Errorf("Expected type %q, got %q", MessageTypeAudioChunk, msg.Type)
	}

	decoded, err := DecodeAudioChunk(data)
	if err != nil {
		t.Fatalf("Failed to decode audio chunk: %v", err)
	}
	if string(decoded) != string(payload) {
		t.Errorf("Expected payload %v, got %v", payload, decoded)
	}
}

func TestEncodeAudioChunkEmpty(t *testing.T) {
	if _, err := EncodeAudioChunk(nil); err == nil {
		t.Error("Expected error for empty payload, got none")
	}
}

func TestDecodeAudioChunkInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "raw bytes"},
		{"wrong type", `{"type":"ping","data":""}`},
		{"bad base64", `{"type":"audio_chunk","data":"!!!"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeAudioChunk([]byte(tt.input)); err == nil {
				t.Error("Expected error, got none")
			}
		})
	}
}

func TestParseResult(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		expectOK   bool
		expectText string
		expectErr  string
	}{
		{"transcript", `{"text":"こんにちは"}`, true, "こんにちは", ""},
		{"empty transcript", `{"text":""}`, true, "", ""},
		{"error", `{"error":"bad audio"}`, true, "", "bad audio"},
		{"both fields", `{"text":"hi","error":"oops"}`, true, "hi", "oops"},
		{"unrelated object", `{"status":"ok"}`, false, "", ""},
		{"not json", `hello`, false, "", ""},
		{"json array", `[1,2,3]`, false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := ParseResult([]byte(tt.input))
			if ok != tt.expectOK {
				t.Fatalf("Expected ok=%v, got %v", tt.expectOK, ok)
			}
			if !ok {
				return
			}
			if res.Text != tt.expectText {
				t.Errorf("Expected text %q, got %q", tt.expectText, res.Text)
			}
			if res.Error != tt.expectErr {
				t.Errorf("Expected error %q, got %q", tt.expectErr, res.Error)
			}
		})
	}
}

func TestEncodeResult(t *testing.T) {
	data, err := EncodeResult(Result{Text: "hello"})
	if err != nil {
		t.Fatalf("Failed to encode result: %v", err)
	}

	res, ok := ParseResult(data)
	if !ok {
		t.Fatal("Expected encoded result to parse")
	}
	if res.Text != "hello" {
		t.Errorf("Expected text 'hello', got %q", res.Text)
	}

	// Success results omit the error field entirely.
	if string(data) != `{"text":"hello"}` {
		t.Errorf("Expected minimal JSON, got %s", data)
	}
}
