package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/devgamesan/SimpleAIChat/internal/protocol"
)

// Canned transcript returned for every audio segment.
const cannedText = "こんにちは、これはテスト用の文字起こし結果です"

type TranscriptionResponse struct {
	Text        string    `json:"text"`
	Language    string    `json:"language"`
	ProcessedAt time.Time `json:"processed_at"`
}

// transcribeHandler fakes the multipart HTTP transcription endpoint.
func transcribeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	segmentID := r.FormValue("segment_id")
	sequence := r.FormValue("sequence")
	duration := r.FormValue("duration")
	language := r.FormValue("language")
	model := r.FormValue("model")

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	log.Printf("🎤 TRANSCRIPTION REQUEST RECEIVED:")
	log.Printf("    Segment ID: %s", segmentID)
	log.Printf("    Sequence: %s", sequence)
	log.Printf("    Duration: %s seconds", duration)
	log.Printf("    Filename: %s (%d bytes)", header.Filename, len(audioData))
	log.Printf("    Model: %s, Language: %s", model, language)

	// Simulate processing time
	time.Sleep(200 * time.Millisecond)

	response := TranscriptionResponse{
		Text:        cannedText,
		Language:    "ja",
		ProcessedAt: time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)

	log.Printf("✅ TRANSCRIPTION RESPONSE SENT: '%s'", response.Text)
}

// wsHandler fakes the streaming transcription endpoint: one result per
// received segment, in order. Both framings are accepted: raw binary
// PCM16 and the base64 JSON envelope.
func wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("WebSocket accept failed: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")
	conn.SetReadLimit(16 << 20)

	log.Printf("🔌 WebSocket client connected: %s", r.RemoteAddr)

	ctx := r.Context()
	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			log.Printf("🔌 WebSocket client disconnected: %v", err)
			return
		}

		var payload []byte
		var result protocol.Result
		switch msgType {
		case websocket.MessageBinary:
			payload = data
		case websocket.MessageText:
			payload, err = protocol.DecodeAudioChunk(data)
			if err != nil {
				result = protocol.Result{Error: "unrecognized message"}
			}
		}

		if result.Error == "" {
			if len(payload) == 0 {
				result = protocol.Result{Error: "empty audio payload"}
			} else {
				result = protocol.Result{Text: cannedText}
			}
		}

		log.Printf("🎤 Segment received (%d bytes), replying: %+v", len(payload), result)

		// Simulate processing time
		time.Sleep(200 * time.Millisecond)

		reply, err := protocol.EncodeResult(result)
		if err != nil {
			log.Printf("Failed to encode result: %v", err)
			continue
		}
		if err := conn.Write(context.Background(), websocket.MessageText, reply); err != nil {
			log.Printf("Failed to send result: %v", err)
			return
		}
	}
}

func main() {
	port := flag.String("port", ":9000", "Listen address")
	flag.Parse()

	http.HandleFunc("/transcribe", transcribeHandler)
	http.HandleFunc("/ws", wsHandler)

	log.Printf("🚀 Test Transcription Server starting on %s", *port)
	log.Printf("📡 HTTP endpoint:      http://localhost%s/transcribe", *port)
	log.Printf("📡 WebSocket endpoint: ws://localhost%s/ws", *port)

	if err := http.ListenAndServe(*port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
