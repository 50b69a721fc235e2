package transcription

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/devgamesan/SimpleAIChat/internal/protocol"
)

// fakeResultServer answers every received segment with the next canned
// payload, in order.
func fakeResultServer(t *testing.T, replies []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")

		ctx := r.Context()
		for i := 0; ; i++ {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
			if i >= len(replies) {
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, []byte(replies[i])); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func testStreamConfig(endpoint, framing string) Config {
	return Config{
		Mode:     ModeWebSocket,
		Endpoint: endpoint,
		Framing:  framing,
		Timeout:  5 * time.Second,
	}
}

func TestStreamDeliversResultsInOrder(t *testing.T) {
	srv := fakeResultServer(t, []string{
		`{"error":"could not transcribe"}`,
		`{"text":"こんにちは"}`,
	})
	defer srv.Close()

	stream, err := NewStream(testStreamConfig(wsURL(srv), FramingBinary))
	if err != nil {
		t.Fatalf("Failed to create stream: %v", err)
	}
	defer stream.Close()

	ctx := context.Background()
	if err := stream.Send(ctx, testEncodedSegment(1)); err != nil {
		t.Fatalf("Send of segment 1 failed: %v", err)
	}
	if err := stream.Send(ctx, testEncodedSegment(2)); err != nil {
		t.Fatalf("Send of segment 2 failed: %v", err)
	}

	// Results arrive in submission order: segment 1 fails, segment 2
	// carries the transcript.
	first := waitResult(t, stream.Results())
	if first.Seq != 1 {
		t.Fatalf("Expected result for segment 1 first, got %d", first.Seq)
	}
	if first.Err == nil {
		t.Error("Expected error result for segment 1")
	}

	second := waitResult(t, stream.Results())
	if second.Seq != 2 {
		t.Fatalf("Expected result for segment 2, got %d", second.Seq)
	}
	if second.Err != nil {
		t.Fatalf("Expected success for segment 2, got %v", second.Err)
	}
	if second.Text != "こんにちは" {
		t.Errorf("Expected transcript, got %q", second.Text)
	}
}

func TestStreamIgnoresUnparseablePayloads(t *testing.T) {
	srv := fakeResultServer(t, []string{
		`not json at all`,
		`{"status":"warming up"}`,
		`{"text":"ok"}`,
	})
	defer srv.Close()

	stream, err := NewStream(testStreamConfig(wsURL(srv), FramingBinary))
	if err != nil {
		t.Fatalf("Failed to create stream: %v", err)
	}
	defer stream.Close()

	ctx := context.Background()
	// Three sends elicit three server messages; only the last parses.
	for seq := uint64(1); seq <= 3; seq++ {
		if err := stream.Send(ctx, testEncodedSegment(seq)); err != nil {
			t.Fatalf("Send of segment %d failed: %v", seq, err)
		}
	}

	res := waitResult(t, stream.Results())
	if res.Seq != 1 {
		t.Errorf("Expected the parseable result matched to the oldest pending segment, got %d", res.Seq)
	}
	if res.Err != nil || res.Text != "ok" {
		t.Errorf("Expected success 'ok', got text=%q err=%v", res.Text, res.Err)
	}
}

func TestStreamJSONFraming(t *testing.T) {
	received := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")

		ctx := r.Context()
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		if msgType != websocket.MessageText {
			t.Errorf("Expected text message for JSON framing, got %v", msgType)
		}
		received <- data
		conn.Write(ctx, websocket.MessageText, []byte(`{"text":"ok"}`))
	}))
	defer srv.Close()

	stream, err := NewStream(testStreamConfig(wsURL(srv), FramingJSON))
	if err != nil {
		t.Fatalf("Failed to create stream: %v", err)
	}
	defer stream.Close()

	seg := testEncodedSegment(1)
	if err := stream.Send(context.Background(), seg); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case data := <-received:
		payload, err := protocol.DecodeAudioChunk(data)
		if err != nil {
			t.Fatalf("Server received invalid envelope: %v", err)
		}
		if string(payload) != string(seg.Payload) {
			t.Error("Envelope payload does not match segment payload")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for server to receive the segment")
	}

	res := waitResult(t, stream.Results())
	if res.Err != nil {
		t.Fatalf("Expected success, got %v", res.Err)
	}
}

func TestStreamConnectFailureIsPerSegment(t *testing.T) {
	// Endpoint nobody listens on: Send must not return an error, the
	// failure arrives as this segment's result.
	cfg := testStreamConfig("ws://127.0.0.1:1/ws", FramingBinary)
	cfg.Timeout = time.Second

	stream, err := NewStream(cfg)
	if err != nil {
		t.Fatalf("Failed to create stream: %v", err)
	}
	defer stream.Close()

	if err := stream.Send(context.Background(), testEncodedSegment(1)); err != nil {
		t.Fatalf("Expected Send to succeed with per-segment failure, got %v", err)
	}

	res := waitResult(t, stream.Results())
	if res.Seq != 1 {
		t.Errorf("Expected result for segment 1, got %d", res.Seq)
	}
	if res.Err == nil {
		t.Error("Expected connection failure result")
	}
}

func TestStreamSendAfterClose(t *testing.T) {
	srv := fakeResultServer(t, nil)
	defer srv.Close()

	stream, err := NewStream(testStreamConfig(wsURL(srv), FramingBinary))
	if err != nil {
		t.Fatalf("Failed to create stream: %v", err)
	}
	stream.Close()

	if err := stream.Send(context.Background(), testEncodedSegment(1)); err != ErrClosed {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}
