package transcription

import (
	"context"
	"fmt"
	"sync"

	"github.com/coder/websocket"

	"github.com/devgamesan/SimpleAIChat/internal/protocol"
	"github.com/devgamesan/SimpleAIChat/internal/segment"
)

// Stream is the persistent-channel dispatcher: one long-lived WebSocket
// connection per session, segments written as they complete, results read
// back asynchronously.
//
// The wire protocol carries no correlation identifier, so results are
// matched to segments in arrival order: the service answers one message
// per segment, in the order segments were written. Submissions in flight
// when the connection dies fail as a group and the next Send redials.
type Stream struct {
	cfg     Config
	results chan Result

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	mu      sync.Mutex
	conn    *websocket.Conn
	pending []pendingSegment

	// statistics
	dials         uint64
	segmentsSent  uint64
	resultsOK     uint64
	resultsFailed uint64
}

// pendingSegment identifies a segment awaiting its result.
type pendingSegment struct {
	seq uint64
	id  string
}

// StreamStats is a snapshot of stream counters for monitoring.
type StreamStats struct {
	Dials         uint64 `json:"dials"`
	SegmentsSent  uint64 `json:"segments_sent"`
	ResultsOK     uint64 `json:"results_ok"`
	ResultsFailed uint64 `json:"results_failed"`
	Pending       int    `json:"pending"`
}

// NewStream creates a WebSocket dispatcher. The connection is established
// lazily on the first Send so that construction never blocks on the
// network.
func NewStream(cfg Config) (*Stream, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Stream{
		cfg:     cfg,
		results: make(chan Result, resultBuffer),
		done:    make(chan struct{}),
	}, nil
}

// Send writes one segment to the channel. The segment's result arrives on
// Results once the service answers; a connection failure surfaces as an
// error result for every segment then in flight.
func (s *Stream) Send(ctx context.Context, seg *segment.EncodedSegment) error {
	select {
	case <-s.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	frame, msgType, err := s.frame(seg)
	if err != nil {
		return fmt.Errorf("failed to frame segment %d: %w", seg.Seq, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conn, err := s.ensureConn(ctx)
	if err != nil {
		s.resultsFailed++
		s.emit(Result{Seq: seg.Seq, ID: seg.ID, Err: fmt.Errorf("failed to connect: %w", err)})
		return nil
	}

	// Enqueue before writing so the read loop can never observe a result
	// with no matching segment.
	s.pending = append(s.pending, pendingSegment{seq: seg.Seq, id: seg.ID})

	writeCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	err = conn.Write(writeCtx, msgType, frame)
	cancel()
	if err != nil {
		s.failPendingLocked(fmt.Errorf("write failed: %w", err))
		s.dropConnLocked(conn)
		return nil
	}

	s.segmentsSent++
	return nil
}

// frame encodes a segment payload per the configured framing.
func (s *Stream) frame(seg *segment.EncodedSegment) ([]byte, websocket.MessageType, error) {
	switch s.cfg.Framing {
	case FramingBinary:
		return seg.Payload, websocket.MessageBinary, nil
	case FramingJSON:
		data, err := protocol.EncodeAudioChunk(seg.Payload)
		if err != nil {
			return nil, 0, err
		}
		return data, websocket.MessageText, nil
	default:
		return nil, 0, fmt.Errorf("unknown framing %q", s.cfg.Framing)
	}
}

// ensureConn returns the live connection, dialing if necessary. Caller
// holds s.mu.
func (s *Stream) ensureConn(ctx context.Context) (*websocket.Conn, error) {
	if s.conn != nil {
		return s.conn, nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, s.cfg.Endpoint, nil)
	if err != nil {
		return nil, err
	}
	// Segments can be long; lift the library's 32 KiB default.
	conn.SetReadLimit(16 << 20)

	s.conn = conn
	s.dials++

	s.wg.Add(1)
	go s.readLoop(conn)

	return conn, nil
}

// readLoop receives service messages and resolves pending segments in
// arrival order. Payloads that do not parse as results are ignored. The
// loop exits when its connection dies, failing whatever is still pending.
func (s *Stream) readLoop(conn *websocket.Conn) {
	defer s.wg.Done()

	for {
		_, msg, err := conn.Read(context.Background())
		if err != nil {
			s.mu.Lock()
			if s.conn == conn {
				s.failPendingLocked(fmt.Errorf("connection lost: %w", err))
				s.dropConnLocked(conn)
			}
			s.mu.Unlock()
			return
		}

		res, ok := protocol.ParseResult(msg)
		if !ok {
			continue
		}

		s.mu.Lock()
		if len(s.pending) == 0 {
			// Unsolicited result; nothing to match it to.
			s.mu.Unlock()
			continue
		}
		p := s.pending[0]
		s.pending = s.pending[1:]

		out := Result{Seq: p.seq, ID: p.id}
		if res.Error != "" {
			out.Err = fmt.Errorf("service error: %s", res.Error)
			s.resultsFailed++
		} else {
			out.Text = res.Text
			s.resultsOK++
		}
		s.emit(out)
		s.mu.Unlock()
	}
}

// failPendingLocked resolves every in-flight segment with err. Caller
// holds s.mu.
func (s *Stream) failPendingLocked(err error) {
	for _, p := range s.pending {
		s.resultsFailed++
		s.emit(Result{Seq: p.seq, ID: p.id, Err: err})
	}
	s.pending = nil
}

// dropConnLocked closes conn and clears it if it is still current, so the
// next Send redials. Caller holds s.mu.
func (s *Stream) dropConnLocked(conn *websocket.Conn) {
	conn.Close(websocket.StatusInternalError, "connection failed")
	if s.conn == conn {
		s.conn = nil
	}
}

// emit delivers a result unless the stream is closed.
func (s *Stream) emit(res Result) {
	select {
	case s.results <- res:
	case <-s.done:
	}
}

// Results returns the channel of per-segment outcomes.
func (s *Stream) Results() <-chan Result {
	return s.results
}

// Close tears down the connection, fails whatever is still pending, and
// closes the results channel. It is idempotent.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.failPendingLocked(ErrClosed)
		conn := s.conn
		s.conn = nil
		s.mu.Unlock()

		if conn != nil {
			conn.Close(websocket.StatusNormalClosure, "session closed")
		}
		s.wg.Wait()

		close(s.done)
		close(s.results)
	})
	return nil
}

// Stats returns a snapshot of the stream counters.
func (s *Stream) Stats() StreamStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StreamStats{
		Dials:         s.dials,
		SegmentsSent:  s.segmentsSent,
		ResultsOK:     s.resultsOK,
		ResultsFailed: s.resultsFailed,
		Pending:       len(s.pending),
	}
}
