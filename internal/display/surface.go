package display

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Surface receives user-visible session output. Implementations must be
// safe for use from the session goroutine and from monitoring handlers.
type Surface interface {
	// Status reports a session state change ("recording", "idle", ...).
	Status(state string)
	// Transcript delivers one transcribed segment, in arrival order.
	Transcript(seq uint64, text string)
	// Notice delivers an informational line (e.g. a flush on stop).
	Notice(message string)
	// Error delivers a per-segment failure. The session continues.
	Error(seq uint64, err error)
}

// Console writes session output to a writer, one line per event.
type Console struct {
	mu         sync.Mutex
	w          io.Writer
	timestamps bool
}

// NewConsole creates a console surface writing to w.
func NewConsole(w io.Writer, timestamps bool) *Console {
	return &Console{w: w, timestamps: timestamps}
}

func (c *Console) Status(state string) {
	c.printf("[%s]", state)
}

func (c *Console) Transcript(seq uint64, text string) {
	c.printf("%s", text)
}

func (c *Console) Notice(message string) {
	c.printf("(%s)", message)
}

func (c *Console) Error(seq uint64, err error) {
	c.printf("(segment %d failed: %v)", seq, err)
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timestamps {
		fmt.Fprintf(c.w, "%s ", time.Now().Format("15:04:05"))
	}
	fmt.Fprintf(c.w, format+"\n", args...)
}

// Event is one recorded surface call, used in tests.
type Event struct {
	Kind string // "status", "transcript", "notice", "error"
	Seq  uint64
	Text string
}

// Recorder captures surface calls for inspection in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Status(state string) {
	r.record(Event{Kind: "status", Text: state})
}

func (r *Recorder) Transcript(seq uint64, text string) {
	r.record(Event{Kind: "transcript", Seq: seq, Text: text})
}

func (r *Recorder) Notice(message string) {
	r.record(Event{Kind: "notice", Text: message})
}

func (r *Recorder) Error(seq uint64, err error) {
	r.record(Event{Kind: "error", Seq: seq, Text: err.Error()})
}

func (r *Recorder) record(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ByKind returns the recorded events of one kind, in order.
func (r *Recorder) ByKind(kind string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
