package display

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// stateColors maps each state to its console accent.
var stateColors = map[State]*color.Color{
	StateIdle:      color.New(color.FgHiBlack),
	StateListening: color.New(color.FgCyan, color.Bold),
	StateThinking:  color.New(color.FgYellow),
	StateSpeaking:  color.New(color.FgGreen),
	StateDetecting: color.New(color.FgMagenta, color.Bold),
}

// spinner frames for the idle animation.
var spinner = []string{"|", "/", "-", "\\"}

// ConsoleRenderer mirrors display frames on a terminal. Streaming text is
// printed as a delta against the previous frame so tokens appear inline
// instead of re-printing the whole response each time.
type ConsoleRenderer struct {
	mu sync.Mutex
	w  io.Writer

	lastState State
	lastText  string
	started   bool
}

// NewConsoleRenderer writes frames to stdout.
func NewConsoleRenderer() *ConsoleRenderer {
	return &ConsoleRenderer{w: os.Stdout}
}

// NewConsoleRendererWithWriter writes frames to w, for tests.
func NewConsoleRendererWithWriter(w io.Writer) *ConsoleRenderer {
	return &ConsoleRenderer{w: w}
}

// Render prints the frame. State transitions start a new labelled line;
// text growth within a state is appended in place.
func (r *ConsoleRenderer) Render(frame Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	accent := stateColors[frame.State]
	if accent == nil {
		accent = color.New(color.Reset)
	}

	switch {
	case !r.started || frame.State != r.lastState:
		if r.started {
			fmt.Fprintln(r.w)
		}
		fmt.Fprintf(r.w, "%s %s", accent.Sprintf("[%s]", frame.State), frame.Text)
	case frame.State == StateIdle:
		fmt.Fprintf(r.w, "\r%s %s", accent.Sprintf("[%s]", frame.State), spinner[frame.Anim%len(spinner)])
	case len(frame.Text) >= len(r.lastText) && frame.Text[:len(r.lastText)] == r.lastText:
		fmt.Fprint(r.w, frame.Text[len(r.lastText):])
	default:
		fmt.Fprintf(r.w, "\n%s %s", accent.Sprintf("[%s]", frame.State), frame.Text)
	}

	r.started = true
	r.lastState = frame.State
	r.lastText = frame.Text
	return nil
}

// Close finishes the current line.
func (r *ConsoleRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		fmt.Fprintln(r.w)
	}
	return nil
}
