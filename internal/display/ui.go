package display

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// defaultTick paces the idle ambient animation.
const defaultTick = 250 * time.Millisecond

// UI holds the current display state and text and pushes frames to the
// renderer on every mutation. A background loop advances the ambient
// animation while the assistant is idle.
//
// UI is safe for concurrent use: the animation loop and the activation
// path both touch it.
type UI struct {
	renderer Renderer
	logger   *slog.Logger
	tick     time.Duration

	mu    sync.Mutex
	state State
	text  strings.Builder
	anim  int
}

// NewUI creates a UI over the given renderer. tick of zero uses the
// default animation pace.
func NewUI(renderer Renderer, tick time.Duration, logger *slog.Logger) *UI {
	if logger == nil {
		logger = slog.Default()
	}
	if tick <= 0 {
		tick = defaultTick
	}

	u := &UI{
		renderer: renderer,
		logger:   logger,
		tick:     tick,
		state:    StateIdle,
	}
	u.render(u.snapshotLocked())
	return u
}

// SetState transitions the display to a new session state.
func (u *UI) SetState(state State) {
	u.mu.Lock()
	u.state = state
	frame := u.snapshotLocked()
	u.mu.Unlock()
	u.render(frame)
}

// State reports the current session state.
func (u *UI) State() State {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state
}

// SetText replaces the body text.
func (u *UI) SetText(text string) {
	u.mu.Lock()
	u.text.Reset()
	u.text.WriteString(text)
	frame := u.snapshotLocked()
	u.mu.Unlock()
	u.render(frame)
}

// Clear empties the body text.
func (u *UI) Clear() {
	u.SetText("")
}

// AppendToken appends one generated token to the body text, rendering
// incrementally so the response appears as it streams.
func (u *UI) AppendToken(token string) {
	u.mu.Lock()
	u.text.WriteString(token)
	frame := u.snapshotLocked()
	u.mu.Unlock()
	u.render(frame)
}

// Text returns the current body text.
func (u *UI) Text() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.text.String()
}

// RunIdleLoop drives the ambient animation until ctx is done. Frames are
// only pushed while the state is Idle, so an in-flight activation owns the
// display.
func (u *UI) RunIdleLoop(ctx context.Context) {
	ticker := time.NewTicker(u.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.mu.Lock()
			if u.state != StateIdle {
				u.mu.Unlock()
				continue
			}
			u.anim++
			frame := u.snapshotLocked()
			u.mu.Unlock()
			u.render(frame)
		}
	}
}

func (u *UI) snapshotLocked() Frame {
	return Frame{
		State: u.state,
		Text:  u.text.String(),
		Anim:  u.anim,
	}
}

// render pushes a frame; a failing display is logged, never fatal.
func (u *UI) render(frame Frame) {
	if u.renderer == nil {
		return
	}
	if err := u.renderer.Render(frame); err != nil {
		u.logger.Warn("display render failed", "state", frame.State.String(), "error", err)
	}
}
