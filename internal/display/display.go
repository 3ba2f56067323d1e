// Package display renders the assistant's session state on the attached
// screen. The OLED driver draws on a 128x64 SSD1306 over I2C; the console
// driver mirrors the same frames on a terminal for development.
package display

// State is the UI/session state driving rendering. It is display state
// only and is never persisted.
type State int

const (
	StateIdle State = iota
	StateListening
	StateThinking
	StateSpeaking
	StateDetecting
)

// String returns the display label for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateListening:
		return "Listening"
	case StateThinking:
		return "Thinking"
	case StateSpeaking:
		return "Speaking"
	case StateDetecting:
		return "Detecting"
	default:
		return "Unknown"
	}
}

// Frame is one complete render: the current state, the body text (response
// tokens or a status message) and the ambient animation frame counter used
// while idle.
type Frame struct {
	State State
	Text  string
	Anim  int
}

// Renderer draws frames on a concrete output device.
type Renderer interface {
	Render(frame Frame) error
	Close() error
}
