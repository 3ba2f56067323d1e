// Package assistant orchestrates one voice interaction at a time: wake,
// listen, think, speak, with an object-detection mode driven by the same
// voice channel.
package assistant

import (
	"log/slog"
	"strings"
	"sync"
)

// Mode is the assistant's interaction mode.
type Mode int

const (
	ModeChat Mode = iota
	ModeObjectDetection
	ModeIdle
)

// String returns the mode's display name.
func (m Mode) String() string {
	switch m {
	case ModeChat:
		return "chat"
	case ModeObjectDetection:
		return "object_detection"
	case ModeIdle:
		return "idle"
	default:
		return "unknown"
	}
}

// Command is the outcome of matching a voice transcript against the mode
// phrase tables.
type Command int

const (
	// CommandNone means the transcript is ordinary input for the current
	// mode.
	CommandNone Command = iota
	// CommandSwitchChat switches the assistant into chat mode.
	CommandSwitchChat
	// CommandSwitchDetection switches the assistant into detection mode.
	CommandSwitchDetection
)

// Phrase tables checked in order: chat switches win over detection
// switches, which win over trigger phrases.
var (
	chatPhrases = []string{
		"switch to chat mode",
		"chat mode",
		"enable chat",
		"talk mode",
	}
	detectionPhrases = []string{
		"switch to object detection mode",
		"object detection mode",
		"detection mode",
		"vision mode",
		"camera mode",
	}
	triggerPhrases = []string{
		"what is this",
		"what are these",
		"detect objects",
		"identify objects",
	}
	// detectionInputPhrases gate which detection-mode input runs a capture;
	// anything else falls back to the chat pipeline.
	detectionInputPhrases = []string{
		"what is this",
		"what are these",
		"detect",
		"identify",
	}
)

// ModeManager tracks the current mode and notifies observers on change.
// It is safe for concurrent use.
type ModeManager struct {
	mu       sync.Mutex
	mode     Mode
	onChange []func(Mode)
	logger   *slog.Logger
}

// NewModeManager starts in chat mode.
func NewModeManager(logger *slog.Logger) *ModeManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ModeManager{mode: ModeChat, logger: logger}
}

// Mode reports the current mode.
func (m *ModeManager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// OnChange registers a callback invoked after every effective mode change.
// Callbacks run synchronously under the manager's lock in registration
// order; a panicking callback is recovered and logged so one bad observer
// cannot take the others down.
func (m *ModeManager) OnChange(fn func(Mode)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

// SetMode switches modes. Setting the current mode again is a no-op and
// does not notify observers.
func (m *ModeManager) SetMode(mode Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if mode == m.mode {
		return
	}
	old := m.mode
	m.mode = mode
	m.logger.Info("mode changed", "from", old.String(), "to", mode.String())

	for _, fn := range m.onChange {
		m.notify(fn, mode)
	}
}

func (m *ModeManager) notify(fn func(Mode), mode Mode) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("mode observer panicked", "panic", r)
		}
	}()
	fn(mode)
}

// HandleVoiceCommand matches the transcript against the phrase tables and
// applies any mode switch. Matching is case-insensitive substring search.
// A trigger phrase heard in chat mode switches into detection mode; in any
// other mode the trigger phrases are ordinary input.
func (m *ModeManager) HandleVoiceCommand(transcript string) Command {
	text := strings.ToLower(transcript)

	switch {
	case containsAny(text, chatPhrases):
		m.SetMode(ModeChat)
		return CommandSwitchChat
	case containsAny(text, detectionPhrases):
		m.SetMode(ModeObjectDetection)
		return CommandSwitchDetection
	case m.Mode() == ModeChat && containsAny(text, triggerPhrases):
		m.SetMode(ModeObjectDetection)
		return CommandSwitchDetection
	default:
		return CommandNone
	}
}

// IsDetectionTrigger reports whether detection-mode input asks for a
// capture, by case-insensitive substring match.
func IsDetectionTrigger(transcript string) bool {
	return containsAny(strings.ToLower(transcript), detectionInputPhrases)
}

func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
