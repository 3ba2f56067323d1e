// Package audio defines the assistant's audio capabilities and their
// on-device adapters. Speech recognition and synthesis run in native
// engines outside the process; the adapters here shell out to them the
// same way the rest of the appliance tooling does.
//
// All constructors probe for their external binaries and fail fast; the
// composition root treats a failed probe as a degraded (not fatal)
// subsystem.
package audio

import (
	"context"
	"time"
)

// Transcriber records from the microphone for a bounded window and
// returns the recognized text. An empty string means nothing intelligible
// was heard.
type Transcriber interface {
	Transcribe(ctx context.Context, window time.Duration) (string, error)
}

// Speaker speaks text aloud. Say blocks until playback completes so the
// assistant never overlaps spoken output.
type Speaker interface {
	Say(ctx context.Context, text string) error
}

// Wake watches for the wake trigger and invokes onWake once per
// detection. Start returns immediately; detection runs until ctx is done
// or Close is called.
type Wake interface {
	Start(ctx context.Context, onWake func()) error
	Close() error
}
