// Package testutil provides in-memory stand-ins for the assistant's
// external collaborators: embedder, language model, audio and vision
// hardware, and the display.
package testutil

import (
	"log/slog"
)

// DiscardLogger returns a slog.Logger that discards all output.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
