package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// EspeakSpeaker speaks through the espeak-ng synthesizer.
type EspeakSpeaker struct {
	binary string
	voice  string
	logger *slog.Logger
}

// NewEspeakSpeaker probes for espeak-ng on the PATH.
func NewEspeakSpeaker(voice string, logger *slog.Logger) (*EspeakSpeaker, error) {
	if logger == nil {
		logger = slog.Default()
	}

	const binary = "espeak-ng"
	if _, err := exec.LookPath(binary); err != nil {
		return nil, fmt.Errorf("speech synthesizer unavailable: %w", err)
	}

	return &EspeakSpeaker{binary: binary, voice: voice, logger: logger}, nil
}

// Say blocks until the whole utterance has played.
func (s *EspeakSpeaker) Say(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	args := []string{}
	if s.voice != "" {
		args = append(args, "-v", s.voice)
	}
	args = append(args, text)

	cmd := exec.CommandContext(ctx, s.binary, args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("speech playback failed: %w", err)
	}

	s.logger.Debug("spoke response", "chars", len(text))
	return nil
}
