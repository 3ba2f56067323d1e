package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// recorderBinary captures raw audio from the default ALSA device.
const recorderBinary = "arecord"

// WhisperTranscriber records with arecord and transcribes with a
// whisper.cpp command-line binary.
type WhisperTranscriber struct {
	binary    string // whisper-cli
	modelPath string
	logger    *slog.Logger
}

// NewWhisperTranscriber probes for the recorder and whisper binaries and
// for the model file.
func NewWhisperTranscriber(binary, modelPath string, logger *slog.Logger) (*WhisperTranscriber, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := exec.LookPath(recorderBinary); err != nil {
		return nil, fmt.Errorf("audio recorder unavailable: %w", err)
	}
	if _, err := exec.LookPath(binary); err != nil {
		return nil, fmt.Errorf("whisper binary unavailable: %w", err)
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("whisper model unavailable: %w", err)
	}

	return &WhisperTranscriber{
		binary:    binary,
		modelPath: modelPath,
		logger:    logger,
	}, nil
}

// Transcribe records window seconds of 16 kHz mono audio and runs it
// through whisper.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, window time.Duration) (string, error) {
	tmp, err := os.CreateTemp("", "voxpi-*.wav")
	if err != nil {
		return "", fmt.Errorf("creating capture file: %w", err)
	}
	path := tmp.Name()
	_ = tmp.Close()
	defer func() {
		_ = os.Remove(path)
	}()

	seconds := int(window.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	record := exec.CommandContext(ctx, recorderBinary,
		"-q",
		"-d", strconv.Itoa(seconds),
		"-f", "S16_LE",
		"-r", "16000",
		"-c", "1",
		path,
	)
	if out, err := record.CombinedOutput(); err != nil {
		return "", fmt.Errorf("recording audio: %w (%s)", err, strings.TrimSpace(string(out)))
	}

	// -nt suppresses timestamps, -np suppresses progress chatter.
	transcribe := exec.CommandContext(ctx, w.binary,
		"-m", w.modelPath,
		"-f", path,
		"-nt",
		"-np",
	)
	out, err := transcribe.Output()
	if err != nil {
		return "", fmt.Errorf("transcribing audio: %w", err)
	}

	text := strings.TrimSpace(string(out))
	w.logger.Debug("transcribed audio", "seconds", seconds, "text", text)
	return text, nil
}
