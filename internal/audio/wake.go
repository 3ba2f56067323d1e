package audio

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// wakeWindow is the length of each listening slice while waiting for the
// wake phrase. Short slices keep activation latency low.
const wakeWindow = 2 * time.Second

// PhraseWake detects the wake phrase by continuously transcribing short
// audio slices and matching the phrase as a case-insensitive substring.
// It is push-based: the registered callback fires on each detection.
type PhraseWake struct {
	transcriber Transcriber
	phrase      string
	window      time.Duration
	logger      *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPhraseWake creates a wake listener for the given phrase.
func NewPhraseWake(transcriber Transcriber, phrase string, logger *slog.Logger) *PhraseWake {
	if logger == nil {
		logger = slog.Default()
	}
	return &PhraseWake{
		transcriber: transcriber,
		phrase:      strings.ToLower(strings.TrimSpace(phrase)),
		window:      wakeWindow,
		logger:      logger,
	}
}

// Start launches the background listening loop. It returns immediately;
// onWake is invoked from the loop goroutine on each detection.
func (p *PhraseWake) Start(ctx context.Context, onWake func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil // already listening
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.listen(ctx, onWake)
	p.logger.Info("wake listener started", "phrase", p.phrase)
	return nil
}

func (p *PhraseWake) listen(ctx context.Context, onWake func()) {
	defer close(p.done)

	for {
		if ctx.Err() != nil {
			return
		}

		text, err := p.transcriber.Transcribe(ctx, p.window)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Debug("wake transcription failed", "error", err)
			// Back off briefly so a wedged audio device does not spin.
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if p.phrase != "" && strings.Contains(strings.ToLower(text), p.phrase) {
			p.logger.Debug("wake phrase detected")
			onWake()
		}
	}
}

// Close stops the listening loop and waits for it to exit.
func (p *PhraseWake) Close() error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}
