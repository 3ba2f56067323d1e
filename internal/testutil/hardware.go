package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/voxpi/voxpi/internal/display"
	"github.com/voxpi/voxpi/internal/vision"
)

// StubTranscriber returns queued transcripts in order, then empty strings.
type StubTranscriber struct {
	mu          sync.Mutex
	transcripts []string
	err         error
}

// NewStubTranscriber queues the given transcripts.
func NewStubTranscriber(transcripts ...string) *StubTranscriber {
	return &StubTranscriber{transcripts: transcripts}
}

// FailWith makes Transcribe return err.
func (s *StubTranscriber) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Transcribe pops the next queued transcript.
func (s *StubTranscriber) Transcribe(context.Context, time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	if len(s.transcripts) == 0 {
		return "", nil
	}
	next := s.transcripts[0]
	s.transcripts = s.transcripts[1:]
	return next, nil
}

// RecordingSpeaker records spoken text. Block() makes the next Say wait
// until Release() is called, which lets tests hold an activation open.
type RecordingSpeaker struct {
	mu      sync.Mutex
	spoken  []string
	blockCh chan struct{}
}

// NewRecordingSpeaker creates an unblocked speaker.
func NewRecordingSpeaker() *RecordingSpeaker {
	return &RecordingSpeaker{}
}

// Block makes subsequent Say calls wait for Release.
func (r *RecordingSpeaker) Block() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blockCh = make(chan struct{})
}

// Release unblocks pending and future Say calls.
func (r *RecordingSpeaker) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.blockCh != nil {
		close(r.blockCh)
		r.blockCh = nil
	}
}

// Say records the text, blocking if Block was called.
func (r *RecordingSpeaker) Say(ctx context.Context, text string) error {
	r.mu.Lock()
	r.spoken = append(r.spoken, text)
	ch := r.blockCh
	r.mu.Unlock()

	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Spoken returns a copy of everything said so far.
func (r *RecordingSpeaker) Spoken() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.spoken...)
}

// StubCamera returns a fixed frame or error.
type StubCamera struct {
	Frame []byte
	Err   error
}

// Capture returns the configured frame.
func (s *StubCamera) Capture(context.Context) ([]byte, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Frame, nil
}

// StubDetector returns fixed detections or an error.
type StubDetector struct {
	Detections []vision.Detection
	Err        error
}

// Detect returns the configured detections.
func (s *StubDetector) Detect(context.Context, []byte) ([]vision.Detection, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Detections, nil
}

// RecordingRenderer captures every rendered frame.
type RecordingRenderer struct {
	mu     sync.Mutex
	frames []display.Frame
	closed bool
}

// NewRecordingRenderer creates an empty recorder.
func NewRecordingRenderer() *RecordingRenderer {
	return &RecordingRenderer{}
}

// Render appends the frame.
func (r *RecordingRenderer) Render(frame display.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
	return nil
}

// Close marks the renderer closed.
func (r *RecordingRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Frames returns a copy of the captured frames.
func (r *RecordingRenderer) Frames() []display.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]display.Frame(nil), r.frames...)
}

// Closed reports whether Close was called.
func (r *RecordingRenderer) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// States extracts the state sequence from the captured frames, collapsing
// consecutive duplicates.
func (r *RecordingRenderer) States() []display.State {
	var states []display.State
	for _, frame := range r.Frames() {
		if len(states) == 0 || states[len(states)-1] != frame.State {
			states = append(states, frame.State)
		}
	}
	return states
}
