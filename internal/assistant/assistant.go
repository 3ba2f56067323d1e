package assistant

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/voxpi/voxpi/internal/audio"
	"github.com/voxpi/voxpi/internal/display"
	"github.com/voxpi/voxpi/internal/llm"
	"github.com/voxpi/voxpi/internal/vision"
)

// Spoken fallbacks for degraded detection mode.
const (
	msgCameraError  = "Camera error"
	msgNoObjects    = "No objects detected"
	msgModeChanged  = "Mode changed"
	msgNotAvailable = "Detection is not available right now"
)

// Memory is the RAG layer as the orchestrator consumes it. rag.Retriever
// satisfies it.
type Memory interface {
	RetrieveContext(ctx context.Context, query string, topK int) []string
	AddConversation(ctx context.Context, question, answer string)
	AddDetection(ctx context.Context, labels []string, explanation string)
}

// Config tunes one assistant loop.
type Config struct {
	TopK         int
	MaxTokens    int
	DetectTokens int
	ListenWindow time.Duration
}

// Assistant runs the interaction loop. Exactly one activation is processed
// at a time; wake events arriving mid-activation are dropped, not queued.
type Assistant struct {
	cfg       Config
	modes     *ModeManager
	memory    Memory
	generator llm.Generator
	ui        *display.UI
	wake      audio.Wake
	stt       audio.Transcriber
	tts       audio.Speaker
	camera    vision.Camera
	detector  vision.Detector
	logger    *slog.Logger

	busy sync.Mutex
	wg   sync.WaitGroup
}

// New wires the orchestrator. wake, stt, tts, camera and detector may be
// nil when the corresponding hardware is absent; the affected paths
// degrade with a spoken or displayed notice instead of failing.
func New(
	cfg Config,
	modes *ModeManager,
	memory Memory,
	generator llm.Generator,
	ui *display.UI,
	wake audio.Wake,
	stt audio.Transcriber,
	tts audio.Speaker,
	camera vision.Camera,
	detector vision.Detector,
	logger *slog.Logger,
) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 256
	}
	if cfg.DetectTokens <= 0 {
		cfg.DetectTokens = 128
	}
	if cfg.ListenWindow <= 0 {
		cfg.ListenWindow = 5 * time.Second
	}

	return &Assistant{
		cfg:       cfg,
		modes:     modes,
		memory:    memory,
		generator: generator,
		ui:        ui,
		wake:      wake,
		stt:       stt,
		tts:       tts,
		camera:    camera,
		detector:  detector,
		logger:    logger,
	}
}

// Run starts the wake listener and the idle animation, then blocks until
// ctx is cancelled. In-flight activations are waited for on the way out.
func (a *Assistant) Run(ctx context.Context) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.ui.RunIdleLoop(ctx)
	}()

	if a.wake != nil {
		if err := a.wake.Start(ctx, func() { a.Activate(ctx) }); err != nil {
			return err
		}
	} else {
		a.logger.Warn("no wake source configured, assistant is display-only")
	}

	<-ctx.Done()
	if a.wake != nil {
		if err := a.wake.Close(); err != nil {
			a.logger.Warn("wake listener close failed", "error", err)
		}
	}
	a.wg.Wait()
	return ctx.Err()
}

// Activate handles one wake event end to end. If an activation is already
// in flight the event is dropped.
func (a *Assistant) Activate(ctx context.Context) {
	if !a.busy.TryLock() {
		a.logger.Info("wake event dropped, activation in flight")
		return
	}
	defer a.busy.Unlock()
	defer a.ui.SetState(display.StateIdle)

	a.handleActivation(ctx)
}

func (a *Assistant) handleActivation(ctx context.Context) {
	a.ui.SetState(display.StateListening)
	a.ui.SetText("")

	transcript := a.listen(ctx)
	if transcript == "" {
		a.logger.Info("heard nothing, returning to idle")
		return
	}
	a.logger.Info("transcribed", "text", transcript)
	a.ui.SetText(transcript)

	if a.modes.HandleVoiceCommand(transcript) != CommandNone {
		a.ui.SetState(display.StateSpeaking)
		a.ui.SetText(msgModeChanged)
		a.speak(ctx, msgModeChanged)
		return
	}

	switch a.modes.Mode() {
	case ModeObjectDetection:
		if IsDetectionTrigger(transcript) {
			a.handleDetection(ctx)
			return
		}
		// Regular questions in detection mode still get an answer.
		a.handleChat(ctx, transcript)
	case ModeIdle:
		a.logger.Info("idle mode, input ignored", "text", transcript)
	default:
		a.handleChat(ctx, transcript)
	}
}

// handleChat runs the retrieve-generate-speak-remember pipeline for one
// chat turn.
func (a *Assistant) handleChat(ctx context.Context, question string) {
	a.ui.SetState(display.StateThinking)

	contextDocs := a.memory.RetrieveContext(ctx, question, a.cfg.TopK)
	prompt := llm.PromptWithContext(question, contextDocs)

	a.ui.SetState(display.StateSpeaking)
	a.ui.Clear()

	answer, err := a.generate(ctx, prompt, a.cfg.MaxTokens)
	if err != nil {
		a.logger.Error("chat generation failed", "error", err)
		return
	}

	a.memory.AddConversation(ctx, question, answer)
	a.speak(ctx, answer)
}

// handleDetection runs one capture-detect-explain-speak cycle.
func (a *Assistant) handleDetection(ctx context.Context) {
	a.ui.SetState(display.StateDetecting)

	if a.camera == nil || a.detector == nil {
		a.ui.SetText(msgNotAvailable)
		a.speak(ctx, msgNotAvailable)
		return
	}

	frame, err := a.camera.Capture(ctx)
	if err != nil {
		a.logger.Error("camera capture failed", "error", err)
		a.ui.SetText(msgCameraError)
		a.speak(ctx, msgCameraError)
		return
	}

	detections, err := a.detector.Detect(ctx, frame)
	if err != nil {
		a.logger.Error("detection failed", "error", err)
		a.ui.SetText(msgNoObjects)
		a.speak(ctx, msgNoObjects)
		return
	}
	if len(detections) == 0 {
		a.ui.SetText(msgNoObjects)
		a.speak(ctx, msgNoObjects)
		return
	}

	summary := vision.FormatDetections(detections)
	a.logger.Info("objects detected", "summary", summary)
	a.ui.SetText(summary)

	a.ui.SetState(display.StateThinking)
	prompt := llm.DetectionPrompt(summary)

	a.ui.SetState(display.StateSpeaking)
	a.ui.Clear()

	explanation, err := a.generate(ctx, prompt, a.cfg.DetectTokens)
	if err != nil {
		a.logger.Error("detection explanation failed", "error", err)
		a.speak(ctx, summary)
		return
	}

	a.memory.AddDetection(ctx, vision.Labels(detections), explanation)
	a.speak(ctx, explanation)
}

// generate streams tokens to the display while accumulating the full
// response for storage and speech.
func (a *Assistant) generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	var acc strings.Builder
	response, err := a.generator.Generate(ctx, prompt, llm.Options{MaxTokens: maxTokens}, func(token string) {
		acc.WriteString(token)
		a.ui.AppendToken(token)
	})
	if err != nil {
		return "", err
	}
	// Prefer the streamed accumulation when present; some backends only
	// deliver the final text.
	if acc.Len() > 0 && response == "" {
		response = acc.String()
	}
	return strings.TrimSpace(response), nil
}

func (a *Assistant) listen(ctx context.Context) string {
	if a.stt == nil {
		a.logger.Warn("no transcriber configured")
		return ""
	}
	text, err := a.stt.Transcribe(ctx, a.cfg.ListenWindow)
	if err != nil {
		a.logger.Error("transcription failed", "error", err)
		return ""
	}
	return strings.TrimSpace(text)
}

// speak blocks until playback finishes so the assistant never talks over
// itself.
func (a *Assistant) speak(ctx context.Context, text string) {
	if a.tts == nil || text == "" {
		return
	}
	if err := a.tts.Say(ctx, text); err != nil {
		a.logger.Error("speech playback failed", "error", err)
	}
}
