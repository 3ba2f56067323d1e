package assistant_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/voxpi/voxpi/internal/assistant"
	"github.com/voxpi/voxpi/internal/display"
	"github.com/voxpi/voxpi/internal/testutil"
	"github.com/voxpi/voxpi/internal/vision"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeMemory records RAG calls and serves canned context.
type fakeMemory struct {
	mu           sync.Mutex
	contextDocs  []string
	queries      []string
	conversation [][2]string
	detections   []string
}

func (f *fakeMemory) RetrieveContext(_ context.Context, query string, _ int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	return f.contextDocs
}

func (f *fakeMemory) AddConversation(_ context.Context, question, answer string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conversation = append(f.conversation, [2]string{question, answer})
}

func (f *fakeMemory) AddDetection(_ context.Context, labels []string, explanation string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detections = append(f.detections, strings.Join(labels, ",")+"|"+explanation)
}

type fixture struct {
	assistant *assistant.Assistant
	modes     *assistant.ModeManager
	memory    *fakeMemory
	generator *testutil.ScriptedGenerator
	renderer  *testutil.RecordingRenderer
	speaker   *testutil.RecordingSpeaker
	stt       *testutil.StubTranscriber
	camera    *testutil.StubCamera
	detector  *testutil.StubDetector
}

func newFixture(t *testing.T, transcripts ...string) *fixture {
	t.Helper()

	f := &fixture{
		modes:     assistant.NewModeManager(testutil.DiscardLogger()),
		memory:    &fakeMemory{},
		generator: testutil.NewScriptedGenerator("default answer"),
		renderer:  testutil.NewRecordingRenderer(),
		speaker:   testutil.NewRecordingSpeaker(),
		stt:       testutil.NewStubTranscriber(transcripts...),
		camera:    &testutil.StubCamera{Frame: []byte("jpeg")},
		detector:  &testutil.StubDetector{},
	}

	ui := display.NewUI(f.renderer, time.Hour, testutil.DiscardLogger())
	f.assistant = assistant.New(
		assistant.Config{TopK: 3, MaxTokens: 256, DetectTokens: 128, ListenWindow: time.Second},
		f.modes, f.memory, f.generator, ui,
		nil, f.stt, f.speaker, f.camera, f.detector,
		testutil.DiscardLogger(),
	)
	return f
}

func TestActivate_BlankTranscriptReturnsToIdle(t *testing.T) {
	f := newFixture(t, "   ")

	f.assistant.Activate(context.Background())

	assert.Empty(t, f.generator.Calls())
	assert.Empty(t, f.speaker.Spoken())

	states := f.renderer.States()
	assert.Equal(t, display.StateIdle, states[len(states)-1])
	assert.Contains(t, states, display.StateListening)
}

func TestActivate_ChatFlow(t *testing.T) {
	f := newFixture(t, "what color is the sky")
	f.memory.contextDocs = []string{"User: tell me about the sky\nAssistant: It changes color."}
	f.generator.AddResponse("what color is the sky", "The sky is blue.")

	f.assistant.Activate(context.Background())

	// Retrieval ran with the raw transcript.
	assert.Equal(t, []string{"what color is the sky"}, f.memory.queries)

	// The prompt carried the retrieved context.
	calls := f.generator.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "Relevant context from previous conversations:")
	assert.Contains(t, calls[0].Prompt, "It changes color.")
	assert.Equal(t, 256, calls[0].Opts.MaxTokens)

	// The full answer was spoken and remembered.
	assert.Equal(t, []string{"The sky is blue."}, f.speaker.Spoken())
	require.Len(t, f.memory.conversation, 1)
	assert.Equal(t, "what color is the sky", f.memory.conversation[0][0])
	assert.Equal(t, "The sky is blue.", f.memory.conversation[0][1])

	states := f.renderer.States()
	assert.Equal(t, []display.State{
		display.StateIdle,
		display.StateListening,
		display.StateThinking,
		display.StateSpeaking,
		display.StateIdle,
	}, states)
}

func TestActivate_TokensStreamToDisplay(t *testing.T) {
	f := newFixture(t, "tell me something")
	f.generator.AddResponse("tell me something", "one two three")

	f.assistant.Activate(context.Background())

	// The last speaking frame holds the accumulated stream in order.
	var speaking []string
	for _, frame := range f.renderer.Frames() {
		if frame.State == display.StateSpeaking {
			speaking = append(speaking, frame.Text)
		}
	}
	require.NotEmpty(t, speaking)
	assert.Equal(t, "one two three", speaking[len(speaking)-1])

	// Earlier frames are prefixes of the final text.
	for _, text := range speaking {
		assert.True(t, strings.HasPrefix("one two three", text), "frame %q", text)
	}
}

func TestActivate_ModeSwitchAcknowledged(t *testing.T) {
	f := newFixture(t, "switch to object detection mode")

	f.assistant.Activate(context.Background())

	assert.Equal(t, assistant.ModeObjectDetection, f.modes.Mode())
	assert.Equal(t, []string{"Mode changed"}, f.speaker.Spoken())
	// A mode switch never triggers generation.
	assert.Empty(t, f.generator.Calls())
}

func TestActivate_DetectionFlow(t *testing.T) {
	f := newFixture(t, "what is this")
	f.modes.SetMode(assistant.ModeObjectDetection)
	f.detector.Detections = []vision.Detection{
		{Label: "person", Confidence: 0.92},
		{Label: "dog", Confidence: 0.87},
	}
	f.generator.AddResponse("person (0.92)", "I can see a person and a dog.")

	f.assistant.Activate(context.Background())

	calls := f.generator.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "2 objects detected")
	assert.Equal(t, 128, calls[0].Opts.MaxTokens)

	assert.Equal(t, []string{"I can see a person and a dog."}, f.speaker.Spoken())
	require.Len(t, f.memory.detections, 1)
	assert.Equal(t, "person,dog|I can see a person and a dog.", f.memory.detections[0])

	states := f.renderer.States()
	assert.Contains(t, states, display.StateDetecting)
	assert.Equal(t, display.StateIdle, states[len(states)-1])
}

func TestActivate_TriggerFromChatSwitchesMode(t *testing.T) {
	f := newFixture(t, "what is this", "what is this")
	f.detector.Detections = []vision.Detection{{Label: "cup", Confidence: 0.75}}

	// First activation: the trigger phrase in chat mode is a mode switch,
	// acknowledged like any other, with no capture yet.
	f.assistant.Activate(context.Background())

	assert.Equal(t, assistant.ModeObjectDetection, f.modes.Mode())
	assert.Equal(t, []string{"Mode changed"}, f.speaker.Spoken())
	assert.NotContains(t, f.renderer.States(), display.StateDetecting)
	assert.Empty(t, f.memory.detections)

	// Second activation: now in detection mode, the same phrase captures.
	f.assistant.Activate(context.Background())

	assert.Contains(t, f.renderer.States(), display.StateDetecting)
	require.Len(t, f.memory.detections, 1)
	assert.True(t, strings.HasPrefix(f.memory.detections[0], "cup|"))
}

func TestActivate_DetectionModeChatFallback(t *testing.T) {
	f := newFixture(t, "tell me a joke")
	f.modes.SetMode(assistant.ModeObjectDetection)
	f.generator.AddResponse("tell me a joke", "Why did the robot cross the road?")

	f.assistant.Activate(context.Background())

	// Non-trigger input in detection mode gets the chat pipeline, with
	// retrieval, and no capture.
	assert.Equal(t, []string{"tell me a joke"}, f.memory.queries)
	assert.Equal(t, []string{"Why did the robot cross the road?"}, f.speaker.Spoken())
	require.Len(t, f.memory.conversation, 1)
	assert.Empty(t, f.memory.detections)
	assert.NotContains(t, f.renderer.States(), display.StateDetecting)

	// The fallback answers in place; the mode itself is unchanged.
	assert.Equal(t, assistant.ModeObjectDetection, f.modes.Mode())
}

func TestActivate_CameraError(t *testing.T) {
	f := newFixture(t, "what is this")
	f.modes.SetMode(assistant.ModeObjectDetection)
	f.camera.Err = errors.New("device busy")

	f.assistant.Activate(context.Background())

	assert.Equal(t, []string{"Camera error"}, f.speaker.Spoken())
	assert.Empty(t, f.generator.Calls())
	assert.Empty(t, f.memory.detections)
}

func TestActivate_NoObjectsDetected(t *testing.T) {
	f := newFixture(t, "what is this")
	f.modes.SetMode(assistant.ModeObjectDetection)
	f.detector.Detections = nil

	f.assistant.Activate(context.Background())

	assert.Equal(t, []string{"No objects detected"}, f.speaker.Spoken())
	assert.Empty(t, f.generator.Calls())
}

func TestActivate_DetectorErrorFallsBack(t *testing.T) {
	f := newFixture(t, "what is this")
	f.modes.SetMode(assistant.ModeObjectDetection)
	f.detector.Err = errors.New("sidecar down")

	f.assistant.Activate(context.Background())

	assert.Equal(t, []string{"No objects detected"}, f.speaker.Spoken())
	assert.Empty(t, f.memory.detections)
}

func TestActivate_ConcurrentWakeDropped(t *testing.T) {
	f := newFixture(t, "first question", "second question")
	f.generator.AddResponse("first question", "first answer")
	f.speaker.Block()

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.assistant.Activate(context.Background())
	}()

	// Wait until the first activation is inside the blocking speak call.
	require.Eventually(t, func() bool {
		return len(f.speaker.Spoken()) == 1
	}, time.Second, 5*time.Millisecond)

	// The overlapping wake is dropped, not queued.
	f.assistant.Activate(context.Background())

	f.speaker.Release()
	<-done

	assert.Equal(t, []string{"first answer"}, f.speaker.Spoken())
	assert.Len(t, f.generator.Calls(), 1)
	assert.Len(t, f.memory.conversation, 1)
}

func TestActivate_GenerationFailureStaysQuiet(t *testing.T) {
	f := newFixture(t, "hello there")
	f.generator.Fail(errors.New("model offline"))

	f.assistant.Activate(context.Background())

	assert.Empty(t, f.speaker.Spoken())
	assert.Empty(t, f.memory.conversation)
	states := f.renderer.States()
	assert.Equal(t, display.StateIdle, states[len(states)-1])
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- f.assistant.Run(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}
