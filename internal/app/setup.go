package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/ollama"

	"github.com/voxpi/voxpi/internal/assistant"
	"github.com/voxpi/voxpi/internal/audio"
	"github.com/voxpi/voxpi/internal/config"
	"github.com/voxpi/voxpi/internal/display"
	"github.com/voxpi/voxpi/internal/knowledge"
	"github.com/voxpi/voxpi/internal/llm"
	"github.com/voxpi/voxpi/internal/rag"
	"github.com/voxpi/voxpi/internal/vision"
)

// Options selects which component groups Setup builds.
type Options struct {
	// Headless skips audio, vision and display hardware. Used by the
	// one-shot CLI commands (ask, index) that only need the RAG and LLM
	// stack.
	Headless bool
}

// Setup creates and initializes the application. Model, store and
// retriever failures are fatal; missing hardware (microphone, speaker,
// camera, detector sidecar, OLED panel) degrades with a warning so the
// assistant still runs on a partially equipped Pi.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (_ *App, retErr error) {
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	g, model, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Genkit = g
	a.model = model

	a.Embedder = provideEmbedder(g, cfg)

	store, err := knowledge.Open(cfg.StoreDir, a.Embedder, logger)
	if err != nil {
		return nil, fmt.Errorf("opening knowledge store: %w", err)
	}
	a.Store = store

	a.Retriever = rag.New(store, rag.Config{
		KnowledgeDir:     cfg.KnowledgeDir,
		ChunkSize:        cfg.ChunkSize,
		ChunkOverlap:     cfg.ChunkOverlap,
		MaxConversations: cfg.MaxConversations,
	}, logger)

	a.Engine = llm.NewEngine(g, model, cfg.Temperature, logger)
	a.Modes = assistant.NewModeManager(logger)

	if opts.Headless {
		return a, nil
	}

	a.renderer = provideRenderer(cfg, logger)
	a.UI = display.NewUI(a.renderer, 0, logger)

	stt, tts, wake := provideAudio(cfg, logger)
	camera, detector := provideVision(cfg, logger)

	a.Assistant = assistant.New(
		assistant.Config{
			TopK:         cfg.RetrievalTopK,
			MaxTokens:    cfg.MaxTokens,
			DetectTokens: cfg.DetectTokens,
			ListenWindow: time.Duration(cfg.ListenSeconds * float64(time.Second)),
		},
		a.Modes, a.Retriever, a.Engine, a.UI,
		wake, stt, tts, camera, detector,
		logger,
	)

	return a, nil
}

// provideGenkit initializes Genkit with the ollama plugin and registers
// the generation model and the embedder. The model is registered in raw
// generate mode; the Gemma turn template is applied client-side.
func provideGenkit(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*genkit.Genkit, ai.Model, error) {
	ollamaPlugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
	g := genkit.Init(ctx, genkit.WithPlugins(ollamaPlugin))
	if g == nil {
		return nil, nil, errors.New("initializing genkit with ollama provider")
	}

	model := ollamaPlugin.DefineModel(g, ollama.ModelDefinition{
		Name: cfg.ModelName,
		Type: "generate",
	}, nil)
	ollamaPlugin.DefineEmbedder(g, cfg.OllamaHost, cfg.EmbedderModel, nil)

	logger.Info("initialized genkit with ollama provider",
		"host", cfg.OllamaHost, "model", cfg.ModelName, "embedder", cfg.EmbedderModel)
	return g, model, nil
}

// provideEmbedder returns a lazily initialized embedder. The embedding
// model is pulled on first use, so startup stays fast when the store is
// already warm.
func provideEmbedder(g *genkit.Genkit, cfg *config.Config) knowledge.Embedder {
	return knowledge.NewLazy(func() (knowledge.Embedder, error) {
		e := ollama.Embedder(g, cfg.OllamaHost)
		if e == nil {
			return nil, fmt.Errorf("embedder %q not registered", cfg.EmbedderModel)
		}
		return knowledge.NewGenkitEmbedder(e), nil
	})
}

// provideRenderer selects the display driver. An OLED probe failure falls
// back to the console renderer.
func provideRenderer(cfg *config.Config, logger *slog.Logger) display.Renderer {
	if cfg.DisplayDriver == config.DisplayOLED {
		r, err := display.NewOLEDRenderer(cfg.I2CBus)
		if err == nil {
			logger.Info("using oled display", "bus", cfg.I2CBus)
			return r
		}
		logger.Warn("oled display unavailable, falling back to console", "error", err)
	}
	return display.NewConsoleRenderer()
}

// provideAudio probes the audio toolchain. Each adapter degrades to nil
// independently.
func provideAudio(cfg *config.Config, logger *slog.Logger) (audio.Transcriber, audio.Speaker, audio.Wake) {
	var stt audio.Transcriber
	if t, err := audio.NewWhisperTranscriber(cfg.WhisperBinary, cfg.WhisperModel, logger); err != nil {
		logger.Warn("transcriber unavailable", "error", err)
	} else {
		stt = t
	}

	var tts audio.Speaker
	if s, err := audio.NewEspeakSpeaker(cfg.TTSVoice, logger); err != nil {
		logger.Warn("speaker unavailable", "error", err)
	} else {
		tts = s
	}

	var wake audio.Wake
	if stt != nil {
		wake = audio.NewPhraseWake(stt, cfg.WakePhrase, logger)
	}
	return stt, tts, wake
}

// provideVision probes the camera and the detector sidecar.
func provideVision(cfg *config.Config, logger *slog.Logger) (vision.Camera, vision.Detector) {
	var camera vision.Camera
	if c, err := vision.NewRpicamCamera(cfg.CameraWidth, cfg.CameraHeight, logger); err != nil {
		logger.Warn("camera unavailable", "error", err)
	} else {
		camera = c
	}

	var detector vision.Detector
	if d, err := vision.NewHTTPDetector(cfg.DetectorURL, logger); err != nil {
		logger.Warn("detector sidecar unavailable", "error", err)
	} else {
		detector = d
	}
	return camera, detector
}
