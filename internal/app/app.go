// Package app wires the assistant's components together: Genkit with the
// ollama plugin, the vector store, the RAG retriever, audio and vision
// adapters, the display, and the orchestrator on top.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/voxpi/voxpi/internal/assistant"
	"github.com/voxpi/voxpi/internal/config"
	"github.com/voxpi/voxpi/internal/display"
	"github.com/voxpi/voxpi/internal/knowledge"
	"github.com/voxpi/voxpi/internal/llm"
	"github.com/voxpi/voxpi/internal/rag"
)

// App holds the initialized application components. Construct with Setup
// and release with Close.
type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Genkit    *genkit.Genkit
	Embedder  knowledge.Embedder
	Store     *knowledge.Store
	Retriever *rag.Retriever
	Engine    llm.Generator
	Modes     *assistant.ModeManager
	UI        *display.UI
	Assistant *assistant.Assistant

	model    ai.Model
	renderer display.Renderer
}

// Close releases hardware resources. Safe to call on a partially
// initialized App.
func (a *App) Close() error {
	if a.renderer != nil {
		if err := a.renderer.Close(); err != nil {
			return err
		}
	}
	return nil
}
