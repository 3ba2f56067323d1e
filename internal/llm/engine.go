// Package llm wraps local model inference behind a small Generator
// interface. Production uses Genkit with the ollama plugin pointed at an
// on-device server; tests inject a scripted generator.
package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// DefaultStopSequences terminate generation for the instruction-tuned
// Gemma models the assistant ships with.
var DefaultStopSequences = []string{"</s>", "\n\n\n"}

// Options configures one generation call. Stop sequences are
// caller-supplied; a nil Stop falls back to DefaultStopSequences.
//
// Temperature zero is the "unset" sentinel and selects the engine's
// configured default. Greedy sampling is therefore configured at engine
// construction (temperature 0 in the config), not per call.
type Options struct {
	MaxTokens   int
	Temperature float64
	Stop        []string
}

// Generator produces a response for a prompt, streaming tokens to onToken
// as they are generated. The returned string is the full response text.
// Generation runs to completion or to the token limit; there is no
// mid-generation cancellation beyond ctx.
type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options, onToken func(token string)) (string, error)
}

// Engine is the Genkit-backed Generator.
type Engine struct {
	g           *genkit.Genkit
	model       ai.Model
	temperature float64
	logger      *slog.Logger
}

// NewEngine creates an Engine for the given registered model.
func NewEngine(g *genkit.Genkit, model ai.Model, temperature float64, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		g:           g,
		model:       model,
		temperature: temperature,
		logger:      logger,
	}
}

// Generate runs one blocking generation. Both the UI sink and the response
// accumulator subscribe through the same onToken callback, so every
// consumer observes tokens in generation order.
func (e *Engine) Generate(ctx context.Context, prompt string, opts Options, onToken func(string)) (string, error) {
	stop := resolveStop(opts.Stop)
	temperature := resolveTemperature(opts.Temperature, e.temperature)

	genOpts := []ai.GenerateOption{
		ai.WithModel(e.model),
		ai.WithMessages(ai.NewUserMessage(ai.NewTextPart(applyTurnTemplate(prompt)))),
		ai.WithConfig(&ai.GenerationCommonConfig{
			MaxOutputTokens: opts.MaxTokens,
			Temperature:     temperature,
			TopP:            0.9,
			StopSequences:   stop,
		}),
	}

	if onToken != nil {
		genOpts = append(genOpts, ai.WithStreaming(func(_ context.Context, chunk *ai.ModelResponseChunk) error {
			if chunk == nil {
				return nil
			}
			for _, part := range chunk.Content {
				if part.Text != "" {
					onToken(part.Text)
				}
			}
			return nil
		}))
	}

	resp, err := genkit.Generate(ctx, e.g, genOpts...)
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}

	e.logger.Debug("generation complete", "prompt_len", len(prompt), "response_len", len(resp.Text()))
	return resp.Text(), nil
}

// resolveStop falls back to the default stop sequences when the caller
// supplies none. An explicit empty slice disables stopping.
func resolveStop(stop []string) []string {
	if stop == nil {
		return DefaultStopSequences
	}
	return stop
}

// resolveTemperature applies the zero-means-unset sentinel from Options.
func resolveTemperature(opt, engineDefault float64) float64 {
	if opt == 0 {
		return engineDefault
	}
	return opt
}

// applyTurnTemplate wraps a prompt in the Gemma instruction-tuned turn
// format. The model is registered in raw-completion mode, so the template
// is applied here rather than by a server-side chat template.
func applyTurnTemplate(prompt string) string {
	return "<start_of_turn>user\n" + prompt + "<end_of_turn>\n<start_of_turn>model\n"
}
