package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/voxpi/voxpi/internal/llm"
)

// GeneratorCall records one Generate invocation.
type GeneratorCall struct {
	Prompt string
	Opts   llm.Options
}

type scriptRule struct {
	pattern  string
	response string
}

// ScriptedGenerator implements llm.Generator with canned responses. The
// first rule whose pattern appears in the prompt wins; otherwise the
// fallback response is used. Responses stream word by word through
// onToken, mirroring how the real engine delivers chunks.
type ScriptedGenerator struct {
	mu       sync.Mutex
	rules    []scriptRule
	fallback string
	err      error
	calls    []GeneratorCall
}

// NewScriptedGenerator creates a generator with a fallback response.
func NewScriptedGenerator(fallback string) *ScriptedGenerator {
	return &ScriptedGenerator{fallback: fallback}
}

// AddResponse maps prompts containing pattern to a canned response.
func (s *ScriptedGenerator) AddResponse(pattern, response string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, scriptRule{pattern: pattern, response: response})
}

// Fail makes every subsequent Generate return err.
func (s *ScriptedGenerator) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Calls returns a copy of the recorded invocations.
func (s *ScriptedGenerator) Calls() []GeneratorCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]GeneratorCall(nil), s.calls...)
}

// Generate resolves the scripted response and streams it word by word.
func (s *ScriptedGenerator) Generate(_ context.Context, prompt string, opts llm.Options, onToken func(string)) (string, error) {
	s.mu.Lock()
	s.calls = append(s.calls, GeneratorCall{Prompt: prompt, Opts: opts})
	err := s.err
	response := s.fallback
	for _, rule := range s.rules {
		if strings.Contains(prompt, rule.pattern) {
			response = rule.response
			break
		}
	}
	s.mu.Unlock()

	if err != nil {
		return "", err
	}

	if onToken != nil {
		words := strings.Fields(response)
		for i, word := range words {
			if i > 0 {
				onToken(" ")
			}
			onToken(word)
		}
	}
	return response, nil
}
