package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voxpi/voxpi/internal/llm"
)

func TestPromptWithContext_NoDocsPassesThrough(t *testing.T) {
	assert.Equal(t, "hello", llm.PromptWithContext("hello", nil))
	assert.Equal(t, "hello", llm.PromptWithContext("hello", []string{}))
}

func TestPromptWithContext_NumbersDocs(t *testing.T) {
	prompt := llm.PromptWithContext("what did we discuss", []string{
		"User: a\nAssistant: b",
		"User: c\nAssistant: d",
	})

	assert.Equal(t,
		"Relevant context from previous conversations:\n"+
			"1. User: a\nAssistant: b\n"+
			"2. User: c\nAssistant: d\n"+
			"\nUser: what did we discuss\nAssistant:",
		prompt)
}

func TestDetectionPrompt(t *testing.T) {
	prompt := llm.DetectionPrompt("2 objects detected: person (0.92), dog (0.87)")
	assert.Equal(t,
		"Explain these detected objects in a natural, conversational way: 2 objects detected: person (0.92), dog (0.87)",
		prompt)
}
