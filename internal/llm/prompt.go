package llm

import (
	"fmt"
	"strings"
)

// PromptWithContext assembles the chat prompt from the user input and the
// retrieved context documents. With no context the input passes through
// unchanged, so a degraded RAG layer silently falls back to plain
// generation.
func PromptWithContext(input string, contextDocs []string) string {
	if len(contextDocs) == 0 {
		return input
	}

	var b strings.Builder
	b.WriteString("Relevant context from previous conversations:\n")
	for i, doc := range contextDocs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, doc)
	}
	fmt.Fprintf(&b, "\nUser: %s\nAssistant:", input)
	return b.String()
}

// DetectionPrompt asks the model to narrate a set of detected objects.
func DetectionPrompt(detectionText string) string {
	return "Explain these detected objects in a natural, conversational way: " + detectionText
}
