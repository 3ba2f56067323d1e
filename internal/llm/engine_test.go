package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveTemperature(t *testing.T) {
	// Zero is the unset sentinel and yields the engine default.
	assert.Equal(t, 0.7, resolveTemperature(0, 0.7))
	assert.Equal(t, 1.2, resolveTemperature(1.2, 0.7))

	// Greedy sampling is configured on the engine itself.
	assert.Equal(t, 0.0, resolveTemperature(0, 0))
}

func TestResolveStop(t *testing.T) {
	assert.Equal(t, DefaultStopSequences, resolveStop(nil))
	assert.Equal(t, []string{"END"}, resolveStop([]string{"END"}))

	// An explicit empty slice means no stop sequences, not the default.
	assert.Empty(t, resolveStop([]string{}))
	assert.NotNil(t, resolveStop([]string{}))
}

func TestApplyTurnTemplate(t *testing.T) {
	assert.Equal(t,
		"<start_of_turn>user\nhello<end_of_turn>\n<start_of_turn>model\n",
		applyTurnTemplate("hello"))
}
