package vision_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/voxpi/voxpi/internal/vision"
)

func TestFormatDetections(t *testing.T) {
	tests := []struct {
		name       string
		detections []vision.Detection
		want       string
	}{
		{
			name: "empty",
			want: "no objects detected",
		},
		{
			name:       "single",
			detections: []vision.Detection{{Label: "cup", Confidence: 0.75}},
			want:       "1 object detected: cup (0.75)",
		},
		{
			name: "multiple",
			detections: []vision.Detection{
				{Label: "person", Confidence: 0.92},
				{Label: "dog", Confidence: 0.87},
			},
			want: "2 objects detected: person (0.92), dog (0.87)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, vision.FormatDetections(tt.detections))
		})
	}
}

func TestLabels(t *testing.T) {
	labels := vision.Labels([]vision.Detection{
		{Label: "person", Confidence: 0.92},
		{Label: "dog", Confidence: 0.87},
	})
	assert.Equal(t, []string{"person", "dog"}, labels)
	assert.Empty(t, vision.Labels(nil))
}
