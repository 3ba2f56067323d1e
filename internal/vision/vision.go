// Package vision provides camera capture and object detection for the
// assistant's detection mode. Detection inference runs out of process in
// a YOLO sidecar consumed over HTTP; the package only carries frames and
// results.
package vision

import (
	"context"
	"fmt"
	"strings"
)

// Detection is one detected object with its confidence score.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Camera captures a single still frame as an encoded JPEG.
type Camera interface {
	Capture(ctx context.Context) ([]byte, error)
}

// Detector runs object detection on an encoded frame.
type Detector interface {
	Detect(ctx context.Context, frame []byte) ([]Detection, error)
}

// FormatDetections renders detections as prompt text, e.g.
// "2 objects detected: person (0.92), dog (0.87)".
func FormatDetections(detections []Detection) string {
	if len(detections) == 0 {
		return "no objects detected"
	}

	parts := make([]string, len(detections))
	for i, d := range detections {
		parts[i] = fmt.Sprintf("%s (%.2f)", d.Label, d.Confidence)
	}

	noun := "objects"
	if len(detections) == 1 {
		noun = "object"
	}
	return fmt.Sprintf("%d %s detected: %s", len(detections), noun, strings.Join(parts, ", "))
}

// Labels extracts the label of each detection, preserving order.
func Labels(detections []Detection) []string {
	labels := make([]string, len(detections))
	for i, d := range detections {
		labels[i] = d.Label
	}
	return labels
}
