package vision

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
)

// cameraBinary is the Raspberry Pi camera stack's still-capture tool.
const cameraBinary = "rpicam-still"

// RpicamCamera captures stills through the rpicam command-line tools.
type RpicamCamera struct {
	width  int
	height int
	logger *slog.Logger
}

// NewRpicamCamera probes for the capture binary.
func NewRpicamCamera(width, height int, logger *slog.Logger) (*RpicamCamera, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := exec.LookPath(cameraBinary); err != nil {
		return nil, fmt.Errorf("camera unavailable: %w", err)
	}
	return &RpicamCamera{width: width, height: height, logger: logger}, nil
}

// Capture grabs one JPEG frame with no preview window.
func (c *RpicamCamera) Capture(ctx context.Context) ([]byte, error) {
	cmd := exec.CommandContext(ctx, cameraBinary,
		"-n",         // no preview
		"-t", "1",    // minimal warm-up
		"--width", strconv.Itoa(c.width),
		"--height", strconv.Itoa(c.height),
		"-e", "jpg",
		"-o", "-", // write JPEG to stdout
	)

	frame, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("capturing frame: %w", err)
	}
	if len(frame) == 0 {
		return nil, fmt.Errorf("camera returned empty frame")
	}

	c.logger.Debug("captured frame", "bytes", len(frame))
	return frame, nil
}
