package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HTTPDetector talks to a YOLO inference sidecar over HTTP. The sidecar
// accepts a JPEG body on POST /detect and answers with a JSON detection
// list.
type HTTPDetector struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// detectResponse is the sidecar's wire format.
type detectResponse struct {
	Detections []Detection `json:"detections"`
}

// NewHTTPDetector pings the sidecar's health endpoint; an unreachable
// sidecar fails construction so the caller can degrade detection mode.
func NewHTTPDetector(baseURL string, logger *slog.Logger) (*HTTPDetector, error) {
	if logger == nil {
		logger = slog.Default()
	}

	d := &HTTPDetector{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/healthz", nil)
	if err != nil {
		return nil, fmt.Errorf("building detector health request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detector sidecar unreachable: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector sidecar unhealthy: status %d", resp.StatusCode)
	}

	return d, nil
}

// Detect submits a frame and returns the detected objects.
func (d *HTTPDetector) Detect(ctx context.Context, frame []byte) ([]Detection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/detect", bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("building detect request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detection request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("detection failed: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var decoded detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding detection response: %w", err)
	}

	d.logger.Debug("detection complete", "objects", len(decoded.Detections))
	return decoded.Detections, nil
}
