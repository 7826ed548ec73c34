package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// BoundingBox locates one detection in pixel coordinates.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Detection is one object reported by the external model.
type Detection struct {
	Label      string      `json:"label"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"box"`
}

type detectResponse struct {
	Detections []Detection `json:"detections"`
}

// Client talks to the external object detection service. The service
// is a black box: the vault only forwards image bytes and returns the
// detections verbatim, it never interprets them.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Detect posts image bytes to the detection endpoint and decodes the
// reported detections. The confidence threshold is forwarded as a
// query parameter; filtering is the detection service's job.
func (c *Client) Detect(ctx context.Context, data []byte, mime string, threshold float64) ([]Detection, error) {
	requestURL := fmt.Sprintf("%s/detect?threshold=%s",
		c.endpoint, url.QueryEscape(strconv.FormatFloat(threshold, 'f', -1, 64)))

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build detection request: %w", err)
	}
	request.Header.Set("Content-Type", mime)

	start := time.Now()
	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("detection request failed: %w", err)
	}
	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return nil, fmt.Errorf("detection service returned status %d: %s", response.StatusCode, body)
	}

	var decoded detectResponse
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode detection response: %w", err)
	}

	slog.Debug("detection request completed",
		"detection_count", len(decoded.Detections),
		"threshold", threshold,
		"duration_ms", time.Since(start).Milliseconds())

	return decoded.Detections, nil
}
