package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/JulesGR953/OptiScam-Framework/internal/services"
)

const defaultEngineTimeout = 30 * time.Second

// EngineConfig captures the runtime settings for one OCR sidecar.
type EngineConfig struct {
	URL            string
	TimeoutSeconds int
}

type engineClient struct {
	url        string
	httpClient *http.Client
}

func newEngineClient(cfg EngineConfig, httpClient *http.Client) engineClient {
	if httpClient == nil {
		timeout := defaultEngineTimeout
		if cfg.TimeoutSeconds > 0 {
			timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return engineClient{url: strings.TrimSpace(cfg.URL), httpClient: httpClient}
}

// PrimaryClient talks to the fast detection sidecar.
type PrimaryClient struct {
	engineClient
}

// NewPrimaryClient constructs a client for the detection engine. A nil
// httpClient uses the configured timeout.
func NewPrimaryClient(cfg EngineConfig, httpClient *http.Client) *PrimaryClient {
	return &PrimaryClient{newEngineClient(cfg, httpClient)}
}

type detectRequest struct {
	Image string `json:"image"`
}

type detectResponse struct {
	Detections []struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
		Box        *Region `json:"box"`
	} `json:"detections"`
}

// DetectText sends the frame image to the detection engine and returns its
// readings with regions.
func (c *PrimaryClient) DetectText(ctx context.Context, imagePath string) ([]Detection, error) {
	encoded, err := encodeImage(imagePath)
	if err != nil {
		return nil, err
	}

	var parsed detectResponse
	if err := c.post(ctx, "detect", detectRequest{Image: encoded}, &parsed); err != nil {
		return nil, err
	}

	detections := make([]Detection, 0, len(parsed.Detections))
	for _, d := range parsed.Detections {
		detections = append(detections, Detection{
			Text:       d.Text,
			Confidence: d.Confidence,
			Region:     d.Box,
			Engine:     EnginePrimary,
		})
	}
	return detections, nil
}

// FallbackClient talks to the slower recognition sidecar.
type FallbackClient struct {
	engineClient
}

// NewFallbackClient constructs a client for the recognition engine. A nil
// httpClient uses the configured timeout.
func NewFallbackClient(cfg EngineConfig, httpClient *http.Client) *FallbackClient {
	return &FallbackClient{newEngineClient(cfg, httpClient)}
}

type recognizeRequest struct {
	Image string  `json:"image"`
	Box   *Region `json:"box,omitempty"`
}

// RecognizeRegion re-reads the text inside a detected region.
func (c *FallbackClient) RecognizeRegion(ctx context.Context, imagePath string, region Region) (Reading, error) {
	encoded, err := encodeImage(imagePath)
	if err != nil {
		return Reading{}, err
	}
	var reading Reading
	if err := c.post(ctx, "recognize", recognizeRequest{Image: encoded, Box: &region}, &reading); err != nil {
		return Reading{}, err
	}
	return reading, nil
}

// RecognizeImage reads all text across a whole frame.
func (c *FallbackClient) RecognizeImage(ctx context.Context, imagePath string) (Reading, error) {
	encoded, err := encodeImage(imagePath)
	if err != nil {
		return Reading{}, err
	}
	var reading Reading
	if err := c.post(ctx, "recognize", recognizeRequest{Image: encoded}, &reading); err != nil {
		return Reading{}, err
	}
	return reading, nil
}

func (c engineClient) post(ctx context.Context, op string, payload, target any) error {
	if c.url == "" {
		return services.Wrap(
			services.ErrConfiguration, "extracting", op, "engine url not configured", nil)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ocr %s: encode body: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("ocr %s: new request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isUnreachable(err) {
			return services.Wrap(
				services.ErrEngineUnavailable, "extracting", op,
				fmt.Sprintf("engine at %s unreachable", c.url), err)
		}
		return fmt.Errorf("ocr %s: http error: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ocr %s: read body: %w", op, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return services.Wrap(
			services.ErrEngineUnavailable, "extracting", op,
			fmt.Sprintf("engine at %s returned http %d", c.url, resp.StatusCode), nil)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("ocr %s: http %d: %s", op, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("ocr %s: decode response: %w", op, err)
	}
	return nil
}

// HealthCheck verifies the engine endpoint accepts connections.
func (c engineClient) HealthCheck(ctx context.Context) error {
	if c.url == "" {
		return errors.New("engine url not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}

func encodeImage(imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("read frame image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func isUnreachable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
