package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/reelsmith/api/internal/config"
	"github.com/reelsmith/api/internal/pipeline"
)

// ImageClient fetches generated images from a prompt-in-URL image API
// (pollinations-style: GET /prompt/<prompt>?width=..&height=..&model=..).
type ImageClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

// NewImageClient creates a new image generation client
func NewImageClient(cfg *config.ImageConfig) *ImageClient {
	return &ImageClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
	}
}

// Generate downloads one image for the prompt and writes it to outputPath.
func (c *ImageClient) Generate(ctx context.Context, prompt string, outputPath string, width, height int) (string, error) {
	q := url.Values{}
	q.Set("width", fmt.Sprintf("%d", width))
	q.Set("height", fmt.Sprintf("%d", height))
	q.Set("nologo", "true")
	if c.model != "" {
		q.Set("model", c.model)
	}
	reqURL := c.baseURL + "/prompt/" + url.PathEscape(prompt) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pipeline.Transient("image", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", classifyStatus("image", resp.StatusCode, body)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer out.Close()

	n, err := io.Copy(out, resp.Body)
	if err != nil {
		return "", pipeline.Transient("image", fmt.Errorf("download interrupted: %w", err))
	}
	if n == 0 {
		return "", pipeline.Transient("image", fmt.Errorf("empty image response"))
	}
	return outputPath, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *ImageClient) IsConfigured() bool {
	return c.baseURL != ""
}
