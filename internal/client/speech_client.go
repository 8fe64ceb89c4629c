package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/reelsmith/api/internal/config"
	"github.com/reelsmith/api/internal/model"
	"github.com/reelsmith/api/internal/pipeline"
)

// SpeechClient talks to the TTS microservice. The service accepts plain
// text or SSML and returns the encoded audio plus per-word offsets when
// the voice supports them.
type SpeechClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// SynthesizeRequest is the request body for synthesis. Exactly one of
// Text and SSML is set.
type SynthesizeRequest struct {
	Text   string `json:"text,omitempty"`
	SSML   string `json:"ssml,omitempty"`
	Voice  string `json:"voice"`
	Format string `json:"format"`
}

// SynthesizeResponse is the response from synthesis
type SynthesizeResponse struct {
	AudioBase64    string `json:"audio_base64"`
	DurationMs     int64  `json:"duration_ms"`
	WordBoundaries []struct {
		Text        string `json:"text"`
		OffsetHns   int64  `json:"offset_hns"`
		DurationHns int64  `json:"duration_hns"`
	} `json:"word_boundaries,omitempty"`
}

// NewSpeechClient creates a new TTS client
func NewSpeechClient(cfg *config.SpeechConfig) *SpeechClient {
	return &SpeechClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.ServiceURL,
		apiKey:  cfg.APIKey,
	}
}

// Synthesize renders the input to an mp3 at outputPath and reports the
// measured duration and word boundaries.
func (c *SpeechClient) Synthesize(ctx context.Context, input model.SpeechInput, voice string, outputPath string) (*pipeline.SpeechResult, error) {
	reqBody := SynthesizeRequest{
		Voice:  voice,
		Format: "mp3",
	}
	if input.Structured() {
		reqBody.SSML = buildSSML(input.Segments)
	} else {
		reqBody.Text = input.Plain
	}

	var result SynthesizeResponse
	if err := c.post(ctx, "/synthesize", reqBody, &result); err != nil {
		return nil, err
	}

	audio, err := base64.StdEncoding.DecodeString(result.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, pipeline.Transient("speech", fmt.Errorf("empty audio in response"))
	}
	if err := os.WriteFile(outputPath, audio, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write audio file: %w", err)
	}

	boundaries := make(model.WordBoundaries, 0, len(result.WordBoundaries))
	for _, wb := range result.WordBoundaries {
		boundaries = append(boundaries, model.WordBoundary{
			Text:        wb.Text,
			OffsetHns:   wb.OffsetHns,
			DurationHns: wb.DurationHns,
		})
	}

	return &pipeline.SpeechResult{
		Path:           outputPath,
		DurationMs:     result.DurationMs,
		WordBoundaries: boundaries,
	}, nil
}

// ListVoices returns the voices the TTS service offers.
func (c *SpeechClient) ListVoices(ctx context.Context) ([]model.Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/voices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pipeline.Transient("speech", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pipeline.Transient("speech", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus("speech", resp.StatusCode, respBody)
	}

	var result struct {
		Voices []model.Voice `json:"voices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return result.Voices, nil
}

// HealthCheck checks if the TTS service is available
func (c *SpeechClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("speech service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// IsConfigured returns true if the client has valid configuration
func (c *SpeechClient) IsConfigured() bool {
	return c.baseURL != ""
}

func (c *SpeechClient) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func (c *SpeechClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pipeline.Transient("speech", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return pipeline.Transient("speech", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyStatus("speech", resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// buildSSML wraps prosody segments in SSML prosody elements. Offsets like
// "+0%" pass through as-is; the service validates the final document.
func buildSSML(segments []model.ProsodySegment) string {
	var b strings.Builder
	b.WriteString("<speak>")
	for _, seg := range segments {
		fmt.Fprintf(&b, `<prosody rate="%s" volume="%s" pitch="%s">%s</prosody>`,
			seg.Rate, seg.Volume, seg.Pitch, escapeXML(seg.Text))
	}
	b.WriteString("</speak>")
	return b.String()
}

func escapeXML(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "'", "&apos;")
	return r.Replace(s)
}
