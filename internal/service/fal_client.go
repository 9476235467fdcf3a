package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"app/internal/config"

	"github.com/rs/zerolog"
)

// ImageGenerationRequest is the provider-agnostic input for a synchronous
// image generation.
type ImageGenerationRequest struct {
	Prompt      string
	AspectRatio string
	// ReferenceImageURL switches the provider to image-to-image mode.
	ReferenceImageURL string
}

// ImageGenerator produces a hosted image URL for a prompt. Generation is
// synchronous: the call blocks until the provider delivers or fails.
type ImageGenerator interface {
	Generate(ctx context.Context, req ImageGenerationRequest) (string, error)
}

// FalClient calls the fal.ai synchronous inference API.
type FalClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewFalClient builds the image generation client from config.
func NewFalClient(cfg *config.Config, logger zerolog.Logger) *FalClient {
	return &FalClient{
		apiKey:  cfg.FalAPIKey,
		baseURL: cfg.FalBaseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
		logger:  logger.With().Str("service", "FalClient").Logger(),
	}
}

type falResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

func (c *FalClient) Generate(ctx context.Context, req ImageGenerationRequest) (string, error) {
	endpoint := c.baseURL + "/fal-ai/nano-banana"
	payload := map[string]any{
		"prompt":        req.Prompt,
		"num_images":    1,
		"output_format": "png",
		"aspect_ratio":  req.AspectRatio,
		"sync_mode":     true,
	}
	if req.ReferenceImageURL != "" {
		endpoint = c.baseURL + "/fal-ai/nano-banana/edit"
		payload["image_urls"] = []string{req.ReferenceImageURL}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal image request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build image request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call image provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error().Int("status", resp.StatusCode).Str("body", string(raw)).Msg("Image provider returned error")
		return "", fmt.Errorf("image provider returned status %d", resp.StatusCode)
	}

	var parsed falResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode image response: %w", err)
	}
	if len(parsed.Images) == 0 || parsed.Images[0].URL == "" {
		return "", fmt.Errorf("image provider returned no images")
	}
	return parsed.Images[0].URL, nil
}
