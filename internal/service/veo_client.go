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

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// VideoGenerationRequest is the input for starting an asynchronous video task.
type VideoGenerationRequest struct {
	Prompt      string
	AspectRatio string
	Seed        int
	// ImageURLs switches the provider to image-to-video mode.
	ImageURLs []string
}

// VideoTaskDetails is the provider's view of a task at poll time.
type VideoTaskDetails struct {
	TaskID   string
	Status   string
	VideoURL string
}

// VideoGenerator starts video generation tasks and reports their progress.
// The provider is polled on demand; there is no push channel.
type VideoGenerator interface {
	Generate(ctx context.Context, req VideoGenerationRequest) (string, error)
	TaskDetails(ctx context.Context, taskID string) (*VideoTaskDetails, error)
	RemainingCredits(ctx context.Context) (int, error)
}

// KieClient calls the Kie.ai Veo3 video generation API.
type KieClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewKieClient builds the video generation client from config.
func NewKieClient(cfg *config.Config, logger zerolog.Logger) *KieClient {
	return &KieClient{
		apiKey:  cfg.Veo3APIKey,
		baseURL: cfg.KieBaseURL,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logger.With().Str("service", "KieClient").Logger(),
	}
}

type kieEnvelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (c *KieClient) do(ctx context.Context, method, path string, payload any) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call video provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error().Int("status", resp.StatusCode).Str("path", path).Str("body", string(raw)).
			Msg("Video provider returned error")
		return nil, fmt.Errorf("video provider returned status %d", resp.StatusCode)
	}

	var envelope kieEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode provider response: %w", err)
	}
	if envelope.Code != 200 {
		return nil, fmt.Errorf("video provider error %d: %s", envelope.Code, envelope.Msg)
	}
	return envelope.Data, nil
}

func (c *KieClient) Generate(ctx context.Context, req VideoGenerationRequest) (string, error) {
	requestID := uuid.NewString()
	payload := map[string]any{
		"prompt":            req.Prompt,
		"model":             "veo3_fast",
		"aspectRatio":       req.AspectRatio,
		"seeds":             req.Seed,
		"enableFallback":    false,
		"enableTranslation": true,
	}
	if len(req.ImageURLs) > 0 {
		payload["imageUrls"] = req.ImageURLs
	}

	c.logger.Info().Str("request_id", requestID).Str("aspect_ratio", req.AspectRatio).
		Int("seed", req.Seed).Msg("Starting video generation task")

	data, err := c.do(ctx, http.MethodPost, "/api/v1/veo/generate", payload)
	if err != nil {
		return "", err
	}

	var parsed struct {
		TaskID string `json:"taskId"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	if parsed.TaskID == "" {
		return "", fmt.Errorf("video provider returned no task id")
	}
	c.logger.Info().Str("request_id", requestID).Str("task_id", parsed.TaskID).Msg("Video generation task accepted")
	return parsed.TaskID, nil
}

func (c *KieClient) TaskDetails(ctx context.Context, taskID string) (*VideoTaskDetails, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/v1/veo/record-info?taskId="+taskID, nil)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		TaskID      string `json:"taskId"`
		SuccessFlag int    `json:"successFlag"`
		Response    struct {
			ResultURLs []string `json:"resultUrls"`
		} `json:"response"`
		ErrorMessage string `json:"errorMessage"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decode task details: %w", err)
	}

	details := &VideoTaskDetails{TaskID: taskID}
	switch parsed.SuccessFlag {
	case 0:
		details.Status = "processing"
	case 1:
		details.Status = "completed"
		if len(parsed.Response.ResultURLs) > 0 {
			details.VideoURL = parsed.Response.ResultURLs[0]
		}
	default:
		details.Status = "failed"
		if parsed.ErrorMessage != "" {
			c.logger.Warn().Str("task_id", taskID).Str("error", parsed.ErrorMessage).Msg("Video task failed at provider")
		}
	}
	return details, nil
}

func (c *KieClient) RemainingCredits(ctx context.Context) (int, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/v1/chat/credit", nil)
	if err != nil {
		return 0, err
	}
	var credits int
	if err := json.Unmarshal(data, &credits); err != nil {
		return 0, fmt.Errorf("decode credit response: %w", err)
	}
	return credits, nil
}
