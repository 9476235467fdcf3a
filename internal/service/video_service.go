package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// VideoTokenCost is the flat tariff for one video generation.
const VideoTokenCost = 10

// ErrProviderCreditsExhausted is returned when the video provider account has
// no remaining credits. The user's own balance is untouched.
var ErrProviderCreditsExhausted = errors.New("video provider credits exhausted")

// GenerateVideoParams is the validated input for a video generation.
type GenerateVideoParams struct {
	Prompt      string
	AspectRatio string
	Seed        int
	ImageURL    string
}

// VideoService runs asynchronous video generations. A task is debited when it
// is accepted by the provider; status advances only through on-demand polls.
type VideoService interface {
	Generate(ctx context.Context, userID string, p GenerateVideoParams) (*model.Video, error)
	// Details polls the provider for the task and syncs the stored record.
	Details(ctx context.Context, taskID string) (*model.Video, error)
	// List returns the user's videos, refreshing any still in flight.
	List(ctx context.Context, userID string) ([]model.Video, error)
	// ProviderCredits reports the remaining provider-side account credits.
	ProviderCredits(ctx context.Context) (int, error)
}

type videoService struct {
	videos    repository.VideoRepository
	users     repository.UserRepository
	generator VideoGenerator
	logger    zerolog.Logger
}

// NewVideoService creates a new VideoService.
func NewVideoService(videos repository.VideoRepository, users repository.UserRepository, generator VideoGenerator, logger zerolog.Logger) VideoService {
	return &videoService{
		videos:    videos,
		users:     users,
		generator: generator,
		logger:    logger.With().Str("service", "VideoService").Logger(),
	}
}

func (s *videoService) Generate(ctx context.Context, userID string, p GenerateVideoParams) (*model.Video, error) {
	balance, err := s.users.GetTokenBalance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read balance for user %s: %w", userID, err)
	}
	if balance < VideoTokenCost {
		return nil, repository.ErrInsufficientTokens
	}

	credits, err := s.generator.RemainingCredits(ctx)
	if err != nil {
		return nil, fmt.Errorf("check provider credits: %w", err)
	}
	if credits < 1 {
		return nil, ErrProviderCreditsExhausted
	}

	if p.Seed == 0 {
		p.Seed = 10000 + rand.Intn(90000)
	}

	req := VideoGenerationRequest{
		Prompt:      p.Prompt,
		AspectRatio: p.AspectRatio,
		Seed:        p.Seed,
	}
	if p.ImageURL != "" {
		req.ImageURLs = []string{p.ImageURL}
	}
	taskID, err := s.generator.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	v := &model.Video{
		UserID:      userID,
		Prompt:      p.Prompt,
		AspectRatio: p.AspectRatio,
		Seed:        p.Seed,
		VideoID:     taskID,
		Status:      model.VideoGenerating,
	}
	if p.ImageURL != "" {
		v.ImageURL = &p.ImageURL
	}
	if err := s.videos.CreateWithDebit(ctx, v, VideoTokenCost); err != nil {
		if errors.Is(err, repository.ErrInsufficientTokens) {
			// The provider accepted the task but the debit lost a race with
			// another spend. Log the anomaly; the task is not recorded and
			// the user is not billed. Never retried.
			s.logger.Error().Str("user_id", userID).Str("task_id", taskID).
				Msg("Video task accepted but debit failed; user was not billed")
		}
		return nil, err
	}
	return v, nil
}

func (s *videoService) Details(ctx context.Context, taskID string) (*model.Video, error) {
	v, err := s.videos.GetByTaskID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	if !v.Status.InFlight() {
		return v, nil
	}
	return s.refresh(ctx, v)
}

func (s *videoService) List(ctx context.Context, userID string) ([]model.Video, error) {
	videos, err := s.videos.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range videos {
		if !videos[i].Status.InFlight() {
			continue
		}
		fresh, err := s.refresh(ctx, &videos[i])
		if err != nil {
			// A poll failure leaves the stored status in place.
			s.logger.Warn().Err(err).Str("task_id", videos[i].VideoID).Msg("Could not refresh video status")
			continue
		}
		videos[i] = *fresh
	}
	return videos, nil
}

func (s *videoService) ProviderCredits(ctx context.Context) (int, error) {
	return s.generator.RemainingCredits(ctx)
}

// refresh polls the provider and persists any status change. Token fields
// are never touched here.
func (s *videoService) refresh(ctx context.Context, v *model.Video) (*model.Video, error) {
	details, err := s.generator.TaskDetails(ctx, v.VideoID)
	if err != nil {
		return nil, err
	}

	status := mapProviderStatus(details.Status)
	if status == v.Status && details.VideoURL == v.VideoURL {
		return v, nil
	}
	if err := s.videos.UpdateStatusByTaskID(ctx, v.VideoID, status, details.VideoURL); err != nil {
		return nil, err
	}
	v.Status = status
	if details.VideoURL != "" {
		v.VideoURL = details.VideoURL
	}
	return v, nil
}

func mapProviderStatus(s string) model.VideoStatus {
	switch s {
	case "completed":
		return model.VideoCompleted
	case "failed":
		return model.VideoFailed
	case "pending":
		return model.VideoPending
	default:
		return model.VideoProcessing
	}
}
