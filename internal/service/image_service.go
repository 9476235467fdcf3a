package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// ImageTokenCost is the flat tariff for one image generation.
const ImageTokenCost = 1

// GenerateImageParams is the validated input for an image generation.
type GenerateImageParams struct {
	Prompt            string
	AspectRatio       string
	ReferenceImageURL string
}

// ImageService runs synchronous image generations against the user's token
// balance.
type ImageService interface {
	Generate(ctx context.Context, userID string, p GenerateImageParams) (*model.Image, error)
	List(ctx context.Context, userID string) ([]model.Image, error)
}

type imageService struct {
	images    repository.ImageRepository
	users     repository.UserRepository
	generator ImageGenerator
	logger    zerolog.Logger
}

// NewImageService creates a new ImageService.
func NewImageService(images repository.ImageRepository, users repository.UserRepository, generator ImageGenerator, logger zerolog.Logger) ImageService {
	return &imageService{
		images:    images,
		users:     users,
		generator: generator,
		logger:    logger.With().Str("service", "ImageService").Logger(),
	}
}

// Generate checks the balance, calls the provider, then records the image and
// debits the tariff in one transaction. The pre-check keeps obviously broke
// requests away from the provider; the transactional debit is what actually
// enforces the balance.
func (s *imageService) Generate(ctx context.Context, userID string, p GenerateImageParams) (*model.Image, error) {
	balance, err := s.users.GetTokenBalance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read balance for user %s: %w", userID, err)
	}
	if balance < ImageTokenCost {
		return nil, repository.ErrInsufficientTokens
	}

	imageURL, err := s.generator.Generate(ctx, ImageGenerationRequest{
		Prompt:            p.Prompt,
		AspectRatio:       p.AspectRatio,
		ReferenceImageURL: p.ReferenceImageURL,
	})
	if err != nil {
		return nil, err
	}

	img := &model.Image{
		UserID:      userID,
		Prompt:      p.Prompt,
		AspectRatio: p.AspectRatio,
		ImageURL:    imageURL,
		ImageID:     fmt.Sprintf("fal-%d", time.Now().UnixMilli()),
	}
	if err := s.images.CreateWithDebit(ctx, img, ImageTokenCost); err != nil {
		if errors.Is(err, repository.ErrInsufficientTokens) {
			// Balance was drained between the pre-check and the debit. The
			// provider already produced the image; log the anomaly and report
			// the debit failure. Never retried.
			s.logger.Error().Str("user_id", userID).Str("image_url", imageURL).
				Msg("Image generated but debit failed; user was not billed")
		}
		return nil, err
	}
	return img, nil
}

func (s *imageService) List(ctx context.Context, userID string) ([]model.Image, error) {
	return s.images.ListByUserID(ctx, userID)
}
