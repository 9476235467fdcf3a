package dto

import "time"

// GenerateImageDTO is used for incoming image generation requests.
type GenerateImageDTO struct {
	Prompt      string `json:"prompt" validate:"required,max=2000"`
	AspectRatio string `json:"aspect_ratio" validate:"required,oneof=1:1 16:9 9:16"`
	// ImageURL switches generation to image-to-image mode.
	ImageURL string `json:"image_url,omitempty" validate:"omitempty,url"`
}

// ImageListResponseDTO is the paginated image listing.
type ImageListResponseDTO struct {
	Images     []ImageResponseDTO `json:"images"`
	Pagination PaginationDTO      `json:"pagination"`
}

// ImageResponseDTO is returned for generated images.
type ImageResponseDTO struct {
	ID          string    `json:"id"`
	Prompt      string    `json:"prompt"`
	AspectRatio string    `json:"aspect_ratio"`
	ImageURL    string    `json:"image_url"`
	ImageID     string    `json:"image_id"`
	TokensUsed  int       `json:"tokens_used"`
	CreatedAt   time.Time `json:"created_at"`
}
