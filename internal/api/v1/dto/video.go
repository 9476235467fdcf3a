package dto

import "time"

// GenerateVideoDTO is used for incoming video generation requests.
type GenerateVideoDTO struct {
	Prompt      string `json:"prompt" validate:"required,max=2000"`
	AspectRatio string `json:"aspect_ratio" validate:"required,oneof=16:9 9:16"`
	Seed        int    `json:"seed,omitempty" validate:"omitempty,min=10000,max=99999"`
	// ImageURL switches generation to image-to-video mode.
	ImageURL string `json:"image_url,omitempty" validate:"omitempty,url"`
}

// VideoListResponseDTO is the paginated video listing.
type VideoListResponseDTO struct {
	Videos     []VideoResponseDTO `json:"videos"`
	Pagination PaginationDTO      `json:"pagination"`
}

// VideoResponseDTO is returned for video records and generation starts.
type VideoResponseDTO struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	Prompt      string    `json:"prompt"`
	AspectRatio string    `json:"aspect_ratio"`
	Seed        int       `json:"seed"`
	ImageURL    *string   `json:"image_url,omitempty"`
	VideoURL    string    `json:"video_url,omitempty"`
	Status      string    `json:"status"`
	TokensUsed  int       `json:"tokens_used"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
