package model

import "time"

// Image is an image generation record. Image generation is synchronous, so
// there is no status field; a row only exists for a delivered image.
type Image struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Prompt      string    `db:"prompt" json:"prompt"`
	AspectRatio string    `db:"aspect_ratio" json:"aspect_ratio"`
	ImageURL    string    `db:"image_url" json:"image_url"`
	ImageID     string    `db:"image_id" json:"image_id"`
	TokensUsed  int       `db:"tokens_used" json:"tokens_used"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
