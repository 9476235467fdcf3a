package model

import "time"

// VideoStatus tracks the provider-side lifecycle of a video generation task.
// It only ever advances through on-demand polling; token fields are written
// once at creation and never re-touched.
type VideoStatus string

const (
	VideoGenerating VideoStatus = "generating"
	VideoPending    VideoStatus = "pending"
	VideoProcessing VideoStatus = "processing"
	VideoCompleted  VideoStatus = "completed"
	VideoFailed     VideoStatus = "failed"
)

// InFlight reports whether the provider may still change this status.
func (s VideoStatus) InFlight() bool {
	switch s {
	case VideoGenerating, VideoPending, VideoProcessing:
		return true
	}
	return false
}

// Video is a video generation record. VideoID is the provider task id used
// for status polling.
type Video struct {
	ID          string      `db:"id" json:"id"`
	UserID      string      `db:"user_id" json:"user_id"`
	Prompt      string      `db:"prompt" json:"prompt"`
	AspectRatio string      `db:"aspect_ratio" json:"aspect_ratio"`
	Seed        int         `db:"seed" json:"seed"`
	ImageURL    *string     `db:"image_url" json:"image_url,omitempty"`
	VideoURL    string      `db:"video_url" json:"video_url"`
	VideoID     string      `db:"video_id" json:"video_id"`
	Status      VideoStatus `db:"status" json:"status"`
	TokensUsed  int         `db:"tokens_used" json:"tokens_used"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}
