package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"app/internal/model"
)

// VideoRepository persists video generation records. Creation and the token
// debit are one transaction: a record only exists if the debit committed.
type VideoRepository interface {
	// CreateWithDebit inserts the video record and conditionally debits the
	// tariff from the user's balance in a single transaction. Returns
	// ErrInsufficientTokens (and writes nothing) when the balance no longer
	// covers the tariff at commit time.
	CreateWithDebit(ctx context.Context, v *model.Video, tariff int) error
	GetByTaskID(ctx context.Context, taskID string) (*model.Video, error)
	ListByUserID(ctx context.Context, userID string) ([]model.Video, error)
	// UpdateStatusByTaskID persists the latest provider-observed status and
	// URL. Token fields are deliberately not touched.
	UpdateStatusByTaskID(ctx context.Context, taskID string, status model.VideoStatus, videoURL string) error
}

type videoRepo struct {
	db *sql.DB
}

// NewVideoRepo creates a new VideoRepository.
func NewVideoRepo(db *sql.DB) VideoRepository {
	return &videoRepo{db: db}
}

func (r *videoRepo) CreateWithDebit(ctx context.Context, v *model.Video, tariff int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin video create: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const q = `
		INSERT INTO videos (user_id, prompt, aspect_ratio, seed, image_url, video_url, video_id, status, tokens_used)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	v.TokensUsed = tariff
	err = tx.QueryRowContext(ctx, q,
		v.UserID, v.Prompt, v.AspectRatio, v.Seed, v.ImageURL, v.VideoURL, v.VideoID, v.Status, v.TokensUsed,
	).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert video for user %s: %w", v.UserID, err)
	}

	if err := debitTokens(ctx, tx, v.UserID, tariff); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit video create for user %s: %w", v.UserID, err)
	}
	return nil
}

func (r *videoRepo) GetByTaskID(ctx context.Context, taskID string) (*model.Video, error) {
	const q = `
		SELECT id, user_id, prompt, aspect_ratio, seed, image_url, video_url, video_id, status, tokens_used, created_at, updated_at
		FROM videos
		WHERE video_id = $1
	`
	var v model.Video
	row := r.db.QueryRowContext(ctx, q, taskID)
	if err := row.Scan(&v.ID, &v.UserID, &v.Prompt, &v.AspectRatio, &v.Seed, &v.ImageURL, &v.VideoURL,
		&v.VideoID, &v.Status, &v.TokensUsed, &v.CreatedAt, &v.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan video %s: %w", taskID, err)
	}
	return &v, nil
}

func (r *videoRepo) ListByUserID(ctx context.Context, userID string) ([]model.Video, error) {
	const q = `
		SELECT id, user_id, prompt, aspect_ratio, seed, image_url, video_url, video_id, status, tokens_used, created_at, updated_at
		FROM videos
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list videos for user %s: %w", userID, err)
	}
	defer rows.Close()

	var videos []model.Video
	for rows.Next() {
		var v model.Video
		if err := rows.Scan(&v.ID, &v.UserID, &v.Prompt, &v.AspectRatio, &v.Seed, &v.ImageURL, &v.VideoURL,
			&v.VideoID, &v.Status, &v.TokensUsed, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return []model.Video{}, nil
	}
	return videos, nil
}

func (r *videoRepo) UpdateStatusByTaskID(ctx context.Context, taskID string, status model.VideoStatus, videoURL string) error {
	const q = `
		UPDATE videos
		SET status = $2, video_url = $3, updated_at = NOW()
		WHERE video_id = $1
	`
	if _, err := r.db.ExecContext(ctx, q, taskID, status, videoURL); err != nil {
		return fmt.Errorf("update video status %s: %w", taskID, err)
	}
	return nil
}
