package repository

import (
	"context"
	"database/sql"
	"fmt"

	"app/internal/model"
)

// ImageRepository persists image generation records. As with videos, the
// record insert and the token debit share one transaction.
type ImageRepository interface {
	CreateWithDebit(ctx context.Context, img *model.Image, tariff int) error
	ListByUserID(ctx context.Context, userID string) ([]model.Image, error)
}

type imageRepo struct {
	db *sql.DB
}

// NewImageRepo creates a new ImageRepository.
func NewImageRepo(db *sql.DB) ImageRepository {
	return &imageRepo{db: db}
}

func (r *imageRepo) CreateWithDebit(ctx context.Context, img *model.Image, tariff int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin image create: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const q = `
		INSERT INTO images (user_id, prompt, aspect_ratio, image_url, image_id, tokens_used)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	img.TokensUsed = tariff
	err = tx.QueryRowContext(ctx, q,
		img.UserID, img.Prompt, img.AspectRatio, img.ImageURL, img.ImageID, img.TokensUsed,
	).Scan(&img.ID, &img.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert image for user %s: %w", img.UserID, err)
	}

	if err := debitTokens(ctx, tx, img.UserID, tariff); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit image create for user %s: %w", img.UserID, err)
	}
	return nil
}

func (r *imageRepo) ListByUserID(ctx context.Context, userID string) ([]model.Image, error) {
	const q = `
		SELECT id, user_id, prompt, aspect_ratio, image_url, image_id, tokens_used, created_at
		FROM images
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list images for user %s: %w", userID, err)
	}
	defer rows.Close()

	var images []model.Image
	for rows.Next() {
		var img model.Image
		if err := rows.Scan(&img.ID, &img.UserID, &img.Prompt, &img.AspectRatio, &img.ImageURL,
			&img.ImageID, &img.TokensUsed, &img.CreatedAt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return []model.Image{}, nil
	}
	return images, nil
}
