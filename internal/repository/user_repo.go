package repository

import (
	"context"
	"database/sql"
	"errors"

	"app/internal/model"
)

// ErrInsufficientTokens is returned when a debit would take the balance
// below zero.
var ErrInsufficientTokens = errors.New("insufficient_tokens")

// UserRepository reads users and their token balance. The balance has no
// setter here: credits happen inside the settlement transaction
// (PaymentRepository.Settle) and debits inside the content-creation
// transactions (ImageRepository/VideoRepository CreateWithDebit).
type UserRepository interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetTokenBalance(ctx context.Context, id string) (int, error)
}

type userRepo struct {
	db *sql.DB
}

// NewUserRepo creates a new UserRepository.
func NewUserRepo(db *sql.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	query := `
		SELECT id, name, email, tokens, is_active, email_verified, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Tokens, &u.IsActive, &u.EmailVerified, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetTokenBalance(ctx context.Context, id string) (int, error) {
	var tokens int
	query := `SELECT tokens FROM users WHERE id = $1`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&tokens); err != nil {
		return 0, err
	}
	return tokens, nil
}

// debitTokens performs the conditional atomic decrement inside an existing
// transaction. Zero rows affected means the balance no longer covers the
// tariff; the caller must roll back.
func debitTokens(ctx context.Context, tx *sql.Tx, userID string, amount int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET tokens = tokens - $2, updated_at = NOW()
		WHERE id = $1 AND tokens >= $2
	`, userID, amount)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInsufficientTokens
	}
	return nil
}
