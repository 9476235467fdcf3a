package repository

import (
	"context"
	"database/sql"
	"errors"

	"app/internal/model"
)

// PackageRepository reads the token-package catalog. The catalog is seeded by
// an administrator process and read-only from the request path; reads always
// hit storage so pricing reflects live state.
type PackageRepository interface {
	// GetByID returns the package, or nil when it does not exist or is inactive.
	GetByID(ctx context.Context, id string) (*model.TokenPackage, error)
	// ListActive returns active packages ordered by ascending price.
	ListActive(ctx context.Context) ([]model.TokenPackage, error)
}

type packageRepo struct {
	db *sql.DB
}

// NewPackageRepo creates a new PackageRepository.
func NewPackageRepo(db *sql.DB) PackageRepository {
	return &packageRepo{db: db}
}

func (r *packageRepo) GetByID(ctx context.Context, id string) (*model.TokenPackage, error) {
	const q = `
		SELECT id, name, description, tokens, price, currency, is_active, created_at
		FROM token_packages
		WHERE id = $1 AND is_active = TRUE
	`
	var p model.TokenPackage
	row := r.db.QueryRowContext(ctx, q, id)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Tokens, &p.Price, &p.Currency, &p.IsActive, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *packageRepo) ListActive(ctx context.Context) ([]model.TokenPackage, error) {
	const q = `
		SELECT id, name, description, tokens, price, currency, is_active, created_at
		FROM token_packages
		WHERE is_active = TRUE
		ORDER BY price ASC
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var packages []model.TokenPackage
	for rows.Next() {
		var p model.TokenPackage
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Tokens, &p.Price, &p.Currency, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, err
		}
		packages = append(packages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(packages) == 0 {
		return []model.TokenPackage{}, nil
	}
	return packages, nil
}
