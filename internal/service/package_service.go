package service

import (
	"context"
	"fmt"

	"app/internal/model"
	"app/internal/repository"

	"github.com/rs/zerolog"
)

// PackageService exposes the token-package catalog. The catalog is the single
// source of truth for pricing and token amounts; nothing client-supplied is
// ever trusted for either.
type PackageService interface {
	GetByID(ctx context.Context, id string) (*model.TokenPackage, error)
	ListActive(ctx context.Context) ([]model.TokenPackage, error)
	// ValidateAmount reports whether amount matches the live catalog price of
	// the package. Unknown or inactive packages validate false.
	ValidateAmount(ctx context.Context, packageID string, amount int) (bool, error)
}

type packageService struct {
	packages repository.PackageRepository
	logger   zerolog.Logger
}

// NewPackageService creates a new PackageService.
func NewPackageService(packages repository.PackageRepository, logger zerolog.Logger) PackageService {
	return &packageService{
		packages: packages,
		logger:   logger.With().Str("service", "PackageService").Logger(),
	}
}

func (s *packageService) GetByID(ctx context.Context, id string) (*model.TokenPackage, error) {
	pkg, err := s.packages.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get package %s: %w", id, err)
	}
	return pkg, nil
}

func (s *packageService) ListActive(ctx context.Context) ([]model.TokenPackage, error) {
	packages, err := s.packages.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	return packages, nil
}

func (s *packageService) ValidateAmount(ctx context.Context, packageID string, amount int) (bool, error) {
	pkg, err := s.packages.GetByID(ctx, packageID)
	if err != nil {
		return false, fmt.Errorf("validate amount for package %s: %w", packageID, err)
	}
	if pkg == nil {
		return false, nil
	}
	return pkg.Price == amount, nil
}
