package service

import (
	"context"
	"fmt"

	"app/internal/config"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// SecretManagerService resolves gateway and provider credentials from GCP
// Secret Manager for deployments that do not inject them via environment.
type SecretManagerService interface {
	GetSecret(ctx context.Context, name string) (string, error)
	Close() error
}

type secretManagerService struct {
	client    *secretmanager.Client
	projectID string
}

// NewSecretManagerService creates a new SecretManagerService.
func NewSecretManagerService(ctx context.Context, cfg *config.Config) (SecretManagerService, error) {
	if cfg.GCPProjectID == "" {
		return nil, fmt.Errorf("GCP project ID is not set")
	}

	var opts []option.ClientOption
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}

	return &secretManagerService{
		client:    client,
		projectID: cfg.GCPProjectID,
	}, nil
}

func (s *secretManagerService) GetSecret(ctx context.Context, name string) (string, error) {
	resourceName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", s.projectID, name)

	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: resourceName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret %s: %w", name, err)
	}
	return string(result.Payload.Data), nil
}

func (s *secretManagerService) Close() error {
	return s.client.Close()
}

// ResolveSecrets fills in any gateway/provider credentials missing from the
// environment when a GCP project is configured. Missing individual secrets
// are logged and skipped; the corresponding feature stays disabled.
func ResolveSecrets(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	if cfg.GCPProjectID == "" {
		return nil
	}

	sm, err := NewSecretManagerService(ctx, cfg)
	if err != nil {
		return err
	}
	defer sm.Close()

	targets := []struct {
		name string
		dest *string
	}{
		{"cashfree-secret-key", &cfg.CashfreeSecretKey},
		{"fal-api-key", &cfg.FalAPIKey},
		{"veo3-api-key", &cfg.Veo3APIKey},
	}
	for _, t := range targets {
		if *t.dest != "" {
			continue
		}
		value, err := sm.GetSecret(ctx, t.name)
		if err != nil {
			logger.Warn().Err(err).Str("secret", t.name).Msg("Could not resolve secret; feature will be unavailable")
			continue
		}
		*t.dest = value
	}
	return nil
}
