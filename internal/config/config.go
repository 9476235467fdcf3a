package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`

	DBConnectionString string `envconfig:"DATABASE_URL" required:"true"`
	JWTSecret          string `envconfig:"JWT_SECRET" required:"true"`

	// Public base URL of this deployment, used to build the gateway's
	// return and notify URLs.
	AppBaseURL string `envconfig:"APP_BASE_URL" default:"http://localhost:8080"`

	// Cashfree payment gateway settings
	CashfreeAppID       string `envconfig:"CASHFREE_APP_ID"`
	CashfreeSecretKey   string `envconfig:"CASHFREE_SECRET_KEY"`
	CashfreeEnvironment string `envconfig:"CASHFREE_ENVIRONMENT" default:"sandbox"`

	// Generation provider settings
	FalAPIKey  string `envconfig:"FAL_API_KEY"`
	FalBaseURL string `envconfig:"FAL_BASE_URL" default:"https://fal.run"`
	Veo3APIKey string `envconfig:"VEO3_API_KEY"`
	KieBaseURL string `envconfig:"KIE_BASE_URL" default:"https://api.kie.ai"`

	// S3-compatible storage for reference-image uploads
	S3URL       string `envconfig:"S3_URL"`
	S3Bucket    string `envconfig:"S3_BUCKET"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`

	// When set, missing gateway/provider secrets are resolved from
	// GCP Secret Manager instead of the environment.
	GCPProjectID string `envconfig:"GCP_PROJECT_ID"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
