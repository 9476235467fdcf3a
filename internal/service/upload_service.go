package service

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// UploadTicket is a presigned PUT grant for one reference image. The client
// uploads directly to storage; the backend never proxies the bytes.
type UploadTicket struct {
	StoragePath string
	UploadURL   string
	PublicURL   string
}

// UploadService issues presigned upload URLs for reference images used in
// image-to-image and image-to-video generation.
type UploadService interface {
	InitiateUpload(ctx context.Context, userID, filename string) (*UploadTicket, error)
}

type uploadService struct {
	presignClient *s3.PresignClient
	s3URL         string
	bucket        string
	logger        zerolog.Logger
}

// NewUploadService creates a new UploadService.
func NewUploadService(s3Client *s3.Client, s3URL, bucket string, logger zerolog.Logger) UploadService {
	return &uploadService{
		presignClient: s3.NewPresignClient(s3Client),
		s3URL:         s3URL,
		bucket:        bucket,
		logger:        logger.With().Str("service", "UploadService").Logger(),
	}
}

func (s *uploadService) InitiateUpload(ctx context.Context, userID, filename string) (*UploadTicket, error) {
	storagePath := fmt.Sprintf("references/%s/%s-%s", userID, uuid.NewString(), filename)

	request, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storagePath),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return nil, fmt.Errorf("presign upload for %s: %w", storagePath, err)
	}

	return &UploadTicket{
		StoragePath: storagePath,
		UploadURL:   request.URL,
		PublicURL:   fmt.Sprintf("%s/%s/%s", s.s3URL, s.bucket, storagePath),
	}, nil
}
