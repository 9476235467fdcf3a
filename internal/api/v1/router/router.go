package router

import (
	"context"
	"database/sql"
	"net/http"

	"app/internal/api/v1/handler"
	"app/internal/config"
	"app/internal/database"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// New wires the full application: database, external clients, repositories,
// services and handlers, mounted under /api.
func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *sql.DB, error) {
	// 1. Resolve any secrets not provided via environment.
	if err := service.ResolveSecrets(context.Background(), cfg, logger); err != nil {
		logger.Warn().Err(err).Msg("Secret resolution unavailable; using environment values only")
	}

	// 2. Open DB connection and run the bootstrap schema.
	db, err := database.Open(cfg.DBConnectionString, cfg.Environment)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	// 3. Initialize S3 client for reference-image uploads.
	s3Config, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	})

	// 4. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 5. External clients
	gateway := service.NewCashfreeClient(cfg, logger)
	imageGen := service.NewFalClient(cfg, logger)
	videoGen := service.NewKieClient(cfg, logger)

	// 6. Repositories, services, handlers
	userRepo := repository.NewUserRepo(db)
	packageRepo := repository.NewPackageRepo(db)
	orderRepo := repository.NewOrderRepo(db)
	paymentRepo := repository.NewPaymentRepo(db)
	videoRepo := repository.NewVideoRepo(db)
	imageRepo := repository.NewImageRepo(db)

	packageSvc := service.NewPackageService(packageRepo, logger)
	paymentSvc := service.NewPaymentService(orderRepo, paymentRepo, packageSvc, userRepo, gateway, cfg, logger)
	imageSvc := service.NewImageService(imageRepo, userRepo, imageGen, logger)
	videoSvc := service.NewVideoService(videoRepo, userRepo, videoGen, logger)
	creditSvc := service.NewCreditService(orderRepo, videoRepo, imageRepo, userRepo, logger)
	uploadSvc := service.NewUploadService(s3Client, cfg.S3URL, cfg.S3Bucket, logger)

	packageHandler := handler.NewPackageHandler(packageSvc, logger)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, validate, logger)
	imageHandler := handler.NewImageHandler(imageSvc, validate, logger)
	videoHandler := handler.NewVideoHandler(videoSvc, validate, logger)
	creditHandler := handler.NewCreditHandler(creditSvc, videoSvc, logger)
	uploadHandler := handler.NewUploadHandler(uploadSvc, validate, logger)

	// 7. Middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)

	// 8. Create ServeMux router with the API mounted under /api
	apiMux := http.NewServeMux()
	packageHandler.RegisterRoutes(apiMux)
	paymentHandler.RegisterRoutes(apiMux, authMiddleware)
	imageHandler.RegisterRoutes(apiMux, authMiddleware)
	videoHandler.RegisterRoutes(apiMux, authMiddleware)
	creditHandler.RegisterRoutes(apiMux, authMiddleware)
	uploadHandler.RegisterRoutes(apiMux, authMiddleware)

	mux := http.NewServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", apiMux))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// 9. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(c.Handler(mux)), db, nil
}

// removeDisableGzip is a workaround for S3 signature errors with some
// S3-compatible services. See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}
