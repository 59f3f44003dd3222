package router

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"app/internal/api/v1/handler"
	"app/internal/config"
	"app/internal/email"
	"app/internal/middleware"
	"app/internal/pgmq"
	"app/internal/repository"
	"app/internal/service"
	"app/internal/storage"

	"github.com/go-playground/validator/v10"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// New wires the full API and returns the root handler plus the DB handle so
// main can close it on shutdown.
func New(cfg *config.Config, log zerolog.Logger) (http.Handler, *sql.DB, error) {
	log.Info().Str("environment", cfg.Environment).Msg("Initializing router")

	// 1. Open DB connection (connection pooling)
	db, err := OpenDB(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	// 2. Pick the blob storage backend
	blobs, err := newBlobStore(cfg)
	if err != nil {
		log.Error().Err(err).Str("backend", cfg.StorageBackend).Msg("Failed to initialize blob storage")
		return nil, nil, err
	}
	log.Info().Str("backend", cfg.StorageBackend).Msg("Blob storage initialized")

	// 3. Optional Redis client for rate limiting
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error().Err(err).Msg("Invalid REDIS_URL")
			return nil, nil, err
		}
		redisClient = redis.NewClient(opts)
	} else {
		log.Warn().Msg("REDIS_URL not set, rate limiting disabled")
	}

	// 4. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 5. Initialize repositories & services & handlers
	userRepo := repository.NewUserRepo(db)
	fileRepo := repository.NewFileRepo(db)
	analysisRepo := repository.NewAnalysisRepo(db)
	planRepo := repository.NewPlanRepo(db)

	queue := pgmq.New(db)
	mailer := email.New(cfg.SendGridAPIKey, cfg.EmailFrom, cfg.EmailFromName, cfg.AppBaseURL, log)

	authSvc := service.NewAuthService(cfg, userRepo, mailer, log)
	userSvc := service.NewUserService(cfg, userRepo)
	fileSvc := service.NewFileService(cfg, fileRepo, blobs, log)
	analysisSvc := service.NewAnalysisService(cfg, fileRepo, analysisRepo, userRepo, blobs, queue, log)
	subSvc := service.NewSubscriptionService(userRepo, planRepo, log)
	stripeSvc := service.NewStripeService(cfg, userRepo, planRepo, subSvc, log)

	authHandler := handler.NewAuthHandler(authSvc, userSvc, validate)
	userHandler := handler.NewUserHandler(userSvc, validate)
	fileHandler := handler.NewFileHandler(fileSvc, validate, cfg.MaxFileSizeBytes)
	analyticsHandler := handler.NewAnalyticsHandler(analysisSvc, validate)
	subscriptionHandler := handler.NewSubscriptionHandler(subSvc, stripeSvc, validate)

	// 6. Initialize middleware. The limiter keys on the authenticated user,
	// so it runs after auth on protected routes; public routes get the same
	// limiter keyed by client IP.
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret, log)
	rateLimit := middleware.RateLimit(redisClient, cfg.RateLimitPerMinute, cfg.RateLimitBurst, log)
	protect := func(next http.Handler) http.Handler {
		return authMiddleware(rateLimit(next))
	}

	// 7. Create ServeMux router and mount v1 routes
	apiV1Mux := http.NewServeMux()
	authHandler.RegisterRoutes(apiV1Mux, protect, rateLimit)
	userHandler.RegisterRoutes(apiV1Mux, protect, rateLimit)
	fileHandler.RegisterRoutes(apiV1Mux, protect, rateLimit)
	analyticsHandler.RegisterRoutes(apiV1Mux, protect, rateLimit)
	subscriptionHandler.RegisterRoutes(apiV1Mux, protect, rateLimit)

	mux := http.NewServeMux()
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))
	mux.Handle("/healthz", handler.NewHealthHandler(db))

	// 8. Apply CORS and request logging
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOriginList(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Stripe-Signature"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(log)(c.Handler(mux)), db, nil
}

// OpenDB opens the Postgres pool shared by the API and the worker.
func OpenDB(cfg *config.Config, log zerolog.Logger) (*sql.DB, error) {
	dsn := cfg.DBConnectionString
	// Local Postgres rarely has TLS configured; production DSNs should carry
	// their own sslmode.
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		dsn += separator + "sslmode=disable"
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Error().Err(err).Msg("Failed to open DB connection")
		return nil, err
	}
	if err := db.Ping(); err != nil {
		log.Error().Err(err).Msg("Failed to ping DB")
		return nil, err
	}
	log.Info().Msg("Database connection successful")

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

func newBlobStore(cfg *config.Config) (storage.Blobs, error) {
	switch cfg.StorageBackend {
	case "s3":
		return storage.NewS3(context.Background(), storage.S3Config{
			URL:       cfg.S3URL,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
	default:
		return storage.NewDisk(cfg.UploadDir)
	}
}
