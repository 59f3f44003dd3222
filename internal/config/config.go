package config

import (
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port               string `envconfig:"PORT" default:"8080"`
	Environment        string `envconfig:"ENV" default:"development"`
	DBConnectionString string `envconfig:"DATABASE_URL" required:"true"`

	JWTSecret              string `envconfig:"JWT_SECRET" required:"true"`
	AccessTokenTTLMinutes  int    `envconfig:"ACCESS_TOKEN_TTL_MIN" default:"30"`
	RefreshTokenTTLMinutes int    `envconfig:"REFRESH_TOKEN_TTL_MIN" default:"10080"`

	// File storage settings
	StorageBackend    string `envconfig:"STORAGE_BACKEND" default:"disk"`
	UploadDir         string `envconfig:"UPLOAD_DIR" default:"uploads"`
	MaxFileSizeBytes  int64  `envconfig:"MAX_FILE_SIZE_BYTES" default:"10485760"`
	StorageQuotaBytes int64  `envconfig:"STORAGE_QUOTA_BYTES" default:"1073741824"`
	AllowedExtensions string `envconfig:"ALLOWED_EXTENSIONS" default:"csv,xlsx,xls,json,txt"`

	// S3-compatible storage (only used when STORAGE_BACKEND=s3)
	S3URL       string `envconfig:"S3_URL"`
	S3Bucket    string `envconfig:"S3_BUCKET"`
	S3Region    string `envconfig:"S3_REGION"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`

	// Analysis worker settings
	AnalysisQueueName           string `envconfig:"ANALYSIS_QUEUE_NAME" default:"analysis_queue"`
	AnalysisDeadLetterQueueName string `envconfig:"ANALYSIS_DEAD_LETTER_QUEUE_NAME" default:"analysis_queue_dlq"`
	AnalysisPollTimeoutSec      int    `envconfig:"ANALYSIS_POLL_TIMEOUT_SEC" default:"30"`
	AnalysisPollMaxMsg          int    `envconfig:"ANALYSIS_POLL_MAX_MSG" default:"1"`
	AnalysisMaxRetries          int    `envconfig:"ANALYSIS_MAX_RETRIES" default:"3"`
	AnalysisBackoffInitialSec   int    `envconfig:"ANALYSIS_BACKOFF_INITIAL_SEC" default:"1"`
	AnalysisBackoffMaxSec       int    `envconfig:"ANALYSIS_BACKOFF_MAX_SEC" default:"30"`
	AnalysisInline              bool   `envconfig:"ANALYSIS_INLINE" default:"false"`

	// Rate limiting (disabled when REDIS_URL is empty)
	RedisURL           string `envconfig:"REDIS_URL"`
	RateLimitPerMinute int    `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60"`
	RateLimitBurst     int    `envconfig:"RATE_LIMIT_BURST" default:"10"`

	// Stripe settings
	StripeSecretKey       string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret   string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	StripePortalReturnURL string `envconfig:"STRIPE_PORTAL_RETURN_URL" default:"http://localhost:3000/account"`

	// Email settings (delivery skipped when SENDGRID_API_KEY is empty)
	SendGridAPIKey string `envconfig:"SENDGRID_API_KEY"`
	EmailFrom      string `envconfig:"EMAIL_FROM" default:"no-reply@localhost"`
	EmailFromName  string `envconfig:"EMAIL_FROM_NAME" default:"Data Analytics"`
	AppBaseURL     string `envconfig:"APP_BASE_URL" default:"http://localhost:3000"`

	CORSOrigins string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AllowedExtensionList splits the configured extension allow-list.
func (c *Config) AllowedExtensionList() []string {
	parts := strings.Split(c.AllowedExtensions, ",")
	exts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			exts = append(exts, p)
		}
	}
	return exts
}

// CORSOriginList splits the configured CORS origins.
func (c *Config) CORSOriginList() []string {
	parts := strings.Split(c.CORSOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
