package app

import (
	"time"

	"github.com/yungbote/ielts-backend/internal/jobs/pipeline/file_cleanup"
	"github.com/yungbote/ielts-backend/internal/platform/envutil"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

const defaultJWTSecret = "defaultsecret"

type Config struct {
	Env         string
	Version     string
	ServiceName string
	Port        string

	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	AdminEmails     []string

	CORSOrigins []string
	AppURL      string

	// Process roles; a single binary can serve HTTP, run jobs, or both.
	RunServer        bool
	RunWorker        bool
	SchedulerEnabled bool

	FileRetentionDays int
	SpeechLanguage    string
	SpeechModel       string

	MetricsAddr string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		Env:         envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "ielts-api"),
		Port:        envutil.String("PORT", "8080"),

		JWTSecretKey:    envutil.String("JWT_SECRET_KEY", defaultJWTSecret),
		AccessTokenTTL:  envutil.Seconds("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenTTL: envutil.Seconds("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		AdminEmails:     envutil.List("ADMIN_EMAILS"),

		CORSOrigins: envutil.List("CORS_ALLOWED_ORIGINS"),
		AppURL:      envutil.String("APP_URL", "http://localhost:3000"),

		RunServer:        envutil.Bool("RUN_SERVER", true),
		RunWorker:        envutil.Bool("RUN_WORKER", true),
		SchedulerEnabled: envutil.Bool("SCHEDULER_ENABLED", true),

		FileRetentionDays: envutil.Int("FILE_RETENTION_DAYS", file_cleanup.DefaultRetentionDays),
		SpeechLanguage:    envutil.String("SPEECH_LANGUAGE", "en-GB"),
		SpeechModel:       envutil.String("SPEECH_MODEL", "latest_long"),

		MetricsAddr: envutil.String("METRICS_ADDR", ":9090"),
	}
	if cfg.JWTSecretKey == defaultJWTSecret {
		log.Warn("JWT_SECRET_KEY is not set; using the development default")
	}
	return cfg
}
