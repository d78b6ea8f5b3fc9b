package app

import (
	"gorm.io/gorm"

	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/http"
	httpH "github.com/yungbote/ielts-backend/internal/http/handlers"
	httpMW "github.com/yungbote/ielts-backend/internal/http/middleware"
	"github.com/yungbote/ielts-backend/internal/observability"
	"github.com/yungbote/ielts-backend/internal/platform/envutil"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/realtime"
)

type Middleware struct {
	Auth *httpMW.AuthMiddleware
}

type Handlers struct {
	Health         *httpH.HealthHandler
	Auth           *httpH.AuthHandler
	User           *httpH.UserHandler
	Realtime       *httpH.RealtimeHandler
	Job            *httpH.JobHandler
	Speaking       *httpH.SpeakingHandler
	Writing        *httpH.WritingHandler
	Reading        *httpH.ObjectiveHandler
	Listening      *httpH.ObjectiveHandler
	Progress       *httpH.ProgressHandler
	Content        *httpH.ContentHandler
	LearningPath   *httpH.LearningPathHandler
	Recommendation *httpH.RecommendationHandler
	Analytics      *httpH.AnalyticsHandler
	Tutor          *httpH.TutorHandler
	Exam           *httpH.ExamHandler
	Vocab          *httpH.VocabHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, services Services, sseHub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:         httpH.NewHealthHandler(db),
		Auth:           httpH.NewAuthHandler(services.Auth),
		User:           httpH.NewUserHandler(services.User),
		Realtime:       httpH.NewRealtimeHandler(log, sseHub),
		Job:            httpH.NewJobHandler(services.JobService),
		Speaking:       httpH.NewSpeakingHandler(services.Speaking),
		Writing:        httpH.NewWritingHandler(services.Writing),
		Reading:        httpH.NewObjectiveHandler(types.SkillReading, services.Objective),
		Listening:      httpH.NewObjectiveHandler(types.SkillListening, services.Objective),
		Progress:       httpH.NewProgressHandler(services.Progress),
		Content:        httpH.NewContentHandler(services.Content),
		LearningPath:   httpH.NewLearningPathHandler(services.LearningPath),
		Recommendation: httpH.NewRecommendationHandler(services.Recommendation),
		Analytics:      httpH.NewAnalyticsHandler(services.Analytics),
		Tutor:          httpH.NewTutorHandler(log, services.Tutor),
		Exam:           httpH.NewExamHandler(services.ExamGenerator),
		Vocab:          httpH.NewVocabHandler(services.Vocab),
	}
}

func wireMiddleware(log *logger.Logger, services Services) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		Auth: httpMW.NewAuthMiddleware(log, services.Auth),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers, middleware Middleware) *http.Server {
	return http.NewServer(http.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		CORSOrigins:    cfg.CORSOrigins,
		ServiceName:    cfg.ServiceName,
		TracingEnabled: envutil.Bool("OTEL_ENABLED", false),

		AuthMiddleware: middleware.Auth,

		HealthHandler:         handlers.Health,
		AuthHandler:           handlers.Auth,
		UserHandler:           handlers.User,
		RealtimeHandler:       handlers.Realtime,
		JobHandler:            handlers.Job,
		SpeakingHandler:       handlers.Speaking,
		WritingHandler:        handlers.Writing,
		ReadingHandler:        handlers.Reading,
		ListeningHandler:      handlers.Listening,
		ProgressHandler:       handlers.Progress,
		ContentHandler:        handlers.Content,
		LearningPathHandler:   handlers.LearningPath,
		RecommendationHandler: handlers.Recommendation,
		AnalyticsHandler:      handlers.Analytics,
		TutorHandler:          handlers.Tutor,
		ExamHandler:           handlers.Exam,
		VocabHandler:          handlers.Vocab,
	})
}
