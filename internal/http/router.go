package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/ielts-backend/internal/http/handlers"
	httpMW "github.com/yungbote/ielts-backend/internal/http/middleware"
	"github.com/yungbote/ielts-backend/internal/http/response"
	"github.com/yungbote/ielts-backend/internal/observability"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	CORSOrigins    []string
	ServiceName    string
	TracingEnabled bool

	AuthMiddleware *httpMW.AuthMiddleware

	AuthHandler           *httpH.AuthHandler
	UserHandler           *httpH.UserHandler
	RealtimeHandler       *httpH.RealtimeHandler
	JobHandler            *httpH.JobHandler
	SpeakingHandler       *httpH.SpeakingHandler
	WritingHandler        *httpH.WritingHandler
	ReadingHandler        *httpH.ObjectiveHandler
	ListeningHandler      *httpH.ObjectiveHandler
	ProgressHandler       *httpH.ProgressHandler
	ContentHandler        *httpH.ContentHandler
	LearningPathHandler   *httpH.LearningPathHandler
	RecommendationHandler *httpH.RecommendationHandler
	AnalyticsHandler      *httpH.AnalyticsHandler
	TutorHandler          *httpH.TutorHandler
	ExamHandler           *httpH.ExamHandler
	VocabHandler          *httpH.VocabHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	response.SetupValidator()

	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	r.Use(httpMW.Metrics(cfg.Metrics))
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Auth (public)
		if cfg.AuthHandler != nil {
			api.POST("/register", cfg.AuthHandler.Register)
			api.POST("/login", cfg.AuthHandler.Login)
			api.POST("/refresh", cfg.AuthHandler.Refresh)
		}
	}

	protected := api.Group("/")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}

	admin := protected.Group("/")
	if cfg.AuthMiddleware != nil {
		admin.Use(cfg.AuthMiddleware.RequireAdmin())
	}

	if h := cfg.AuthHandler; h != nil {
		protected.POST("/logout", h.Logout)
	}

	// Realtime (SSE)
	if h := cfg.RealtimeHandler; h != nil {
		protected.GET("/sse/stream", h.SSEStream)
	}

	// User (Me)
	if h := cfg.UserHandler; h != nil {
		protected.GET("/me", h.GetMe)
		protected.PATCH("/me", h.UpdateMe)
		protected.POST("/me/avatar", h.UploadAvatar)
	}

	// Jobs
	if h := cfg.JobHandler; h != nil {
		protected.GET("/jobs", h.ListJobs)
		protected.GET("/jobs/:id", h.GetJob)
		protected.POST("/jobs/:id/cancel", h.CancelJob)
		protected.POST("/jobs/:id/restart", h.RestartJob)
	}

	// Speaking
	if h := cfg.SpeakingHandler; h != nil {
		protected.POST("/speaking/sessions", h.CreateSession)
		protected.GET("/speaking/sessions", h.ListSessions)
		protected.GET("/speaking/sessions/:id", h.GetSession)
		protected.POST("/speaking/sessions/:id/audio", h.UploadAudio)
		protected.DELETE("/speaking/sessions/:id", h.DeleteSession)
	}

	// Writing
	if h := cfg.WritingHandler; h != nil {
		protected.POST("/writing/submissions", h.SubmitText)
		protected.POST("/writing/submissions/scan", h.SubmitScan)
		protected.GET("/writing/submissions", h.List)
		protected.GET("/writing/submissions/:id", h.Get)
		protected.DELETE("/writing/submissions/:id", h.Delete)
	}

	// Reading / Listening
	if h := cfg.ReadingHandler; h != nil {
		protected.POST("/reading/tests", h.Submit)
		protected.GET("/reading/tests", h.List)
		protected.GET("/reading/tests/:id", h.Get)
	}
	if h := cfg.ListeningHandler; h != nil {
		protected.POST("/listening/tests", h.Submit)
		protected.GET("/listening/tests", h.List)
		protected.GET("/listening/tests/:id", h.Get)
	}

	if h := cfg.ProgressHandler; h != nil {
		protected.GET("/progress", h.Summary)
	}

	// Content
	if h := cfg.ContentHandler; h != nil {
		protected.GET("/content", h.List)
		protected.GET("/content/:id", h.Get)
		admin.POST("/content", h.Create)
		admin.POST("/content/import", h.Import)
		admin.PATCH("/content/:id", h.Update)
		admin.DELETE("/content/:id", h.Delete)
		admin.POST("/content/:id/publish", h.Publish)
	}

	// Learning paths
	if h := cfg.LearningPathHandler; h != nil {
		protected.GET("/learning/paths", h.List)
		protected.POST("/learning/paths/generate", h.Generate)
		protected.GET("/learning/paths/active", h.GetActive)
		protected.POST("/learning/paths/steps/:id/complete", h.CompleteStep)
		protected.POST("/learning/paths/steps/:id/skip", h.SkipStep)
	}

	// Recommendations
	if h := cfg.RecommendationHandler; h != nil {
		protected.GET("/recommendations", h.List)
		protected.POST("/recommendations/refresh", h.Refresh)
		protected.POST("/recommendations/:id/dismiss", h.Dismiss)
		protected.POST("/recommendations/:id/done", h.MarkDone)
	}

	// Analytics
	if h := cfg.AnalyticsHandler; h != nil {
		protected.GET("/analytics/dashboard", h.Dashboard)
		protected.GET("/analytics/export", h.Export)
		admin.GET("/admin/analytics", h.Platform)
	}

	// Tutor
	if h := cfg.TutorHandler; h != nil {
		protected.POST("/tutor/threads", h.CreateThread)
		protected.GET("/tutor/threads", h.ListThreads)
		protected.DELETE("/tutor/threads/:id", h.DeleteThread)
		protected.GET("/tutor/threads/:id/messages", h.ListMessages)
		protected.POST("/tutor/threads/:id/messages", h.SendMessage)
	}

	if h := cfg.ExamHandler; h != nil {
		admin.POST("/exams/generate", h.Generate)
	}

	// Vocabulary
	if h := cfg.VocabHandler; h != nil {
		protected.POST("/vocabulary", h.AddCard)
		protected.GET("/vocabulary", h.List)
		protected.GET("/vocabulary/due", h.ListDue)
		protected.POST("/vocabulary/:id/review", h.Review)
		protected.DELETE("/vocabulary/:id", h.DeleteCard)
	}

	return r
}
