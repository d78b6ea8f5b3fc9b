package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/ielts-backend/internal/data/aggregates"
	"github.com/yungbote/ielts-backend/internal/jobs/pipeline/analytics_aggregate"
	"github.com/yungbote/ielts-backend/internal/jobs/pipeline/email_send"
	"github.com/yungbote/ielts-backend/internal/jobs/pipeline/exam_generate"
	"github.com/yungbote/ielts-backend/internal/jobs/pipeline/file_cleanup"
	"github.com/yungbote/ielts-backend/internal/jobs/pipeline/progress_digest"
	"github.com/yungbote/ielts-backend/internal/jobs/pipeline/speaking_evaluate"
	"github.com/yungbote/ielts-backend/internal/jobs/pipeline/writing_evaluate"
	jobruntime "github.com/yungbote/ielts-backend/internal/jobs/runtime"
	"github.com/yungbote/ielts-backend/internal/jobs/scheduler"
	"github.com/yungbote/ielts-backend/internal/jobs/worker"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/realtime"
	"github.com/yungbote/ielts-backend/internal/services"
	"github.com/yungbote/ielts-backend/internal/temporalx"
	"github.com/yungbote/ielts-backend/internal/temporalx/temporalworker"
)

type Services struct {
	// Core
	Avatar services.AvatarService
	Auth   services.AuthService
	User   services.UserService

	// Assessment
	Speaking  services.SpeakingService
	Writing   services.WritingService
	Objective services.ObjectiveService
	Progress  services.ProgressService
	Scores    services.ScoreRecorder
	Examiner  services.Examiner

	// Learning
	Content        services.ContentService
	LearningPath   services.LearningPathService
	Recommendation services.RecommendationService
	Analytics      services.AnalyticsService
	Tutor          services.TutorService
	ExamGenerator  services.ExamGeneratorService
	Vocab          services.VocabService
	Email          services.EmailService

	// Jobs + notifications
	Emitter     services.SSEEmitter
	JobNotifier services.JobNotifier
	JobService  services.JobService

	// Job infra; at most one of JobWorker and TemporalWorker is set.
	JobRegistry    *jobruntime.Registry
	JobWorker      *worker.Worker
	TemporalWorker *temporalworker.Runner
	Scheduler      *scheduler.Scheduler
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, tcfg temporalx.Config, repos Repos, sseHub *realtime.SSEHub, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	var emitter services.SSEEmitter
	switch {
	case clients.SSEBus != nil:
		// Publish through Redis; every API instance forwards into its hub.
		emitter = &services.BusEmitter{Bus: clients.SSEBus, Hub: sseHub, Log: log}
	case cfg.RunServer:
		emitter = &services.HubEmitter{Hub: sseHub}
	default:
		return Services{}, fmt.Errorf("a worker-only process requires REDIS_ADDR to publish SSE events")
	}

	jobNotifier := services.NewJobNotifier(emitter)
	jobService := services.NewJobService(db, log, repos.JobRun, jobNotifier, clients.Temporal, tcfg.TaskQueue)

	avatarService, err := services.NewAvatarService(log, clients.GcpBucket)
	if err != nil {
		return Services{}, fmt.Errorf("init avatar service: %w", err)
	}
	authService := services.NewAuthService(db, log, repos.User, repos.UserToken, avatarService, jobService, services.AuthConfig{
		JWTSecret:   cfg.JWTSecretKey,
		AccessTTL:   cfg.AccessTokenTTL,
		RefreshTTL:  cfg.RefreshTokenTTL,
		AdminEmails: cfg.AdminEmails,
	})
	userService := services.NewUserService(log, repos.User, avatarService, emitter)

	progressService := services.NewProgressService(db, log, repos.UserProgress, repos.User)
	recommendationService := services.NewRecommendationService(log, repos.Recommendation, repos.UserProgress, repos.User, repos.ContentItem)
	scores := services.NewScoreRecorder(log, progressService, recommendationService, emitter)
	examiner := services.NewExaminer(log, clients.OpenaiClient)

	speakingService := services.NewSpeakingService(db, log, repos.SpeakingSession, repos.ContentItem, clients.GcpBucket, jobService)
	writingService := services.NewWritingService(db, log, repos.WritingSubmission, repos.ContentItem, repos.User, clients.GcpBucket, jobService)
	objectiveService := services.NewObjectiveService(db, log, repos.ReadingTest, repos.ListeningTest, repos.ContentItem, scores)

	contentService := services.NewContentService(log, repos.ContentItem)
	learningPathService := services.NewLearningPathService(db, log, repos.LearningPath, repos.UserProgress, repos.User, repos.ContentItem)

	feed, err := aggregates.New(db, log)
	if err != nil {
		return Services{}, fmt.Errorf("init aggregates store: %w", err)
	}
	analyticsService := services.NewAnalyticsService(log, feed, repos.Snapshot, progressService)
	tutorService := services.NewTutorService(log, repos.TutorThread, repos.TutorMessage, progressService, clients.OpenaiClient)
	examGenerator := services.NewExamGeneratorService(log, clients.OpenaiClient, repos.ContentItem, jobService)
	vocabService := services.NewVocabService(log, repos.VocabCard)
	emailService := services.NewEmailService(log, clients.Mail, repos.User, analyticsService, cfg.AppURL)

	// Job registry
	jobRegistry := jobruntime.NewRegistry()
	handlers := []jobruntime.Handler{
		speaking_evaluate.New(db, log, repos.SpeakingSession, clients.GcpBucket, clients.GcpSpeech, examiner, scores, cfg.SpeechLanguage),
		writing_evaluate.New(db, log, repos.WritingSubmission, clients.GcpBucket, clients.OCR, examiner, scores),
		exam_generate.New(log, examGenerator),
		email_send.New(log, emailService),
		analytics_aggregate.New(log, analyticsService),
		file_cleanup.New(log, repos.SpeakingSession, repos.WritingSubmission, repos.UserToken, clients.GcpBucket, cfg.FileRetentionDays),
		progress_digest.New(log, repos.User, emailService),
	}
	for _, h := range handlers {
		if err := jobRegistry.Register(h); err != nil {
			return Services{}, err
		}
	}

	out := Services{
		Avatar:         avatarService,
		Auth:           authService,
		User:           userService,
		Speaking:       speakingService,
		Writing:        writingService,
		Objective:      objectiveService,
		Progress:       progressService,
		Scores:         scores,
		Examiner:       examiner,
		Content:        contentService,
		LearningPath:   learningPathService,
		Recommendation: recommendationService,
		Analytics:      analyticsService,
		Tutor:          tutorService,
		ExamGenerator:  examGenerator,
		Vocab:          vocabService,
		Email:          emailService,
		Emitter:        emitter,
		JobNotifier:    jobNotifier,
		JobService:     jobService,
		JobRegistry:    jobRegistry,
	}

	if cfg.RunWorker {
		if clients.Temporal != nil {
			w, err := temporalworker.NewRunner(log, tcfg, clients.Temporal, db, repos.JobRun, jobRegistry, jobNotifier)
			if err != nil {
				return Services{}, fmt.Errorf("init temporal worker: %w", err)
			}
			out.TemporalWorker = w
		} else {
			out.JobWorker = worker.NewWorker(db, log, repos.JobRun, jobRegistry, jobNotifier)
		}
		if cfg.SchedulerEnabled {
			out.Scheduler = scheduler.New(log, jobService, nil)
		}
	}
	return out, nil
}
