package domain

import (
	"github.com/yungbote/ielts-backend/internal/domain/analytics"
	"github.com/yungbote/ielts-backend/internal/domain/assessment"
	"github.com/yungbote/ielts-backend/internal/domain/auth"
	"github.com/yungbote/ielts-backend/internal/domain/content"
	"github.com/yungbote/ielts-backend/internal/domain/jobs"
	"github.com/yungbote/ielts-backend/internal/domain/learning"
	"github.com/yungbote/ielts-backend/internal/domain/progress"
	"github.com/yungbote/ielts-backend/internal/domain/tutor"
	"github.com/yungbote/ielts-backend/internal/domain/user"
	"github.com/yungbote/ielts-backend/internal/domain/vocab"
)

type (
	User      = user.User
	UserToken = auth.UserToken

	JobRun = jobs.JobRun

	SpeakingSession   = assessment.SpeakingSession
	WritingSubmission = assessment.WritingSubmission
	ObjectiveAttempt  = assessment.ObjectiveAttempt
	ReadingTest       = assessment.ReadingTest
	ListeningTest     = assessment.ListeningTest

	UserProgress = progress.UserProgress
	ContentItem  = content.ContentItem

	LearningPath     = learning.LearningPath
	LearningPathStep = learning.LearningPathStep
	Recommendation   = learning.Recommendation

	TutorThread  = tutor.TutorThread
	TutorMessage = tutor.TutorMessage

	VocabCard = vocab.VocabCard

	AnalyticsSnapshot = analytics.AnalyticsSnapshot
)

const (
	SkillListening = assessment.SkillListening
	SkillReading   = assessment.SkillReading
	SkillWriting   = assessment.SkillWriting
	SkillSpeaking  = assessment.SkillSpeaking

	JobStatusQueued    = jobs.StatusQueued
	JobStatusRunning   = jobs.StatusRunning
	JobStatusSucceeded = jobs.StatusSucceeded
	JobStatusFailed    = jobs.StatusFailed
	JobStatusCanceled  = jobs.StatusCanceled

	JobTypeSpeakingEvaluate   = jobs.TypeSpeakingEvaluate
	JobTypeWritingEvaluate    = jobs.TypeWritingEvaluate
	JobTypeExamGenerate       = jobs.TypeExamGenerate
	JobTypeEmailSend          = jobs.TypeEmailSend
	JobTypeAnalyticsAggregate = jobs.TypeAnalyticsAggregate
	JobTypeFileCleanup        = jobs.TypeFileCleanup
	JobTypeProgressDigest     = jobs.TypeProgressDigest
)

var Skills = assessment.Skills

func IsTerminalJobStatus(status string) bool { return jobs.IsTerminal(status) }

// Models lists every table managed by AutoMigrate.
func Models() []interface{} {
	return []interface{}{
		&User{},
		&UserToken{},
		&JobRun{},
		&ContentItem{},
		&SpeakingSession{},
		&WritingSubmission{},
		&ReadingTest{},
		&ListeningTest{},
		&UserProgress{},
		&LearningPath{},
		&LearningPathStep{},
		&Recommendation{},
		&TutorThread{},
		&TutorMessage{},
		&VocabCard{},
		&AnalyticsSnapshot{},
	}
}
