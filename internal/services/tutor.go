package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/domain/assessment"
	"github.com/yungbote/ielts-backend/internal/domain/tutor"
	"github.com/yungbote/ielts-backend/internal/platform/apierr"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/platform/openai"
)

const (
	tutorHistoryMessages = 20
	maxTutorMessageChars = 4000
	defaultThreadTitle   = "New conversation"
)

type TutorReply struct {
	UserMessage      *types.TutorMessage `json:"user_message"`
	AssistantMessage *types.TutorMessage `json:"assistant_message"`
}

type TutorService interface {
	CreateThread(ctx context.Context, title, skill string) (*types.TutorThread, error)
	ListThreads(ctx context.Context) ([]*types.TutorThread, error)
	ListMessages(ctx context.Context, threadID uuid.UUID, limit int) ([]*types.TutorMessage, error)
	// SendMessage stores the question, streams the answer through onDelta
	// (nil for a buffered reply) and stores the answer.
	SendMessage(ctx context.Context, threadID uuid.UUID, content string, onDelta func(string)) (*TutorReply, error)
	DeleteThread(ctx context.Context, threadID uuid.UUID) error
}

type tutorService struct {
	log      *logger.Logger
	threads  repos.TutorThreadRepo
	messages repos.TutorMessageRepo
	progress ProgressService
	ai       openai.Client
}

func NewTutorService(
	baseLog *logger.Logger,
	threads repos.TutorThreadRepo,
	messages repos.TutorMessageRepo,
	progress ProgressService,
	ai openai.Client,
) TutorService {
	return &tutorService{
		log:      baseLog.With("service", "TutorService"),
		threads:  threads,
		messages: messages,
		progress: progress,
		ai:       ai,
	}
}

func (s *tutorService) CreateThread(ctx context.Context, title, skill string) (*types.TutorThread, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	skill = strings.ToLower(strings.TrimSpace(skill))
	if skill != "" && !assessment.IsSkill(skill) {
		return nil, apierr.BadRequest("invalid_skill", "skill must be listening, reading, writing or speaking")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultThreadTitle
	}
	t := &types.TutorThread{UserID: uid, Title: truncateRunes(title, 120), Skill: skill}
	if err := s.threads.Create(dbctx.Context{Ctx: ctx}, t); err != nil {
		return nil, fmt.Errorf("create tutor thread: %w", err)
	}
	return t, nil
}

func (s *tutorService) ListThreads(ctx context.Context) ([]*types.TutorThread, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	return s.threads.ListByUser(dbctx.Context{Ctx: ctx}, uid, 50)
}

func (s *tutorService) thread(ctx context.Context, threadID uuid.UUID) (*types.TutorThread, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	t, err := s.threads.GetForUser(dbctx.Context{Ctx: ctx}, uid, threadID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apierr.NotFound("thread_not_found")
	}
	return t, nil
}

func (s *tutorService) ListMessages(ctx context.Context, threadID uuid.UUID, limit int) ([]*types.TutorMessage, error) {
	t, err := s.thread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	return s.messages.ListRecent(dbctx.Context{Ctx: ctx}, t.ID, limit)
}

func (s *tutorService) SendMessage(ctx context.Context, threadID uuid.UUID, content string, onDelta func(string)) (*TutorReply, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apierr.BadRequest("empty_message", "content is required")
	}
	if utf8.RuneCountInString(content) > maxTutorMessageChars {
		return nil, apierr.BadRequest("message_too_long", fmt.Sprintf("content exceeds %d characters", maxTutorMessageChars))
	}
	t, err := s.thread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	userMsg := &types.TutorMessage{ThreadID: t.ID, UserID: t.UserID, Role: tutor.RoleUser, Content: content}
	if err := s.messages.Append(dbc, userMsg); err != nil {
		return nil, fmt.Errorf("store tutor message: %w", err)
	}

	recent, err := s.messages.ListRecent(dbc, t.ID, tutorHistoryMessages)
	if err != nil {
		return nil, err
	}
	history := make([]openai.Message, 0, len(recent))
	for _, m := range recent {
		history = append(history, openai.Message{Role: m.Role, Content: m.Content})
	}

	reply, err := s.ai.StreamChat(ctx, s.systemPrompt(ctx, t), history, onDelta)
	if err != nil {
		// The partial reply is kept so the thread shows what the learner saw.
		if strings.TrimSpace(reply) == "" {
			return nil, apierr.New(http.StatusBadGateway, "tutor_unavailable", err)
		}
		s.log.Warn("Tutor stream ended early", "thread_id", t.ID, "error", err)
	}
	assistant := &types.TutorMessage{ThreadID: t.ID, UserID: t.UserID, Role: tutor.RoleAssistant, Content: strings.TrimSpace(reply)}
	if err := s.messages.Append(dbctx.Context{Ctx: context.WithoutCancel(ctx)}, assistant); err != nil {
		return nil, fmt.Errorf("store tutor reply: %w", err)
	}
	return &TutorReply{UserMessage: userMsg, AssistantMessage: assistant}, nil
}

func (s *tutorService) systemPrompt(ctx context.Context, t *types.TutorThread) string {
	var b strings.Builder
	b.WriteString("You are a friendly IELTS tutor. Explain, give short examples and ask one follow-up question when useful.\n")
	b.WriteString("Do not write complete exam answers for the learner to copy; coach them to improve their own.\n")
	if t.Skill != "" {
		fmt.Fprintf(&b, "This conversation focuses on %s.\n", t.Skill)
	}
	sum, err := s.progress.SummaryFor(ctx, t.UserID)
	if err != nil {
		s.log.Warn("Tutor progress lookup failed", "user_id", t.UserID, "error", err)
		return b.String()
	}
	fmt.Fprintf(&b, "\nLearner profile: target band %.1f.\n", sum.TargetBand)
	for _, p := range sum.Skills {
		if p.Attempts == 0 {
			fmt.Fprintf(&b, "- %s: not practiced yet\n", p.Skill)
			continue
		}
		fmt.Fprintf(&b, "- %s: current %.1f, best %.1f, %d attempts", p.Skill, p.CurrentBand, p.BestBand, p.Attempts)
		if p.WeakestCriteria != "" && p.WeakestBand != nil {
			fmt.Fprintf(&b, ", weakest %s at %.1f", p.WeakestCriteria, *p.WeakestBand)
		}
		b.WriteString("\n")
	}
	if sum.Overall != nil {
		fmt.Fprintf(&b, "Overall band %.1f.\n", *sum.Overall)
	}
	return b.String()
}

func (s *tutorService) DeleteThread(ctx context.Context, threadID uuid.UUID) error {
	uid, err := requestUserID(ctx)
	if err != nil {
		return err
	}
	ok, err := s.threads.Delete(dbctx.Context{Ctx: ctx}, uid, threadID)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.NotFound("thread_not_found")
	}
	return nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
