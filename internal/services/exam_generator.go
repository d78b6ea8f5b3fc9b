package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/domain/assessment"
	"github.com/yungbote/ielts-backend/internal/domain/content"
	"github.com/yungbote/ielts-backend/internal/platform/apierr"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/platform/openai"
	"github.com/yungbote/ielts-backend/internal/scoring"
)

const maxGeneratedQuestions = 40

type ExamRequest struct {
	Skill         string  `json:"skill"`
	Module        string  `json:"module"`
	Topic         string  `json:"topic"`
	Difficulty    float64 `json:"difficulty"`
	QuestionCount int     `json:"question_count"`
}

type ExamGeneratorService interface {
	// Enqueue validates the request and queues exam_generate for the caller.
	Enqueue(ctx context.Context, req ExamRequest) (*types.JobRun, error)
	// Generate calls the model and stores an unpublished content item.
	Generate(ctx context.Context, createdBy uuid.UUID, req ExamRequest) (*types.ContentItem, error)
}

type examGeneratorService struct {
	log     *logger.Logger
	ai      openai.Client
	content repos.ContentItemRepo
	jobs    JobService
}

func NewExamGeneratorService(baseLog *logger.Logger, ai openai.Client, content repos.ContentItemRepo, jobs JobService) ExamGeneratorService {
	return &examGeneratorService{
		log:     baseLog.With("service", "ExamGeneratorService"),
		ai:      ai,
		content: content,
		jobs:    jobs,
	}
}

// Normalize fills defaults and validates the request.
func (r ExamRequest) Normalize() (ExamRequest, error) {
	r.Skill = strings.ToLower(strings.TrimSpace(r.Skill))
	if !assessment.IsSkill(r.Skill) {
		return r, fmt.Errorf("unknown skill %q", r.Skill)
	}
	m, err := normalizeModule(r.Module)
	if err != nil {
		return r, err
	}
	r.Module = m
	r.Topic = strings.TrimSpace(r.Topic)
	if r.Topic == "" {
		return r, fmt.Errorf("topic is required")
	}
	if r.Difficulty == 0 {
		r.Difficulty = defaultDifficulty
	}
	if !scoring.ValidBand(r.Difficulty) {
		return r, fmt.Errorf("difficulty must be a band between 0 and 9")
	}
	if r.objective() {
		if r.QuestionCount == 0 {
			r.QuestionCount = 10
		}
		if r.QuestionCount < 1 || r.QuestionCount > maxGeneratedQuestions {
			return r, fmt.Errorf("question_count must be between 1 and %d", maxGeneratedQuestions)
		}
	} else {
		r.QuestionCount = 0
	}
	return r, nil
}

func (r ExamRequest) objective() bool {
	return r.Skill == types.SkillReading || r.Skill == types.SkillListening
}

func (s *examGeneratorService) Enqueue(ctx context.Context, req ExamRequest) (*types.JobRun, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	uid, _ := requestUserID(ctx)
	req, err := req.Normalize()
	if err != nil {
		return nil, apierr.BadRequest("invalid_exam_request", err.Error())
	}
	raw, _ := json.Marshal(req)
	var payload map[string]any
	_ = json.Unmarshal(raw, &payload)
	return s.jobs.Enqueue(dbctx.Context{Ctx: ctx}, uid, types.JobTypeExamGenerate, "content_item", nil, payload)
}

type generatedQuestion struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

type generatedAnswer struct {
	ID     string `json:"id"`
	Answer string `json:"answer"`
}

type generatedExam struct {
	Title     string              `json:"title"`
	Body      string              `json:"body"`
	Questions []generatedQuestion `json:"questions"`
	AnswerKey []generatedAnswer   `json:"answer_key"`
	Tips      []string            `json:"tips"`
}

const examGeneratorSystem = `You write original IELTS practice material. Never reproduce published Cambridge tests.
Match the requested band difficulty in vocabulary and question design.
Question ids are "1", "2", ... in order. Accepted alternative answers are separated with "/".`

func (s *examGeneratorService) Generate(ctx context.Context, createdBy uuid.UUID, req ExamRequest) (*types.ContentItem, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}
	obj, err := s.ai.GenerateJSON(ctx, examGeneratorSystem, examUserPrompt(req), "ielts_exam", examSchema())
	if err != nil {
		return nil, fmt.Errorf("generate exam: %w", err)
	}
	gen, err := openai.Decode[generatedExam](obj)
	if err != nil {
		return nil, fmt.Errorf("decode exam: %w", err)
	}
	item, err := buildGeneratedItem(req, gen)
	if err != nil {
		return nil, err
	}
	if createdBy != uuid.Nil {
		item.CreatedBy = &createdBy
	}
	if _, err := s.content.Create(dbctx.Context{Ctx: ctx}, []*types.ContentItem{item}); err != nil {
		return nil, fmt.Errorf("store generated exam: %w", err)
	}
	s.log.Info("Exam generated", "content_item_id", item.ID, "skill", req.Skill, "questions", len(gen.Questions))
	return item, nil
}

func examUserPrompt(req ExamRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Skill: %s\nModule: %s\nTopic: %s\nTarget band: %.1f\n", req.Skill, req.Module, req.Topic, req.Difficulty)
	switch req.Skill {
	case types.SkillReading:
		fmt.Fprintf(&b, "Write one reading passage of 700 to 900 words in body and exactly %d questions mixing multiple choice, true/false/not given and sentence completion.\n", req.QuestionCount)
	case types.SkillListening:
		fmt.Fprintf(&b, "Write a listening script for two speakers in body and exactly %d questions answerable from the script. Completion answers are at most three words.\n", req.QuestionCount)
	case types.SkillWriting:
		b.WriteString("Write one writing task prompt in body. Leave questions and answer_key empty. Add three planning tips.\n")
	default:
		b.WriteString("Write a speaking cue card or interview questions in body. Leave questions and answer_key empty. Add three tips.\n")
	}
	return b.String()
}

func examSchema() map[string]any {
	str := map[string]any{"type": "string"}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": str,
			"body":  str,
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"id":      str,
						"type":    str,
						"prompt":  str,
						"options": map[string]any{"type": "array", "items": str},
					},
					"required":             []string{"id", "type", "prompt", "options"},
					"additionalProperties": false,
				},
			},
			"answer_key": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"properties":           map[string]any{"id": str, "answer": str},
					"required":             []string{"id", "answer"},
					"additionalProperties": false,
				},
			},
			"tips": map[string]any{"type": "array", "items": str},
		},
		"required":             []string{"title", "body", "questions", "answer_key", "tips"},
		"additionalProperties": false,
	}
}

// buildGeneratedItem checks the model output and maps it onto a content item.
func buildGeneratedItem(req ExamRequest, gen generatedExam) (*types.ContentItem, error) {
	if strings.TrimSpace(gen.Title) == "" || strings.TrimSpace(gen.Body) == "" {
		return nil, fmt.Errorf("generated exam is missing title or body")
	}
	kind := content.KindPrompt
	bodyKey := "prompt"
	var key datatypes.JSON
	if req.objective() {
		kind = content.KindQuestionSet
		bodyKey = "passage"
		if req.Skill == types.SkillListening {
			bodyKey = "transcript"
		}
		if len(gen.Questions) != req.QuestionCount {
			return nil, fmt.Errorf("generated %d questions, want %d", len(gen.Questions), req.QuestionCount)
		}
		answers := make(map[string]string, len(gen.AnswerKey))
		for _, a := range gen.AnswerKey {
			if strings.TrimSpace(a.Answer) == "" {
				return nil, fmt.Errorf("question %s has an empty answer", a.ID)
			}
			answers[a.ID] = strings.TrimSpace(a.Answer)
		}
		for _, q := range gen.Questions {
			if _, ok := answers[q.ID]; !ok {
				return nil, fmt.Errorf("question %s has no answer", q.ID)
			}
		}
		if len(answers) != len(gen.Questions) {
			return nil, fmt.Errorf("answer key has %d entries for %d questions", len(answers), len(gen.Questions))
		}
		raw, _ := json.Marshal(answers)
		key = datatypes.JSON(raw)
	}
	body := map[string]any{
		bodyKey: strings.TrimSpace(gen.Body),
		"topic": req.Topic,
	}
	if len(gen.Questions) > 0 {
		body["questions"] = gen.Questions
	}
	if len(gen.Tips) > 0 {
		body["tips"] = gen.Tips
	}
	rawBody, _ := json.Marshal(body)
	return &types.ContentItem{
		Skill:      req.Skill,
		Kind:       kind,
		Module:     req.Module,
		Title:      strings.TrimSpace(gen.Title),
		Difficulty: req.Difficulty,
		Body:       datatypes.JSON(rawBody),
		AnswerKey:  key,
		Tags:       req.Topic,
		Source:     content.SourceGenerated,
		Published:  false,
	}, nil
}
