package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/apierr"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/scoring"
)

type ObjectiveSubmitInput struct {
	ContentItemID uuid.UUID
	Answers       map[string]string
	TimeSpentSec  int
}

// ObjectiveService marks reading and listening attempts synchronously.
type ObjectiveService interface {
	Submit(ctx context.Context, skill string, in ObjectiveSubmitInput) (*types.ObjectiveAttempt, error)
	Get(ctx context.Context, skill string, id uuid.UUID) (*types.ObjectiveAttempt, error)
	List(ctx context.Context, skill string, limit, offset int) ([]*types.ObjectiveAttempt, error)
}

type objectiveService struct {
	db        *gorm.DB
	log       *logger.Logger
	reading   repos.ReadingTestRepo
	listening repos.ListeningTestRepo
	content   repos.ContentItemRepo
	scores    ScoreRecorder
}

func NewObjectiveService(
	db *gorm.DB,
	baseLog *logger.Logger,
	reading repos.ReadingTestRepo,
	listening repos.ListeningTestRepo,
	content repos.ContentItemRepo,
	scores ScoreRecorder,
) ObjectiveService {
	return &objectiveService{
		db:        db,
		log:       baseLog.With("service", "ObjectiveService"),
		reading:   reading,
		listening: listening,
		content:   content,
		scores:    scores,
	}
}

func checkObjectiveSkill(skill string) error {
	if skill != types.SkillReading && skill != types.SkillListening {
		return apierr.BadRequest("invalid_skill", "skill must be reading or listening")
	}
	return nil
}

func (s *objectiveService) Submit(ctx context.Context, skill string, in ObjectiveSubmitInput) (*types.ObjectiveAttempt, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkObjectiveSkill(skill); err != nil {
		return nil, err
	}
	if in.ContentItemID == uuid.Nil {
		return nil, apierr.BadRequest("missing_content_item_id", "content_item_id is required")
	}
	item, err := publishedItem(ctx, s.content, in.ContentItemID, skill)
	if err != nil {
		return nil, err
	}
	key, err := ParseAnswerKey(item.AnswerKey)
	if err != nil {
		return nil, fmt.Errorf("content item %s answer key: %w", item.ID, err)
	}
	if len(key) == 0 {
		return nil, apierr.Conflict("no_answer_key", "content item has no answer key")
	}
	res, err := scoring.MarkObjective(scoring.TableFor(skill, item.Module), key, in.Answers)
	if err != nil {
		return nil, fmt.Errorf("mark %s attempt: %w", skill, err)
	}
	answersJSON, _ := json.Marshal(in.Answers)
	perQuestion, _ := json.Marshal(res.Results)
	attempt := types.ObjectiveAttempt{
		UserID:         uid,
		ContentItemID:  item.ID,
		Module:         item.Module,
		Answers:        datatypes.JSON(answersJSON),
		PerQuestion:    datatypes.JSON(perQuestion),
		CorrectCount:   res.Correct,
		TotalQuestions: res.Total,
		RawScore40:     res.Raw40,
		Band:           res.Band,
		TimeSpentSec:   max(in.TimeSpentSec, 0),
	}
	scored := Attempt{UserID: uid, Skill: skill, Band: res.Band, At: time.Now().UTC()}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inner := dbctx.Context{Ctx: ctx, Tx: tx}
		switch skill {
		case types.SkillReading:
			row := &types.ReadingTest{ObjectiveAttempt: attempt}
			if err := s.reading.Create(inner, row); err != nil {
				return err
			}
			attempt = row.ObjectiveAttempt
		default:
			row := &types.ListeningTest{ObjectiveAttempt: attempt}
			if err := s.listening.Create(inner, row); err != nil {
				return err
			}
			attempt = row.ObjectiveAttempt
		}
		_, err := s.scores.Record(inner, scored)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("save %s attempt: %w", skill, err)
	}
	s.scores.Announce(ctx, scored, skill+"_test", attempt.ID)
	return &attempt, nil
}

func (s *objectiveService) Get(ctx context.Context, skill string, id uuid.UUID) (*types.ObjectiveAttempt, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkObjectiveSkill(skill); err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	var out *types.ObjectiveAttempt
	if skill == types.SkillReading {
		row, err := s.reading.GetForUser(dbc, uid, id)
		if err != nil {
			return nil, err
		}
		if row != nil {
			out = &row.ObjectiveAttempt
		}
	} else {
		row, err := s.listening.GetForUser(dbc, uid, id)
		if err != nil {
			return nil, err
		}
		if row != nil {
			out = &row.ObjectiveAttempt
		}
	}
	if out == nil {
		return nil, apierr.NotFound(skill + "_test_not_found")
	}
	return out, nil
}

func (s *objectiveService) List(ctx context.Context, skill string, limit, offset int) ([]*types.ObjectiveAttempt, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkObjectiveSkill(skill); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	dbc := dbctx.Context{Ctx: ctx}
	var out []*types.ObjectiveAttempt
	if skill == types.SkillReading {
		rows, err := s.reading.ListByUser(dbc, uid, limit, offset)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			out = append(out, &r.ObjectiveAttempt)
		}
		return out, nil
	}
	rows, err := s.listening.ListByUser(dbc, uid, limit, offset)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out = append(out, &r.ObjectiveAttempt)
	}
	return out, nil
}

// ParseAnswerKey accepts {"1":"a"} and {"1":["colour","color"]}; list values
// become "/" separated alternatives.
func ParseAnswerKey(raw datatypes.JSON) (map[string]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return map[string]string{}, nil
	}
	var loose map[string]any
	if err := json.Unmarshal(raw, &loose); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(loose))
	for id, v := range loose {
		switch t := v.(type) {
		case string:
			out[id] = t
		case float64:
			out[id] = fmt.Sprint(t)
		case []any:
			parts := make([]string, 0, len(t))
			for _, p := range t {
				parts = append(parts, fmt.Sprint(p))
			}
			out[id] = strings.Join(parts, "/")
		default:
			return nil, fmt.Errorf("question %s: unsupported answer type %T", id, v)
		}
	}
	return out, nil
}
