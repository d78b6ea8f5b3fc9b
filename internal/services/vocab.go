package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	datadb "github.com/yungbote/ielts-backend/internal/data/db"
	"github.com/yungbote/ielts-backend/internal/data/repos"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/apierr"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/srs"
)

type VocabInput struct {
	Word       string
	Definition string
	Example    string
	Topic      string
}

type VocabService interface {
	AddCard(ctx context.Context, in VocabInput) (*types.VocabCard, error)
	List(ctx context.Context, limit, offset int) ([]*types.VocabCard, error)
	ListDue(ctx context.Context, limit int) ([]*types.VocabCard, int64, error)
	Review(ctx context.Context, cardID uuid.UUID, quality int) (*types.VocabCard, error)
	DeleteCard(ctx context.Context, cardID uuid.UUID) error
}

type vocabService struct {
	log     *logger.Logger
	cards   repos.VocabCardRepo
	sched   *srs.SM2
	nowFunc func() time.Time
}

func NewVocabService(baseLog *logger.Logger, cards repos.VocabCardRepo) VocabService {
	return &vocabService{
		log:     baseLog.With("service", "VocabService"),
		cards:   cards,
		sched:   srs.DefaultSM2(),
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

func (s *vocabService) AddCard(ctx context.Context, in VocabInput) (*types.VocabCard, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	word := strings.Join(strings.Fields(strings.ToLower(in.Word)), " ")
	if word == "" {
		return nil, apierr.BadRequest("missing_word", "word is required")
	}
	if len(word) > 100 {
		return nil, apierr.BadRequest("word_too_long", "word must be at most 100 characters")
	}
	card := &types.VocabCard{
		UserID:       uid,
		Word:         word,
		Definition:   strings.TrimSpace(in.Definition),
		Example:      strings.TrimSpace(in.Example),
		Topic:        strings.TrimSpace(in.Topic),
		EaseFactor:   srs.DefaultEaseFactor,
		NextReviewAt: s.nowFunc(),
	}
	if err := s.cards.Create(dbctx.Context{Ctx: ctx}, card); err != nil {
		if datadb.IsUniqueViolation(err) {
			return nil, apierr.Conflict("word_exists", fmt.Sprintf("%q is already in your deck", word))
		}
		return nil, fmt.Errorf("create vocab card: %w", err)
	}
	return card, nil
}

func (s *vocabService) List(ctx context.Context, limit, offset int) ([]*types.VocabCard, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	return s.cards.ListByUser(dbctx.Context{Ctx: ctx}, uid, limit, offset)
}

func (s *vocabService) ListDue(ctx context.Context, limit int) ([]*types.VocabCard, int64, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, 0, err
	}
	limit, _ = clampPage(limit, 0)
	now := s.nowFunc()
	dbc := dbctx.Context{Ctx: ctx}
	cards, err := s.cards.ListDue(dbc, uid, now, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.cards.CountDue(dbc, uid, now)
	if err != nil {
		return nil, 0, err
	}
	return cards, total, nil
}

func (s *vocabService) Review(ctx context.Context, cardID uuid.UUID, quality int) (*types.VocabCard, error) {
	uid, err := requestUserID(ctx)
	if err != nil {
		return nil, err
	}
	if quality < 0 || quality > srs.MaxQuality {
		return nil, apierr.BadRequest("invalid_quality", "quality must be between 0 and 5")
	}
	dbc := dbctx.Context{Ctx: ctx}
	card, err := s.cards.GetForUser(dbc, uid, cardID)
	if err != nil {
		return nil, err
	}
	if card == nil {
		return nil, apierr.NotFound("vocab_card_not_found")
	}
	now := s.nowFunc()
	next, due := s.sched.Review(srs.State{
		EaseFactor:   card.EaseFactor,
		IntervalDays: card.IntervalDays,
		Repetitions:  card.Repetitions,
	}, quality, now)
	if err := s.cards.UpdateFields(dbc, card.ID, map[string]interface{}{
		"ease_factor":      next.EaseFactor,
		"interval_days":    next.IntervalDays,
		"repetitions":      next.Repetitions,
		"next_review_at":   due,
		"last_reviewed_at": now,
	}); err != nil {
		return nil, fmt.Errorf("update vocab card: %w", err)
	}
	card.EaseFactor = next.EaseFactor
	card.IntervalDays = next.IntervalDays
	card.Repetitions = next.Repetitions
	card.NextReviewAt = due
	card.LastReviewedAt = &now
	return card, nil
}

func (s *vocabService) DeleteCard(ctx context.Context, cardID uuid.UUID) error {
	uid, err := requestUserID(ctx)
	if err != nil {
		return err
	}
	ok, err := s.cards.Delete(dbctx.Context{Ctx: ctx}, uid, cardID)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.NotFound("vocab_card_not_found")
	}
	return nil
}
