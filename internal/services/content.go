package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/datatypes"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/domain/assessment"
	"github.com/yungbote/ielts-backend/internal/domain/content"
	"github.com/yungbote/ielts-backend/internal/domain/user"
	"github.com/yungbote/ielts-backend/internal/platform/apierr"
	"github.com/yungbote/ielts-backend/internal/platform/ctxutil"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/scoring"
)

const (
	ImportSheet       = "content"
	MaxImportBytes    = 10 << 20
	maxImportRows     = 2000
	defaultDifficulty = 6.0
)

type ContentInput struct {
	Skill      string
	Kind       string
	Module     string
	Title      string
	Difficulty *float64
	Body       json.RawMessage
	AnswerKey  json.RawMessage
	AudioURL   string
	Tags       string
	Published  bool
	Source     string
}

// ContentPatch holds optional fields; nil means unchanged.
type ContentPatch struct {
	Title      *string
	Module     *string
	Difficulty *float64
	Body       json.RawMessage
	AnswerKey  json.RawMessage
	AudioURL   *string
	Tags       *string
}

type ImportRowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type ImportResult struct {
	Rows    int                  `json:"rows"`
	Created int                  `json:"created"`
	Errors  []ImportRowError     `json:"errors"`
	Items   []*types.ContentItem `json:"items"`
}

type ContentService interface {
	List(ctx context.Context, f repos.ContentFilter) ([]*types.ContentItem, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*types.ContentItem, error)
	Create(ctx context.Context, in ContentInput) (*types.ContentItem, error)
	Update(ctx context.Context, id uuid.UUID, in ContentPatch) (*types.ContentItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Publish(ctx context.Context, id uuid.UUID, published bool) (*types.ContentItem, error)
	// Import reads the "content" sheet of an xlsx workbook, one item per row.
	// Valid rows are created even when other rows fail.
	Import(ctx context.Context, r io.Reader) (*ImportResult, error)
}

type contentService struct {
	log   *logger.Logger
	items repos.ContentItemRepo
}

func NewContentService(baseLog *logger.Logger, items repos.ContentItemRepo) ContentService {
	return &contentService{log: baseLog.With("service", "ContentService"), items: items}
}

func isAdmin(ctx context.Context) bool {
	rd := ctxutil.GetRequestData(ctx)
	return rd != nil && rd.IsAdmin()
}

func (s *contentService) List(ctx context.Context, f repos.ContentFilter) ([]*types.ContentItem, int64, error) {
	if _, err := requestUserID(ctx); err != nil {
		return nil, 0, err
	}
	if !isAdmin(ctx) {
		f.PublishedOnly = true
	}
	f.Limit, f.Offset = clampPage(f.Limit, f.Offset)
	return s.items.List(dbctx.Context{Ctx: ctx}, f)
}

func (s *contentService) Get(ctx context.Context, id uuid.UUID) (*types.ContentItem, error) {
	if _, err := requestUserID(ctx); err != nil {
		return nil, err
	}
	item, err := s.items.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if item == nil || (!item.Published && !isAdmin(ctx)) {
		return nil, apierr.NotFound("content_item_not_found")
	}
	return item, nil
}

func (s *contentService) Create(ctx context.Context, in ContentInput) (*types.ContentItem, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	item, err := buildContentItem(in)
	if err != nil {
		return nil, apierr.BadRequest("invalid_content", err.Error())
	}
	uid, _ := requestUserID(ctx)
	item.CreatedBy = &uid
	if _, err := s.items.Create(dbctx.Context{Ctx: ctx}, []*types.ContentItem{item}); err != nil {
		return nil, fmt.Errorf("create content item: %w", err)
	}
	return item, nil
}

// buildContentItem validates input and fills defaults.
func buildContentItem(in ContentInput) (*types.ContentItem, error) {
	skill := strings.ToLower(strings.TrimSpace(in.Skill))
	if !assessment.IsSkill(skill) {
		return nil, fmt.Errorf("unknown skill %q", in.Skill)
	}
	kind := strings.ToLower(strings.TrimSpace(in.Kind))
	if !validKind(kind) {
		return nil, fmt.Errorf("unknown kind %q", in.Kind)
	}
	module, err := normalizeModule(in.Module)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	difficulty := defaultDifficulty
	if in.Difficulty != nil {
		if !scoring.ValidBand(*in.Difficulty) {
			return nil, fmt.Errorf("difficulty must be a band between 0 and 9")
		}
		difficulty = *in.Difficulty
	}
	body, err := jsonOrNull(in.Body)
	if err != nil {
		return nil, fmt.Errorf("body: %w", err)
	}
	key, err := jsonOrNull(in.AnswerKey)
	if err != nil {
		return nil, fmt.Errorf("answer_key: %w", err)
	}
	if key != nil {
		if _, err := ParseAnswerKey(key); err != nil {
			return nil, fmt.Errorf("answer_key: %w", err)
		}
	}
	if (skill == types.SkillReading || skill == types.SkillListening) && kind == content.KindQuestionSet && key == nil {
		return nil, fmt.Errorf("answer_key is required for %s question sets", skill)
	}
	source := in.Source
	if source == "" {
		source = content.SourceManual
	}
	return &types.ContentItem{
		Skill:      skill,
		Kind:       kind,
		Module:     module,
		Title:      title,
		Difficulty: difficulty,
		Body:       body,
		AnswerKey:  key,
		AudioURL:   strings.TrimSpace(in.AudioURL),
		Tags:       strings.TrimSpace(in.Tags),
		Source:     source,
		Published:  in.Published,
	}, nil
}

func validKind(k string) bool {
	for _, v := range content.Kinds {
		if v == k {
			return true
		}
	}
	return false
}

func normalizeModule(m string) (string, error) {
	m = strings.ToLower(strings.TrimSpace(m))
	switch m {
	case "":
		return user.ModuleAcademic, nil
	case user.ModuleAcademic, user.ModuleGeneral:
		return m, nil
	}
	return "", fmt.Errorf("module must be academic or general")
}

func jsonOrNull(raw json.RawMessage) (datatypes.JSON, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	if !json.Valid([]byte(trimmed)) {
		return nil, fmt.Errorf("not valid JSON")
	}
	return datatypes.JSON(trimmed), nil
}

func (s *contentService) Update(ctx context.Context, id uuid.UUID, in ContentPatch) (*types.ContentItem, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" {
			return nil, apierr.BadRequest("invalid_content", "title cannot be empty")
		}
		updates["title"] = t
	}
	if in.Module != nil {
		m, err := normalizeModule(*in.Module)
		if err != nil {
			return nil, apierr.BadRequest("invalid_content", err.Error())
		}
		updates["module"] = m
	}
	if in.Difficulty != nil {
		if !scoring.ValidBand(*in.Difficulty) {
			return nil, apierr.BadRequest("invalid_content", "difficulty must be a band between 0 and 9")
		}
		updates["difficulty"] = *in.Difficulty
	}
	if in.Body != nil {
		b, err := jsonOrNull(in.Body)
		if err != nil {
			return nil, apierr.BadRequest("invalid_content", "body: "+err.Error())
		}
		updates["body"] = b
	}
	if in.AnswerKey != nil {
		k, err := jsonOrNull(in.AnswerKey)
		if err == nil && k != nil {
			_, err = ParseAnswerKey(k)
		}
		if err != nil {
			return nil, apierr.BadRequest("invalid_content", "answer_key: "+err.Error())
		}
		updates["answer_key"] = k
	}
	if in.AudioURL != nil {
		updates["audio_url"] = strings.TrimSpace(*in.AudioURL)
	}
	if in.Tags != nil {
		updates["tags"] = strings.TrimSpace(*in.Tags)
	}
	return s.apply(ctx, id, updates)
}

func (s *contentService) Publish(ctx context.Context, id uuid.UUID, published bool) (*types.ContentItem, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.apply(ctx, id, map[string]interface{}{"published": published})
}

func (s *contentService) apply(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*types.ContentItem, error) {
	dbc := dbctx.Context{Ctx: ctx}
	item, err := s.items.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apierr.NotFound("content_item_not_found")
	}
	if len(updates) > 0 {
		if err := s.items.UpdateFields(dbc, id, updates); err != nil {
			return nil, fmt.Errorf("update content item: %w", err)
		}
	}
	return s.items.GetByID(dbc, id)
}

func (s *contentService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	ok, err := s.items.Delete(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.NotFound("content_item_not_found")
	}
	return nil
}

func (s *contentService) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	raw, err := readCapped(r, MaxImportBytes)
	if err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, apierr.BadRequest("invalid_workbook", "file is not a readable xlsx workbook")
	}
	defer f.Close()

	rows, err := f.GetRows(ImportSheet)
	if err != nil {
		return nil, apierr.BadRequest("missing_sheet", fmt.Sprintf("workbook has no %q sheet", ImportSheet))
	}
	if len(rows) < 2 {
		return nil, apierr.BadRequest("empty_sheet", "sheet has no data rows")
	}
	if len(rows)-1 > maxImportRows {
		return nil, apierr.BadRequest("too_many_rows", fmt.Sprintf("at most %d rows per import", maxImportRows))
	}
	col := map[string]int{}
	for i, h := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"skill", "kind", "title"} {
		if _, ok := col[required]; !ok {
			return nil, apierr.BadRequest("missing_column", fmt.Sprintf("header row lacks %q", required))
		}
	}

	uid, _ := requestUserID(ctx)
	res := &ImportResult{Errors: []ImportRowError{}}
	var valid []*types.ContentItem
	for i, row := range rows[1:] {
		rowNum := i + 2
		cell := func(name string) string {
			idx, ok := col[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}
		if strings.Join(row, "") == "" {
			continue
		}
		res.Rows++
		in, err := importRowInput(cell)
		if err == nil {
			var item *types.ContentItem
			if item, err = buildContentItem(in); err == nil {
				item.CreatedBy = &uid
				valid = append(valid, item)
				continue
			}
		}
		res.Errors = append(res.Errors, ImportRowError{Row: rowNum, Error: err.Error()})
	}
	if len(valid) > 0 {
		if _, err := s.items.Create(dbctx.Context{Ctx: ctx}, valid); err != nil {
			return nil, fmt.Errorf("import content: %w", err)
		}
	}
	res.Created = len(valid)
	res.Items = valid
	s.log.Info("Content imported", "rows", res.Rows, "created", res.Created, "errors", len(res.Errors))
	return res, nil
}

func importRowInput(cell func(string) string) (ContentInput, error) {
	in := ContentInput{
		Skill:    cell("skill"),
		Kind:     cell("kind"),
		Module:   cell("module"),
		Title:    cell("title"),
		AudioURL: cell("audio_url"),
		Tags:     cell("tags"),
		Source:   content.SourceImport,
	}
	if d := cell("difficulty"); d != "" {
		v, err := strconv.ParseFloat(d, 64)
		if err != nil {
			return in, fmt.Errorf("difficulty %q is not a number", d)
		}
		in.Difficulty = &v
	}
	if b := cell("body"); b != "" {
		if json.Valid([]byte(b)) && strings.HasPrefix(b, "{") {
			in.Body = json.RawMessage(b)
		} else {
			enc, _ := json.Marshal(map[string]string{"text": b})
			in.Body = enc
		}
	}
	if k := cell("answer_key"); k != "" {
		key, err := parseKeyCell(k)
		if err != nil {
			return in, err
		}
		in.AnswerKey = key
	}
	if p := cell("published"); p != "" {
		v, err := strconv.ParseBool(strings.ToLower(p))
		if err != nil {
			return in, fmt.Errorf("published %q is not a boolean", p)
		}
		in.Published = v
	}
	return in, nil
}

// parseKeyCell accepts a JSON object or the compact "1=A; 2=colour/color" form.
func parseKeyCell(k string) (json.RawMessage, error) {
	if strings.HasPrefix(k, "{") {
		if !json.Valid([]byte(k)) {
			return nil, fmt.Errorf("answer_key is not valid JSON")
		}
		return json.RawMessage(k), nil
	}
	out := map[string]string{}
	for _, part := range strings.Split(k, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, ans, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(id) == "" || strings.TrimSpace(ans) == "" {
			return nil, fmt.Errorf("answer_key entry %q must look like 1=answer", part)
		}
		out[strings.TrimSpace(id)] = strings.TrimSpace(ans)
	}
	enc, _ := json.Marshal(out)
	return enc, nil
}
