package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/platform/openai"
	"github.com/yungbote/ielts-backend/internal/scoring"
)

type Correction struct {
	Original    string `json:"original"`
	Suggestion  string `json:"suggestion"`
	Explanation string `json:"explanation"`
}

// Assessment is an examiner verdict with criteria already normalized to half
// bands and the skill band derived from them.
type Assessment struct {
	Criteria    scoring.CriteriaBands `json:"criteria"`
	Band        float64               `json:"band"`
	Feedback    string                `json:"feedback"`
	Corrections []Correction          `json:"corrections,omitempty"`
	UnderLength bool                  `json:"under_length,omitempty"`
}

type WritingInput struct {
	TaskType  string
	Module    string
	Prompt    string
	Text      string
	WordCount int
}

type SpeakingInput struct {
	Part       int
	Prompt     string
	Transcript string
	Metrics    scoring.FluencyMetrics
	Acoustic   *scoring.AcousticFeatures
}

type Examiner interface {
	ScoreWriting(ctx context.Context, in WritingInput) (*Assessment, error)
	ScoreSpeaking(ctx context.Context, in SpeakingInput) (*Assessment, error)
}

type examiner struct {
	log *logger.Logger
	ai  openai.Client
}

func NewExaminer(baseLog *logger.Logger, ai openai.Client) Examiner {
	return &examiner{log: baseLog.With("service", "Examiner"), ai: ai}
}

const examinerSystem = `You are a certified IELTS examiner. Mark strictly against the public band descriptors.
Give every criterion a band from 0 to 9 in steps of 0.5. Do not inflate bands for effort.
Feedback is addressed to the candidate, at most 150 words, and ends with one concrete next step.`

type examinerOutput struct {
	Criteria    map[string]float64 `json:"criteria"`
	Feedback    string             `json:"feedback"`
	Corrections []Correction       `json:"corrections"`
}

func (e *examiner) ScoreWriting(ctx context.Context, in WritingInput) (*Assessment, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, fmt.Errorf("score writing: empty response")
	}
	criteria := scoring.WritingCriteria(in.TaskType)
	words := in.WordCount
	if words == 0 {
		words = scoring.CountWords(in.Text)
	}
	var user strings.Builder
	fmt.Fprintf(&user, "Module: %s\nTask: %s (minimum %d words)\nWord count: %d\n\n", in.Module, in.TaskType, scoring.MinWords(in.TaskType), words)
	fmt.Fprintf(&user, "Task prompt:\n%s\n\nCandidate response:\n%s\n\nBand descriptors:\n%s", in.Prompt, in.Text, scoring.RubricText(criteria))

	out, err := e.generate(ctx, user.String(), "writing_assessment", criteria, true)
	if err != nil {
		return nil, err
	}
	out.UnderLength = scoring.ApplyUnderLength(out.Criteria, in.TaskType, words)
	out.Band = out.Criteria.SkillBand()
	return out, nil
}

func (e *examiner) ScoreSpeaking(ctx context.Context, in SpeakingInput) (*Assessment, error) {
	if strings.TrimSpace(in.Transcript) == "" {
		return nil, fmt.Errorf("score speaking: empty transcript")
	}
	criteria := scoring.SpeakingCriteria()
	metrics, _ := json.Marshal(in.Metrics)
	var user strings.Builder
	fmt.Fprintf(&user, "Speaking part %d\nQuestion:\n%s\n\nTranscript:\n%s\n\n", in.Part, in.Prompt, in.Transcript)
	fmt.Fprintf(&user, "Timing metrics (hints only): %s\n", metrics)
	if in.Acoustic != nil {
		acoustic, _ := json.Marshal(in.Acoustic)
		fmt.Fprintf(&user, "Acoustic features (coarse): %s\n", acoustic)
	}
	user.WriteString("Pronunciation must be judged from the transcript and metrics only; stay near the fluency band unless the transcript shows clear evidence.\n\n")
	fmt.Fprintf(&user, "Band descriptors:\n%s", scoring.RubricText(criteria))

	out, err := e.generate(ctx, user.String(), "speaking_assessment", criteria, false)
	if err != nil {
		return nil, err
	}
	out.Band = out.Criteria.SkillBand()
	return out, nil
}

func (e *examiner) generate(ctx context.Context, user, schemaName string, criteria []string, withCorrections bool) (*Assessment, error) {
	obj, err := e.ai.GenerateJSON(ctx, examinerSystem, user, schemaName, assessmentSchema(criteria, withCorrections))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", schemaName, err)
	}
	raw, err := openai.Decode[examinerOutput](obj)
	if err != nil {
		return nil, fmt.Errorf("%s decode: %w", schemaName, err)
	}
	bands, err := scoring.CriteriaBands(raw.Criteria).Normalize(criteria)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", schemaName, err)
	}
	return &Assessment{
		Criteria:    bands,
		Feedback:    strings.TrimSpace(raw.Feedback),
		Corrections: raw.Corrections,
	}, nil
}

func assessmentSchema(criteria []string, withCorrections bool) map[string]any {
	props := map[string]any{}
	for _, c := range criteria {
		props[c] = map[string]any{"type": "number", "minimum": 0, "maximum": 9}
	}
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"criteria": map[string]any{
				"type":                 "object",
				"properties":           props,
				"required":             criteria,
				"additionalProperties": false,
			},
			"feedback": map[string]any{"type": "string"},
		},
		"required":             []string{"criteria", "feedback"},
		"additionalProperties": false,
	}
	if withCorrections {
		schema["properties"].(map[string]any)["corrections"] = map[string]any{
			"type":     "array",
			"maxItems": 10,
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"original":    map[string]any{"type": "string"},
					"suggestion":  map[string]any{"type": "string"},
					"explanation": map[string]any{"type": "string"},
				},
				"required":             []string{"original", "suggestion", "explanation"},
				"additionalProperties": false,
			},
		}
		schema["required"] = []string{"criteria", "feedback", "corrections"}
	}
	return schema
}
