package exam_generate

import (
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/services"
)

type Pipeline struct {
	log   *logger.Logger
	exams services.ExamGeneratorService
}

func New(baseLog *logger.Logger, exams services.ExamGeneratorService) *Pipeline {
	return &Pipeline{log: baseLog.With("job", types.JobTypeExamGenerate), exams: exams}
}

func (p *Pipeline) Type() string { return types.JobTypeExamGenerate }
