package email_send

import (
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/services"
)

type Pipeline struct {
	log   *logger.Logger
	email services.EmailService
}

func New(baseLog *logger.Logger, email services.EmailService) *Pipeline {
	return &Pipeline{log: baseLog.With("job", types.JobTypeEmailSend), email: email}
}

func (p *Pipeline) Type() string { return types.JobTypeEmailSend }
