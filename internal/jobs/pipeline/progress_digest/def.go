package progress_digest

import (
	"github.com/yungbote/ielts-backend/internal/data/repos"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/services"
)

const pageSize = 100

type Pipeline struct {
	log   *logger.Logger
	users repos.UserRepo
	email services.EmailService
}

func New(baseLog *logger.Logger, users repos.UserRepo, email services.EmailService) *Pipeline {
	return &Pipeline{log: baseLog.With("job", types.JobTypeProgressDigest), users: users, email: email}
}

func (p *Pipeline) Type() string { return types.JobTypeProgressDigest }
