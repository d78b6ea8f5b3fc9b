package analytics_aggregate

import (
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/services"
)

type Pipeline struct {
	log       *logger.Logger
	analytics services.AnalyticsService
}

func New(baseLog *logger.Logger, analytics services.AnalyticsService) *Pipeline {
	return &Pipeline{log: baseLog.With("job", types.JobTypeAnalyticsAggregate), analytics: analytics}
}

func (p *Pipeline) Type() string { return types.JobTypeAnalyticsAggregate }
