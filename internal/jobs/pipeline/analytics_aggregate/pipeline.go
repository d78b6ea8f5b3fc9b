package analytics_aggregate

import (
	"fmt"
	"time"

	jobrt "github.com/yungbote/ielts-backend/internal/jobs/runtime"
)

// Run aggregates payload "day" (YYYY-MM-DD), defaulting to yesterday in UTC.
func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	day := time.Now().UTC().AddDate(0, 0, -1)
	if raw := jc.PayloadString("day"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			jc.Fail("validate", fmt.Errorf("invalid day %q", raw))
			return nil
		}
		day = parsed
	}
	jc.Progress("aggregate", 10, "Aggregating "+day.Format("2006-01-02"))
	res, err := p.analytics.Aggregate(jc.Ctx, day)
	if err != nil {
		jc.Fail("aggregate", err)
		return nil
	}
	jc.Succeed("done", res)
	return nil
}
