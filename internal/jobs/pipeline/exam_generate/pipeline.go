package exam_generate

import (
	jobrt "github.com/yungbote/ielts-backend/internal/jobs/runtime"
	"github.com/yungbote/ielts-backend/internal/services"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	var req services.ExamRequest
	if err := jc.PayloadInto(&req); err != nil {
		jc.Fail("validate", err)
		return nil
	}
	jc.Progress("generate", 20, "Writing the exam")
	item, err := p.exams.Generate(jc.Ctx, jc.Job.OwnerUserID, req)
	if err != nil {
		jc.Fail("generate", err)
		return nil
	}
	jc.Succeed("done", map[string]any{
		"content_item_id": item.ID,
		"skill":           item.Skill,
		"title":           item.Title,
	})
	return nil
}
