package email_send

import (
	"errors"
	"fmt"

	jobrt "github.com/yungbote/ielts-backend/internal/jobs/runtime"
	"github.com/yungbote/ielts-backend/internal/services"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	kind := jc.PayloadString("kind")
	userID, ok := jc.PayloadUUID("user_id")
	if kind == "" || !ok {
		jc.Fail("validate", fmt.Errorf("email_send needs kind and user_id"))
		return nil
	}
	jc.Progress("send", 30, "Sending "+kind+" email")
	err := p.email.Send(jc.Ctx, kind, userID)
	if errors.Is(err, services.ErrEmailSkipped) {
		jc.Succeed("skipped", map[string]any{"kind": kind, "skipped": true})
		return nil
	}
	if err != nil {
		jc.Fail("send", err)
		return nil
	}
	jc.Succeed("done", map[string]any{"kind": kind})
	return nil
}
