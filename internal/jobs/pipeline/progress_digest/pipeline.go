package progress_digest

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	jobrt "github.com/yungbote/ielts-backend/internal/jobs/runtime"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/services"
)

type Result struct {
	Recipients int `json:"recipients"`
	Sent       int `json:"sent"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// Run pages through opted-in users by id. One failed send does not stop the
// rest; the job fails only when every attempted send failed.
func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	res := &Result{}
	after := uuid.Nil
	for {
		if jc.Canceled() {
			return nil
		}
		users, err := p.users.ListDigestRecipients(dbctx.Context{Ctx: jc.Ctx}, after, pageSize)
		if err != nil {
			jc.Fail("list", err)
			return nil
		}
		for _, u := range users {
			res.Recipients++
			err := p.email.SendDigest(jc.Ctx, u.ID)
			switch {
			case err == nil:
				res.Sent++
			case errors.Is(err, services.ErrEmailSkipped):
				res.Skipped++
			default:
				res.Failed++
				p.log.Warn("Digest send failed", "user_id", u.ID, "error", err)
			}
		}
		jc.Progress("send", progressPct(res.Recipients), fmt.Sprintf("%d digests processed", res.Recipients))
		if len(users) < pageSize {
			break
		}
		after = users[len(users)-1].ID
	}
	if res.Failed > 0 && res.Sent == 0 && res.Skipped == 0 {
		jc.Fail("send", fmt.Errorf("all %d digest sends failed", res.Failed))
		return nil
	}
	jc.Succeed("done", res)
	return nil
}

// progressPct creeps toward 95 since the recipient total is not known upfront.
func progressPct(done int) int {
	pct := 5 + done/10
	if pct > 95 {
		pct = 95
	}
	return pct
}
