package email_send

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/ielts-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ielts-backend/internal/domain"
	jobrt "github.com/yungbote/ielts-backend/internal/jobs/runtime"
	"github.com/yungbote/ielts-backend/internal/services"
)

type fakeEmail struct {
	services.EmailService
	err  error
	kind string
	user uuid.UUID
}

func (f *fakeEmail) Send(_ context.Context, kind string, userID uuid.UUID) error {
	f.kind, f.user = kind, userID
	return f.err
}

func TestEmailSendOutcomes(t *testing.T) {
	uid := uuid.New()
	valid := `{"kind":"welcome","user_id":"` + uid.String() + `"}`
	cases := []struct {
		name      string
		payload   string
		err       error
		wantState string
		wantStage string
	}{
		{"sent", valid, nil, types.JobStatusSucceeded, "done"},
		{"skipped", valid, services.ErrEmailSkipped, types.JobStatusSucceeded, "skipped"},
		{"provider error", valid, errors.New("503 from provider"), types.JobStatusFailed, "send"},
		{"missing user", `{"kind":"welcome"}`, nil, types.JobStatusFailed, "validate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			email := &fakeEmail{err: tc.err}
			p := New(testutil.Logger(t), email)
			job := &types.JobRun{JobType: types.JobTypeEmailSend, Status: types.JobStatusRunning, Payload: datatypes.JSON(tc.payload)}
			if err := p.Run(jobrt.NewContext(context.Background(), nil, job, nil, nil)); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if job.Status != tc.wantState || job.Stage != tc.wantStage {
				t.Fatalf("status/stage: got %s/%s want %s/%s", job.Status, job.Stage, tc.wantState, tc.wantStage)
			}
			if tc.wantStage != "validate" && (email.kind != "welcome" || email.user != uid) {
				t.Fatalf("Send args: got %s %s", email.kind, email.user)
			}
		})
	}
}
