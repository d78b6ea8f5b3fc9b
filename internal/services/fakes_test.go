package services

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/ielts-backend/internal/data/repos/testutil"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/platform/ctxutil"
	"github.com/yungbote/ielts-backend/internal/platform/openai"
)

// fakeAI replays canned model output.
type fakeAI struct {
	openai.Client
	chunks  []string
	obj     map[string]any
	err     error
	system  string
	history []openai.Message
}

func (f *fakeAI) StreamChat(_ context.Context, system string, history []openai.Message, onDelta func(string)) (string, error) {
	f.system = system
	f.history = history
	var b strings.Builder
	for _, c := range f.chunks {
		if onDelta != nil {
			onDelta(c)
		}
		b.WriteString(c)
	}
	return b.String(), f.err
}

func (f *fakeAI) GenerateJSON(context.Context, string, string, string, map[string]any) (map[string]any, error) {
	return f.obj, f.err
}

func (f *fakeAI) Model() string { return "fake" }

func adminCtx(userID uuid.UUID) context.Context {
	return ctxutil.WithRequestData(context.Background(), &ctxutil.RequestData{UserID: userID, Role: "admin"})
}

func seedUser(t *testing.T) *types.User {
	t.Helper()
	return testutil.SeedUser(t, context.Background(), testutil.DB(t), uuid.NewString()+"@example.com")
}
