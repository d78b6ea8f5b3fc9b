package services

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	"github.com/yungbote/ielts-backend/internal/data/repos/testutil"
	"github.com/yungbote/ielts-backend/internal/domain/tutor"
	"github.com/yungbote/ielts-backend/internal/platform/apierr"
)

func newTutorService(t *testing.T, ai *fakeAI) TutorService {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	return NewTutorService(log,
		repos.NewTutorThreadRepo(db, log),
		repos.NewTutorMessageRepo(db, log),
		newProgressService(t),
		ai,
	)
}

func TestTutorSendMessageStreamsAndStores(t *testing.T) {
	ai := &fakeAI{chunks: []string{"Use ", "linking words."}}
	svc := newTutorService(t, ai)
	u := seedUser(t)
	ctx := userCtx(u.ID)

	if _, err := svc.CreateThread(ctx, "x", "grammar"); err == nil {
		t.Fatalf("CreateThread bad skill: expected error")
	}
	th, err := svc.CreateThread(ctx, "  ", "Writing")
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}
	if th.Title != defaultThreadTitle || th.Skill != "writing" {
		t.Fatalf("CreateThread: got title=%q skill=%q", th.Title, th.Skill)
	}

	var deltas []string
	reply, err := svc.SendMessage(ctx, th.ID, " How do I improve cohesion? ", func(d string) { deltas = append(deltas, d) })
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if strings.Join(deltas, "|") != "Use |linking words." {
		t.Fatalf("deltas: got %q", deltas)
	}
	if reply.UserMessage.Content != "How do I improve cohesion?" || reply.AssistantMessage.Content != "Use linking words." {
		t.Fatalf("reply: got %q / %q", reply.UserMessage.Content, reply.AssistantMessage.Content)
	}
	if reply.AssistantMessage.Role != tutor.RoleAssistant {
		t.Fatalf("assistant role: got %s", reply.AssistantMessage.Role)
	}
	if !strings.Contains(ai.system, "focuses on writing") || !strings.Contains(ai.system, "target band 7.0") {
		t.Fatalf("system prompt: got %q", ai.system)
	}
	if n := len(ai.history); n == 0 || ai.history[n-1].Content != "How do I improve cohesion?" {
		t.Fatalf("history: got %+v", ai.history)
	}

	msgs, err := svc.ListMessages(ctx, th.ID, 0)
	if err != nil || len(msgs) != 2 {
		t.Fatalf("ListMessages: got %d err %v", len(msgs), err)
	}
	if _, err := svc.ListMessages(userCtx(uuid.New()), th.ID, 0); err == nil {
		t.Fatalf("ListMessages other user: expected not found")
	}
}

func TestTutorSendMessageFailures(t *testing.T) {
	ai := &fakeAI{err: errors.New("upstream down")}
	svc := newTutorService(t, ai)
	u := seedUser(t)
	ctx := userCtx(u.ID)
	th, err := svc.CreateThread(ctx, "Speaking help", "")
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}

	_, err = svc.SendMessage(ctx, th.ID, "   ", nil)
	if ae, ok := apierr.As(err); !ok || ae.Status != http.StatusBadRequest {
		t.Fatalf("empty message: got %v, want 400", err)
	}
	_, err = svc.SendMessage(ctx, th.ID, strings.Repeat("a", maxTutorMessageChars+1), nil)
	if ae, ok := apierr.As(err); !ok || ae.Status != http.StatusBadRequest {
		t.Fatalf("long message: got %v, want 400", err)
	}
	_, err = svc.SendMessage(ctx, th.ID, "hello", nil)
	if ae, ok := apierr.As(err); !ok || ae.Status != http.StatusBadGateway {
		t.Fatalf("model down: got %v, want 502", err)
	}

	// A stream that breaks after some output keeps the partial answer.
	ai.chunks = []string{"Partial"}
	reply, err := svc.SendMessage(ctx, th.ID, "again", nil)
	if err != nil || reply.AssistantMessage.Content != "Partial" {
		t.Fatalf("partial reply: got %+v err %v", reply, err)
	}

	if err := svc.DeleteThread(ctx, th.ID); err != nil {
		t.Fatalf("DeleteThread: %v", err)
	}
	if err := svc.DeleteThread(ctx, th.ID); err == nil {
		t.Fatalf("DeleteThread twice: expected not found")
	}
}
