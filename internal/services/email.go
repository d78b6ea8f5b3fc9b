package services

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/ielts-backend/internal/data/repos"
	types "github.com/yungbote/ielts-backend/internal/domain"
	"github.com/yungbote/ielts-backend/internal/observability"
	"github.com/yungbote/ielts-backend/internal/platform/dbctx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/platform/sendgrid"
)

const (
	EmailKindWelcome = "welcome"
	EmailKindDigest  = "digest"

	digestWindowDays = 7
	xlsxMime         = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ErrEmailSkipped marks a send that was intentionally not attempted.
var ErrEmailSkipped = fmt.Errorf("email skipped")

type EmailService interface {
	Send(ctx context.Context, kind string, userID uuid.UUID) error
	SendWelcome(ctx context.Context, userID uuid.UUID) error
	// SendDigest mails the weekly progress digest with the xlsx export attached.
	SendDigest(ctx context.Context, userID uuid.UUID) error
}

type emailService struct {
	log       *logger.Logger
	mail      sendgrid.Client
	users     repos.UserRepo
	analytics AnalyticsService
	appURL    string
}

// NewEmailService accepts a nil client; every send is then skipped.
func NewEmailService(baseLog *logger.Logger, mail sendgrid.Client, users repos.UserRepo, analytics AnalyticsService, appURL string) EmailService {
	return &emailService{
		log:       baseLog.With("service", "EmailService"),
		mail:      mail,
		users:     users,
		analytics: analytics,
		appURL:    strings.TrimRight(appURL, "/"),
	}
}

func (s *emailService) Send(ctx context.Context, kind string, userID uuid.UUID) error {
	switch kind {
	case EmailKindWelcome:
		return s.SendWelcome(ctx, userID)
	case EmailKindDigest:
		return s.SendDigest(ctx, userID)
	}
	return fmt.Errorf("unknown email kind %q", kind)
}

func (s *emailService) recipient(ctx context.Context, kind string, userID uuid.UUID) (*types.User, error) {
	if s.mail == nil {
		s.log.Debug("Email disabled", "kind", kind, "user_id", userID)
		observability.Current().IncEmail(kind, "skipped")
		return nil, ErrEmailSkipped
	}
	rows, err := s.users.GetByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{userID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		observability.Current().IncEmail(kind, "skipped")
		return nil, ErrEmailSkipped
	}
	return rows[0], nil
}

func (s *emailService) deliver(ctx context.Context, kind string, msg sendgrid.Email) error {
	res, err := s.mail.Send(ctx, msg)
	if err != nil {
		observability.Current().IncEmail(kind, "failed")
		return fmt.Errorf("send %s email: %w", kind, err)
	}
	observability.Current().IncEmail(kind, "sent")
	s.log.Info("Email sent", "kind", kind, "message_id", res.MessageID)
	return nil
}

func (s *emailService) SendWelcome(ctx context.Context, userID uuid.UUID) error {
	u, err := s.recipient(ctx, EmailKindWelcome, userID)
	if err != nil {
		return err
	}
	name := displayName(u)
	text := fmt.Sprintf(
		"Hi %s,\n\nWelcome aboard. Your target is band %.1f.\nStart with one short practice in each skill so we can build your learning path.\n\n%s\n",
		name, u.TargetBand, s.appURL,
	)
	htmlBody := fmt.Sprintf(
		"<p>Hi %s,</p><p>Welcome aboard. Your target is band <strong>%.1f</strong>.</p><p>Start with one short practice in each skill so we can build your learning path.</p><p><a href=\"%s\">Open your dashboard</a></p>",
		html.EscapeString(name), u.TargetBand, html.EscapeString(s.appURL),
	)
	return s.deliver(ctx, EmailKindWelcome, sendgrid.Email{
		To:         []sendgrid.Address{{Email: u.Email, Name: name}},
		Subject:    "Welcome to your IELTS coach",
		Text:       text,
		HTML:       htmlBody,
		Categories: []string{EmailKindWelcome},
	})
}

func (s *emailService) SendDigest(ctx context.Context, userID uuid.UUID) error {
	u, err := s.recipient(ctx, EmailKindDigest, userID)
	if err != nil {
		return err
	}
	if !u.EmailOptIn {
		observability.Current().IncEmail(EmailKindDigest, "skipped")
		return ErrEmailSkipped
	}
	d, err := s.analytics.DashboardFor(ctx, u.ID, digestWindowDays)
	if err != nil {
		return err
	}
	attachment, err := RenderWorkbook(d)
	if err != nil {
		return fmt.Errorf("render digest workbook: %w", err)
	}
	text, htmlBody := digestBody(displayName(u), d, s.appURL)
	return s.deliver(ctx, EmailKindDigest, sendgrid.Email{
		To:         []sendgrid.Address{{Email: u.Email, Name: displayName(u)}},
		Subject:    "Your weekly IELTS progress",
		Text:       text,
		HTML:       htmlBody,
		Categories: []string{EmailKindDigest},
		Attachments: []sendgrid.Attachment{{
			Filename: "weekly-progress.xlsx",
			MIMEType: xlsxMime,
			Content:  attachment,
		}},
	})
}

func digestBody(name string, d *Dashboard, appURL string) (string, string) {
	var t, h strings.Builder
	fmt.Fprintf(&t, "Hi %s,\n\nThis week: %d practice attempts, %.0f minutes, streak %d days.\n", name, d.TotalAttempts, d.MinutesPracticed, d.StreakDays)
	fmt.Fprintf(&h, "<p>Hi %s,</p><p>This week: <strong>%d</strong> practice attempts, %.0f minutes, streak %d days.</p><ul>",
		html.EscapeString(name), d.TotalAttempts, d.MinutesPracticed, d.StreakDays)
	if d.Progress != nil {
		for _, p := range d.Progress.Skills {
			line := fmt.Sprintf("%s: not practiced yet", titleCase(p.Skill))
			if p.Attempts > 0 {
				line = fmt.Sprintf("%s: band %.1f (%d this week)", titleCase(p.Skill), p.CurrentBand, d.PracticeCounts[p.Skill])
			}
			fmt.Fprintf(&t, "- %s\n", line)
			fmt.Fprintf(&h, "<li>%s</li>", html.EscapeString(line))
		}
		if d.Progress.Overall != nil {
			fmt.Fprintf(&t, "Overall band %.1f, target %.1f.\n", *d.Progress.Overall, d.Progress.TargetBand)
		}
	}
	h.WriteString("</ul>")
	if d.TotalAttempts == 0 {
		t.WriteString("No practice this week. Ten minutes today keeps the habit alive.\n")
		h.WriteString("<p>No practice this week. Ten minutes today keeps the habit alive.</p>")
	}
	fmt.Fprintf(&t, "\nThe attached workbook has the full history.\n%s\n", appURL)
	fmt.Fprintf(&h, "<p>The attached workbook has the full history.</p><p><a href=\"%s\">Open your dashboard</a></p>", html.EscapeString(appURL))
	return t.String(), h.String()
}

func displayName(u *types.User) string {
	name := strings.TrimSpace(u.FirstName)
	if name == "" {
		name = strings.SplitN(u.Email, "@", 2)[0]
	}
	return name
}
