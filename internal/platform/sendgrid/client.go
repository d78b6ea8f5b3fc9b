package sendgrid

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	sg "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/yungbote/ielts-backend/internal/platform/ctxutil"
	"github.com/yungbote/ielts-backend/internal/platform/envutil"
	"github.com/yungbote/ielts-backend/internal/platform/httpx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
)

const mailSendPath = "/v3/mail/send"

type Client interface {
	Send(ctx context.Context, msg Email) (*SendResult, error)
}

type Config struct {
	APIKey    string
	Host      string
	FromEmail string
	FromName  string
	Timeout   time.Duration
	Retries   int
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:    envutil.String("SENDGRID_API_KEY", ""),
		Host:      envutil.String("SENDGRID_HOST", "https://api.sendgrid.com"),
		FromEmail: envutil.String("SENDGRID_FROM_EMAIL", ""),
		FromName:  envutil.String("SENDGRID_FROM_NAME", "IELTS Coach"),
		Timeout:   envutil.Seconds("SENDGRID_TIMEOUT_SECONDS", 30*time.Second),
		Retries:   envutil.Int("SENDGRID_MAX_RETRIES", 3),
	}
}

func NewFromEnv(log *logger.Logger) (Client, error) {
	return New(log, ConfigFromEnv())
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing SENDGRID_API_KEY")
	}
	if cfg.FromEmail == "" {
		return nil, fmt.Errorf("missing SENDGRID_FROM_EMAIL")
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &client{log: log.With("client", "SendGridClient"), cfg: cfg}, nil
}

type client struct {
	log *logger.Logger
	cfg Config
}

type Address struct {
	Email string
	Name  string
}

type Attachment struct {
	Filename string
	MIMEType string
	Content  []byte
}

type Email struct {
	To          []Address
	Subject     string
	Text        string
	HTML        string
	Categories  []string
	Attachments []Attachment
}

type SendResult struct {
	StatusCode int
	MessageID  string
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	var parsed struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if json.Unmarshal([]byte(e.Body), &parsed) == nil && len(parsed.Errors) > 0 && parsed.Errors[0].Message != "" {
		return fmt.Sprintf("sendgrid http %d: %s", e.StatusCode, parsed.Errors[0].Message)
	}
	body := strings.TrimSpace(e.Body)
	if len(body) > 1000 {
		body = body[:1000] + "..."
	}
	return fmt.Sprintf("sendgrid http %d: %s", e.StatusCode, body)
}

func (e *HTTPError) HTTPStatusCode() int { return e.StatusCode }

// Build converts an Email into the v3 mail payload.
func (c *client) Build(msg Email) (*mail.SGMailV3, error) {
	if len(msg.To) == 0 {
		return nil, fmt.Errorf("sendgrid: recipient required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return nil, fmt.Errorf("sendgrid: subject required")
	}
	if strings.TrimSpace(msg.Text) == "" && strings.TrimSpace(msg.HTML) == "" {
		return nil, fmt.Errorf("sendgrid: text or html content required")
	}

	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(c.cfg.FromName, c.cfg.FromEmail))
	m.Subject = strings.TrimSpace(msg.Subject)

	p := mail.NewPersonalization()
	for _, to := range msg.To {
		p.AddTos(mail.NewEmail(to.Name, to.Email))
	}
	m.AddPersonalizations(p)

	// text/plain must precede text/html
	if t := strings.TrimSpace(msg.Text); t != "" {
		m.AddContent(mail.NewContent("text/plain", t))
	}
	if h := strings.TrimSpace(msg.HTML); h != "" {
		m.AddContent(mail.NewContent("text/html", h))
	}
	if len(msg.Categories) > 0 {
		m.AddCategories(msg.Categories...)
	}
	for _, a := range msg.Attachments {
		if a.Filename == "" || len(a.Content) == 0 {
			return nil, fmt.Errorf("sendgrid: attachment needs a filename and content")
		}
		att := mail.NewAttachment()
		att.SetFilename(a.Filename)
		att.SetType(a.MIMEType)
		att.SetDisposition("attachment")
		att.SetContent(base64.StdEncoding.EncodeToString(a.Content))
		m.AddAttachment(att)
	}
	return m, nil
}

func (c *client) Send(ctx context.Context, msg Email) (*SendResult, error) {
	m, err := c.Build(msg)
	if err != nil {
		return nil, err
	}
	body := mail.GetRequestBody(m)
	ctx = ctxutil.Default(ctx)

	for attempt := 0; ; attempt++ {
		resp, err := c.sendOnce(ctx, body)
		if err == nil {
			var id string
			if v := resp.Headers["X-Message-Id"]; len(v) > 0 {
				id = v[0]
			}
			return &SendResult{StatusCode: resp.StatusCode, MessageID: id}, nil
		}
		if !httpx.IsRetryableError(err) || attempt >= c.cfg.Retries {
			return nil, err
		}
		wait := httpx.Jitter(httpx.Backoff(attempt+1, time.Second, 10*time.Second))
		c.log.Warn("SendGrid request retrying", "attempt", attempt+1, "sleep", wait.String(), "error", err)
		if err := httpx.Sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}

func (c *client) sendOnce(ctx context.Context, body []byte) (*rest.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req := sg.GetRequest(c.cfg.APIKey, mailSendPath, c.cfg.Host)
	req.Method = rest.Post
	req.Body = body
	resp, err := sg.MakeRequestWithContext(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: resp.Body}
	}
	return resp, nil
}
