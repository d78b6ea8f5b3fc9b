package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/ielts-backend/internal/observability"
	"github.com/yungbote/ielts-backend/internal/platform/ctxutil"
	"github.com/yungbote/ielts-backend/internal/platform/envutil"
	"github.com/yungbote/ielts-backend/internal/platform/httpx"
	"github.com/yungbote/ielts-backend/internal/platform/logger"
	"github.com/yungbote/ielts-backend/internal/platform/promptstyle"
)

const responsesPath = "/v1/responses"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Client interface {
	// GenerateJSON asks for a strict json_schema response and decodes it.
	GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error)
	GenerateText(ctx context.Context, system, user string) (string, error)
	// StreamChat forwards output_text deltas to onDelta and returns the
	// full text once the stream ends.
	StreamChat(ctx context.Context, system string, history []Message, onDelta func(delta string)) (string, error)
	Model() string
}

type client struct {
	log         *logger.Logger
	baseURL     string
	apiKey      string
	model       string
	httpClient  *http.Client
	streamHTTP  *http.Client
	maxRetries  int
	temperature *float64

	noTempMu sync.RWMutex
	noTemp   map[string]bool
}

func NewClient(log *logger.Logger) (Client, error) {
	apiKey := envutil.String("OPENAI_API_KEY", "")
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	c := &client{
		log:        log.With("client", "OpenAIClient"),
		baseURL:    strings.TrimRight(envutil.String("OPENAI_BASE_URL", "https://api.openai.com"), "/"),
		apiKey:     apiKey,
		model:      envutil.String("OPENAI_MODEL", "gpt-4o-mini"),
		httpClient: &http.Client{Timeout: envutil.Seconds("OPENAI_TIMEOUT_SECONDS", 180*time.Second)},
		// Streams are bounded by the caller's context instead.
		streamHTTP: &http.Client{},
		maxRetries: envutil.Int("OPENAI_MAX_RETRIES", 4),
		noTemp:     map[string]bool{},
	}
	switch raw := strings.ToLower(envutil.String("OPENAI_TEMPERATURE", "0.2")); raw {
	case "off", "none", "":
	default:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			c.temperature = &f
		}
	}
	for _, m := range envutil.List("OPENAI_NO_TEMPERATURE_MODELS") {
		c.noTemp[strings.ToLower(m)] = true
	}
	return c, nil
}

func (c *client) Model() string { return c.model }

type responsesInput struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responsesRequest struct {
	Model       string           `json:"model"`
	Input       []responsesInput `json:"input"`
	Text        *responsesText   `json:"text,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	Stream      bool             `json:"stream,omitempty"`
}

type responsesText struct {
	Format map[string]any `json:"format"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role"`
		Content []struct {
			Type    string `json:"type"`
			Text    string `json:"text"`
			Refusal string `json:"refusal"`
		} `json:"content"`
	} `json:"output"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// text joins assistant output_text parts and reports any refusal.
func (r responsesResponse) text() (string, string) {
	var out strings.Builder
	var refusal string
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			switch part.Type {
			case "output_text":
				out.WriteString(part.Text)
			case "refusal":
				refusal = part.Refusal
			}
		}
	}
	return out.String(), refusal
}

type HTTPError struct {
	StatusCode int
	Body       string
	header     http.Header
}

func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, body)
}

func (e *HTTPError) HTTPStatusCode() int { return e.StatusCode }

func (c *client) newRequest(ctx context.Context, body any, stream bool) (*http.Request, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+responsesPath, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	return req, nil
}

func (c *client) doOnce(ctx context.Context, body *responsesRequest) (*responsesResponse, error) {
	req, err := c.newRequest(ctx, body, false)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw), header: resp.Header}
	}
	var out responsesResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("openai decode: %w", err)
	}
	return &out, nil
}

// do retries transient failures and drops temperature once if the model
// rejects it.
func (c *client) do(ctx context.Context, body *responsesRequest) (*responsesResponse, error) {
	ctx = ctxutil.Default(ctx)
	start := time.Now()
	var last error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		out, err := c.doOnce(ctx, body)
		if err == nil {
			observability.Current().ObserveLLMRequest(body.Model, responsesPath, "200", time.Since(start), out.Usage.InputTokens, out.Usage.OutputTokens)
			return out, nil
		}
		last = err
		if body.Temperature != nil && rejectsTemperature(err) {
			c.markNoTemp(body.Model)
			body.Temperature = nil
			attempt--
			continue
		}
		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			break
		}
		var hdr http.Header
		var he *HTTPError
		if errors.As(err, &he) {
			hdr = he.header
		}
		wait := httpx.Jitter(httpx.RetryAfter(hdr, httpx.Backoff(attempt+1, time.Second, 10*time.Second), 30*time.Second))
		c.log.Warn("OpenAI request retrying", "attempt", attempt+1, "sleep", wait.String(), "error", err)
		if err := httpx.Sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	observability.Current().ObserveLLMRequest(body.Model, responsesPath, statusLabel(last), time.Since(start), 0, 0)
	return nil, last
}

func statusLabel(err error) string {
	var he *HTTPError
	if errors.As(err, &he) {
		return strconv.Itoa(he.StatusCode)
	}
	return "error"
}

func rejectsTemperature(err error) bool {
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusBadRequest {
		return false
	}
	msg := strings.ToLower(he.Body)
	return strings.Contains(msg, "temperature") &&
		(strings.Contains(msg, "unsupported") || strings.Contains(msg, "not supported") || strings.Contains(msg, "only the default"))
}

func (c *client) markNoTemp(model string) {
	c.noTempMu.Lock()
	c.noTemp[strings.ToLower(model)] = true
	c.noTempMu.Unlock()
}

func (c *client) request(system string, history []Message, stream bool) *responsesRequest {
	req := &responsesRequest{Model: c.model, Stream: stream}
	req.Input = append(req.Input, responsesInput{Role: "system", Content: system})
	for _, m := range history {
		req.Input = append(req.Input, responsesInput{Role: m.Role, Content: m.Content})
	}
	c.noTempMu.RLock()
	skip := c.noTemp[strings.ToLower(c.model)]
	c.noTempMu.RUnlock()
	if !skip && c.temperature != nil {
		t := *c.temperature
		req.Temperature = &t
	}
	return req
}

func (c *client) GenerateJSON(ctx context.Context, system, user, schemaName string, schema map[string]any) (map[string]any, error) {
	if schemaName == "" || schema == nil {
		return nil, errors.New("openai: schema name and schema required")
	}
	req := c.request(promptstyle.ApplySystem(system, promptstyle.ModeJSON), []Message{{Role: "user", Content: user}}, false)
	req.Text = &responsesText{Format: map[string]any{
		"type":   "json_schema",
		"name":   schemaName,
		"schema": schema,
		"strict": true,
	}}
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	text, refusal := resp.text()
	if refusal != "" {
		return nil, fmt.Errorf("model refused: %s", refusal)
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("openai: empty output_text")
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, fmt.Errorf("openai: model returned invalid JSON: %w", err)
	}
	return obj, nil
}

func (c *client) GenerateText(ctx context.Context, system, user string) (string, error) {
	resp, err := c.do(ctx, c.request(promptstyle.ApplySystem(system, promptstyle.ModeText), []Message{{Role: "user", Content: user}}, false))
	if err != nil {
		return "", err
	}
	text, refusal := resp.text()
	if refusal != "" {
		return "", fmt.Errorf("model refused: %s", refusal)
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("openai: empty output_text")
	}
	return text, nil
}

func (c *client) StreamChat(ctx context.Context, system string, history []Message, onDelta func(delta string)) (string, error) {
	ctx = ctxutil.Default(ctx)
	start := time.Now()
	body := c.request(promptstyle.ApplySystem(system, promptstyle.ModeText), history, true)

	open := func() (*http.Response, error) {
		req, err := c.newRequest(ctx, body, true)
		if err != nil {
			return nil, err
		}
		resp, err := c.streamHTTP.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
			return resp, nil
		}
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(raw), header: resp.Header}
	}

	resp, err := open()
	if err != nil && body.Temperature != nil && rejectsTemperature(err) {
		c.markNoTemp(body.Model)
		body.Temperature = nil
		resp, err = open()
	}
	if err != nil {
		observability.Current().ObserveLLMRequest(body.Model, responsesPath, statusLabel(err), time.Since(start), 0, 0)
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	var usage struct{ in, out int }
	err = readSSE(resp.Body, func(event, data string) error {
		if data == "" || data == "[DONE]" {
			return nil
		}
		var ev streamEvent
		if json.Unmarshal([]byte(data), &ev) != nil {
			return nil
		}
		if ev.Type == "" {
			ev.Type = event
		}
		switch ev.Type {
		case "response.output_text.delta":
			if ev.Delta != "" {
				full.WriteString(ev.Delta)
				if onDelta != nil {
					onDelta(ev.Delta)
				}
			}
		case "response.refusal.delta":
			return fmt.Errorf("model refused: %s", ev.Delta)
		case "response.completed":
			usage.in = ev.Response.Usage.InputTokens
			usage.out = ev.Response.Usage.OutputTokens
		case "error", "response.failed":
			return fmt.Errorf("openai stream error: %s", data)
		}
		return nil
	})
	status := "200"
	if err != nil {
		status = "stream_error"
	}
	observability.Current().ObserveLLMRequest(body.Model, responsesPath, status, time.Since(start), usage.in, usage.out)
	if err != nil {
		return full.String(), err
	}
	return full.String(), nil
}

type streamEvent struct {
	Type     string `json:"type"`
	Delta    string `json:"delta"`
	Response struct {
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	} `json:"response"`
}

// Decode converts a GenerateJSON result into a typed struct.
func Decode[T any](obj map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(obj)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(raw, &out)
	return out, err
}
