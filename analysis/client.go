package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/briefwizard/brief"
	"github.com/c360studio/briefwizard/config"
	"github.com/c360studio/briefwizard/trigger"
)

// maxResponseSize limits the completion body to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// maxFileContextChars bounds how much attachment text joins the prompt.
const maxFileContextChars = 4000

// RetryConfig holds retry configuration for collaborator requests.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts per request.
	MaxAttempts int

	// BackoffBase is the initial backoff duration.
	BackoffBase time.Duration

	// BackoffMultiplier is applied to backoff on each retry.
	BackoffMultiplier float64

	// MaxBackoff caps the maximum backoff duration.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
}

// Client is an OpenAI-compatible chat completion adapter implementing
// Analyzer, RoadmapGenerator and Commenter.
type Client struct {
	cfg         config.AnalysisConfig
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) { client.httpClient = c }
}

// WithRetryConfig sets the retry configuration.
func WithRetryConfig(rc RetryConfig) ClientOption {
	return func(client *Client) { client.retryConfig = rc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(client *Client) { client.logger = l }
}

// NewClient creates a collaborator client for the configured endpoint.
func NewClient(cfg config.AnalysisConfig, opts ...ClientOption) *Client {
	c := &Client{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		retryConfig: DefaultRetryConfig(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chat wire types (OpenAI completion format).
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// complete sends one chat completion with retry and backoff.
func (c *Client) complete(ctx context.Context, system string, messages []chatMessage) (string, error) {
	requestID := uuid.NewString()
	all := append([]chatMessage{{Role: "system", Content: system}}, messages...)
	body, err := json.Marshal(chatRequest{Model: c.cfg.Model, Messages: all, Temperature: c.cfg.Temperature})
	if err != nil {
		return "", NewFatalError(fmt.Errorf("marshal request: %w", err))
	}

	backoff := c.retryConfig.BackoffBase
	var lastErr error
	for attempt := 1; attempt <= c.retryConfig.MaxAttempts; attempt++ {
		content, err := c.send(ctx, body)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if !IsTransient(err) || attempt == c.retryConfig.MaxAttempts {
			break
		}
		// Jittered exponential backoff between attempts.
		sleep := backoff + time.Duration(rand.Int63n(int64(backoff/2)+1))
		if sleep > c.retryConfig.MaxBackoff {
			sleep = c.retryConfig.MaxBackoff
		}
		c.logger.Warn("analysis request failed, retrying",
			slog.String("request_id", requestID),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", sleep),
			slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(sleep):
		}
		backoff = time.Duration(float64(backoff) * c.retryConfig.BackoffMultiplier)
	}
	return "", lastErr
}

func (c *Client) send(ctx context.Context, body []byte) (string, error) {
	url := strings.TrimSuffix(c.cfg.Endpoint, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", NewFatalError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", NewTransientError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", NewTransientError(fmt.Errorf("read response: %w", err))
	}
	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", NewTransientError(fmt.Errorf("endpoint returned %d", resp.StatusCode))
	default:
		return "", NewFatalError(fmt.Errorf("endpoint returned %d: %s", resp.StatusCode, truncate(string(data), 200)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", NewFatalError(fmt.Errorf("decode response: %w", err))
	}
	if len(parsed.Choices) == 0 {
		return "", NewFatalError(fmt.Errorf("response carries no choices"))
	}
	return parsed.Choices[0].Message.Content, nil
}

// Analyze implements Analyzer.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (*brief.ConversationAnalysis, error) {
	messages := make([]chatMessage, 0, len(req.History)+2)
	for _, m := range req.History {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	if fileCtx := fileContext(req.UploadedFiles); fileCtx != "" {
		messages = append(messages, chatMessage{Role: "user", Content: fileCtx})
	}
	if prevCtx := previousContext(req.Previous); prevCtx != "" {
		messages = append(messages, chatMessage{Role: "user", Content: prevCtx})
	}
	if req.Message != "" {
		messages = append(messages, chatMessage{Role: "user", Content: req.Message})
	}

	content, err := c.complete(ctx, analysisSystemPrompt, messages)
	if err != nil {
		return nil, err
	}
	jsonStr := ExtractJSON(content)
	if jsonStr == "" {
		return nil, NewFatalError(fmt.Errorf("no JSON found in analysis response"))
	}
	var result brief.ConversationAnalysis
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return nil, NewFatalError(fmt.Errorf("invalid analysis JSON: %w", err))
	}
	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}
	return &result, nil
}

// Generate implements RoadmapGenerator.
func (c *Client) Generate(ctx context.Context, a *brief.ConversationAnalysis, projectType string) (*brief.Roadmap, error) {
	summary, err := json.Marshal(a)
	if err != nil {
		return nil, NewFatalError(err)
	}
	prompt := fmt.Sprintf(roadmapUserPrompt, projectType, string(summary))
	content, err := c.complete(ctx, roadmapSystemPrompt, []chatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		return nil, err
	}
	jsonStr := ExtractJSON(content)
	if jsonStr == "" {
		return nil, NewFatalError(fmt.Errorf("no JSON found in roadmap response"))
	}
	var parsed struct {
		Phases []struct {
			Title         string `json:"title"`
			Goal          string `json:"goal"`
			EstimatedDays int    `json:"estimated_days"`
		} `json:"phases"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil, NewFatalError(fmt.Errorf("invalid roadmap JSON: %w", err))
	}
	if len(parsed.Phases) == 0 {
		return nil, NewFatalError(fmt.Errorf("roadmap response carries no phases"))
	}

	rm := &brief.Roadmap{
		AIConfidence: parsed.Confidence,
		GeneratedAt:  time.Now(),
	}
	for i, p := range parsed.Phases {
		rm.Phases = append(rm.Phases, brief.RoadmapPhase{
			ID:            uuid.NewString(),
			Title:         p.Title,
			Goal:          p.Goal,
			Order:         i,
			Current:       i == 0,
			EstimatedDays: p.EstimatedDays,
		})
	}
	rm.CurrentPhaseID = rm.Phases[0].ID
	return rm, nil
}

// Comment implements Commenter.
func (c *Client) Comment(ctx context.Context, t trigger.Trigger) (string, error) {
	prompt := fmt.Sprintf(commentUserPrompt,
		t.Type, t.Field, t.PreviousValue, t.NewValue, t.Significance)
	content, err := c.complete(ctx, commentSystemPrompt, []chatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// fileContext renders approved attachments as prompt context, truncated so
// big uploads do not crowd out the conversation.
func fileContext(files []brief.UploadedFile) string {
	if len(files) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Attached files:\n")
	for _, f := range files {
		fmt.Fprintf(&b, "--- %s (%s) ---\n", f.Name, f.Type)
		if f.Content != "" {
			b.WriteString(truncate(f.Content, maxFileContextChars))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func previousContext(prev *brief.ConversationAnalysis) string {
	if prev == nil {
		return ""
	}
	data, err := json.Marshal(prev)
	if err != nil {
		return ""
	}
	return "Previous analysis:\n" + string(data)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n[truncated]"
}
