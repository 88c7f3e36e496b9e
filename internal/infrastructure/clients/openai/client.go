package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tobenna/symptom-assist/backend/internal/domain/entities"
	"github.com/tobenna/symptom-assist/backend/internal/domain/providers"
	"github.com/tobenna/symptom-assist/backend/pkg/config"
	"github.com/tobenna/symptom-assist/backend/pkg/retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client implements the completion provider against the OpenAI responses API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	maxTokens  int
	httpClient *http.Client
	limiter    *tokenBucket
	retryCfg   retry.Config
}

// NewClient creates a new OpenAI completion client.
func NewClient(cfg *config.OpenAIConfig) (*Client, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 600
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 4
	}

	return &Client{
		apiKey:    cfg.APIKey,
		model:     model,
		baseURL:   defaultBaseURL,
		maxTokens: maxTokens,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
		limiter: newTokenBucket(cfg.RateLimitRPM, cfg.RateLimitBurst),
		retryCfg: retry.Config{
			MaxAttempts:     maxAttempts,
			InitialDelay:    500 * time.Millisecond,
			MaxDelay:        8 * time.Second,
			BackoffFactor:   2.0,
			MaxTotalTimeout: 45 * time.Second,
			Retryable:       isTransient,
		},
	}, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("openai request failed with status %d", e.code)
}

// isTransient classifies rate-limit and server-side failures as retryable.
func isTransient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	// Network-level failures (timeouts, resets) are worth another attempt.
	return !errors.Is(err, context.Canceled)
}

type responseContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responseOutput struct {
	Content []responseContent `json:"content"`
}

type responseEnvelope struct {
	Output []responseOutput `json:"output"`
}

// CompleteTurn builds the triage prompt for one conversation turn and runs it
// in JSON mode.
func (c *Client) CompleteTurn(ctx context.Context, history []entities.ConversationTurn, symptomText string) (string, error) {
	return c.Complete(ctx, providers.CompletionRequest{
		Messages: BuildTurnMessages(history, symptomText),
		JSONMode: true,
	})
}

// Complete sends the role-tagged messages to the model and returns the raw
// completion text. Transient failures are retried with backoff; on exhaustion
// the error wraps providers.ErrCompletionUnavailable.
func (c *Client) Complete(ctx context.Context, req providers.CompletionRequest) (string, error) {
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("%w: no messages", providers.ErrCompletionUnavailable)
	}

	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			recordCompletionMetric(ctx, c.model, 0, 0, err)
			return "", fmt.Errorf("%w: %v", providers.ErrCompletionUnavailable, err)
		}
		recordRateLimitWait(ctx, c.model, time.Since(waitStart))
	}

	var text string
	err := retry.DoWithLog(ctx, c.retryCfg, "OpenAI",
		func() error {
			var attemptErr error
			text, attemptErr = c.complete(ctx, req)
			return attemptErr
		},
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", providers.ErrCompletionUnavailable, err)
	}
	return text, nil
}

func (c *Client) complete(ctx context.Context, req providers.CompletionRequest) (string, error) {
	input := make([]map[string]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		input = append(input, map[string]string{"role": m.Role, "content": m.Content})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	payload := map[string]interface{}{
		"model":             c.model,
		"input":             input,
		"temperature":       0.2,
		"max_output_tokens": maxTokens,
	}
	if req.JSONMode {
		payload["text"] = map[string]interface{}{
			"format": map[string]string{"type": "json_object"},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		recordCompletionMetric(ctx, c.model, 0, time.Since(start), err)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		serr := &statusError{code: resp.StatusCode}
		recordCompletionMetric(ctx, c.model, resp.StatusCode, time.Since(start), serr)
		if resp.StatusCode == http.StatusTooManyRequests {
			return "", fmt.Errorf("%w: %v", providers.ErrCompletionRateLimited, serr)
		}
		return "", serr
	}

	var envelope responseEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		recordCompletionMetric(ctx, c.model, resp.StatusCode, time.Since(start), err)
		return "", err
	}

	var text string
	for _, out := range envelope.Output {
		for _, content := range out.Content {
			if content.Type == "output_text" && content.Text != "" {
				text = content.Text
				break
			}
		}
		if text != "" {
			break
		}
	}

	if text == "" {
		recordCompletionMetric(ctx, c.model, resp.StatusCode, time.Since(start), errors.New("missing output text"))
		return "", errors.New("openai response missing output text")
	}

	recordCompletionMetric(ctx, c.model, resp.StatusCode, time.Since(start), nil)
	return stripCodeFences(text), nil
}

// stripCodeFences removes a wrapping Markdown code block, which the model
// sometimes adds around JSON output.
func stripCodeFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	return strings.TrimSpace(cleaned)
}

func newTokenBucket(rpm int, burst int) *tokenBucket {
	if rpm == 0 {
		rpm = 60
	}
	if rpm < 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}

	bucket := &tokenBucket{
		tokens: make(chan struct{}, burst),
	}
	for i := 0; i < burst; i++ {
		bucket.tokens <- struct{}{}
	}

	interval := time.Minute / time.Duration(rpm)
	if interval <= 0 {
		interval = time.Millisecond
	}

	ticker := time.NewTicker(interval)
	go func() {
		for range ticker.C {
			select {
			case bucket.tokens <- struct{}{}:
			default:
			}
		}
	}()

	return bucket
}

type tokenBucket struct {
	tokens chan struct{}
}

func (b *tokenBucket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.tokens:
		return nil
	}
}

type completionMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	rateLimitWait   metric.Float64Histogram
}

var completionMetricsInit = false
var cmpMetrics completionMetrics

func ensureCompletionMetrics() {
	if completionMetricsInit {
		return
	}
	meter := otel.Meter("github.com/tobenna/symptom-assist/backend/openai")

	requestCount, err := meter.Int64Counter(
		"ai.completion.request.count",
		metric.WithDescription("Number of completion requests"),
	)
	if err != nil {
		return
	}
	requestDuration, err := meter.Float64Histogram(
		"ai.completion.request.duration",
		metric.WithDescription("Completion request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}
	requestErrors, err := meter.Int64Counter(
		"ai.completion.request.errors",
		metric.WithDescription("Number of completion request errors"),
	)
	if err != nil {
		return
	}
	rateLimitWait, err := meter.Float64Histogram(
		"ai.completion.rate_limit.wait",
		metric.WithDescription("Time spent waiting for the completion rate limiter in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}

	cmpMetrics = completionMetrics{
		requestCount:    requestCount,
		requestDuration: requestDuration,
		requestErrors:   requestErrors,
		rateLimitWait:   rateLimitWait,
	}
	completionMetricsInit = true
}

func recordCompletionMetric(ctx context.Context, model string, statusCode int, duration time.Duration, err error) {
	ensureCompletionMetrics()
	if !completionMetricsInit {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "openai"),
		attribute.String("ai.model", model),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	cmpMetrics.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	cmpMetrics.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		cmpMetrics.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func recordRateLimitWait(ctx context.Context, model string, wait time.Duration) {
	ensureCompletionMetrics()
	if !completionMetricsInit {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "openai"),
		attribute.String("ai.model", model),
	}
	cmpMetrics.rateLimitWait.Record(ctx, float64(wait.Milliseconds()), metric.WithAttributes(attrs...))
}
