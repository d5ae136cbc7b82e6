package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/rentguard/backend/internal/metrics"
	"github.com/rentguard/backend/pkg/circuitbreaker"
	"github.com/rentguard/backend/pkg/config"
	"github.com/rentguard/backend/pkg/logger"
	"github.com/rentguard/backend/pkg/retry"
)

var (
	// ErrAnalysisMalformed: the backend answered but its output failed
	// schema validation even after the single repair pass.
	ErrAnalysisMalformed = errors.New("analysis response malformed")
	// ErrAnalysisUnavailable: the backend stayed unreachable through the
	// bounded retry budget.
	ErrAnalysisUnavailable = errors.New("analysis backend unavailable")
)

// Longer contracts are truncated before prompting.
const maxTextLength = 25000

const unsupportedLanguageSummary = "המערכת תומכת רק בחוזים בעברית או באנגלית."

// Analyzer submits sanitized text to the model backend and turns its JSON
// reply into typed issues. Transport failures retry with backoff behind a
// circuit breaker; malformed output gets exactly one repair round-trip.
type Analyzer struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewAnalyzer(cfg config.LLMConfig) *Analyzer {
	cb := circuitbreaker.New("analysis", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.DefaultConfig()
	if cfg.MaxAttempts > 0 {
		retryConfig.MaxAttempts = cfg.MaxAttempts
	}
	retryConfig.Logger = logger.GetLogger()

	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	logger.Info("Risk analyzer initialized", zap.String("model", cfg.Model))

	return &Analyzer{
		client:      openai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     timeout,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

// Analyze runs the full risk analysis over sanitized text. Raw text must
// never reach this boundary.
func (a *Analyzer) Analyze(ctx context.Context, sanitizedText string) (*Result, error) {
	if detectLanguage(sanitizedText) == languageUnsupported {
		logger.Info("Unsupported language, skipping model call")
		return &Result{
			IsContract: false,
			Summary:    unsupportedLanguageSummary,
		}, nil
	}

	if len(sanitizedText) > maxTextLength {
		sanitizedText = sanitizedText[:maxTextLength] + "... [Truncated]"
	}

	output, err := a.complete(ctx, systemPrompt(), userPrompt(sanitizedText))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
	}

	result, parseErr := parseResponse(output)
	if parseErr == nil {
		return result, nil
	}

	logger.Warn("Model output failed validation, requesting repair", zap.Error(parseErr))

	repaired, err := a.complete(ctx, repairSystemPrompt, repairPrompt(output))
	if err != nil {
		return nil, fmt.Errorf("%w: repair call: %v", ErrAnalysisUnavailable, err)
	}

	result, parseErr = parseResponse(repaired)
	if parseErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnalysisMalformed, parseErr)
	}

	return result, nil
}

// ExplainClause returns a short plain-language explanation of one clause.
func (a *Analyzer) ExplainClause(ctx context.Context, clauseText string) (string, error) {
	output, err := a.complete(ctx, explainSystemPrompt, explainPrompt(clauseText))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
	}
	return output, nil
}

func (a *Analyzer) complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
		{Role: openai.ChatMessageRoleUser, Content: user},
	}

	var content string

	err := a.cb.Execute(ctx, func() error {
		return retry.Do(ctx, a.retryConfig, func() error {
			resp, err := a.client.CreateChatCompletion(
				ctx,
				openai.ChatCompletionRequest{
					Model:       a.model,
					Messages:    messages,
					Temperature: a.temperature,
					MaxTokens:   a.maxTokens,
				},
			)
			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}

			metrics.LLMTokensUsed.WithLabelValues(a.model, "prompt").Add(float64(resp.Usage.PromptTokens))
			metrics.LLMTokensUsed.WithLabelValues(a.model, "completion").Add(float64(resp.Usage.CompletionTokens))

			logger.Debug("Model completion generated",
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			content = resp.Choices[0].Message.Content
			return nil
		})
	})
	if err != nil {
		return "", err
	}

	return content, nil
}

type language int

const (
	languageSupported language = iota
	languageUnsupported
	languageUnknown
)

// detectLanguage samples the text and classifies it as Hebrew/English
// (supported) or mostly something else (unsupported). Short or empty
// text stays unknown and goes to the model as-is.
func detectLanguage(text string) language {
	if len(text) < 100 {
		return languageUnknown
	}

	sample := []rune(text)
	if len(sample) > 2000 {
		sample = sample[:2000]
	}

	hebrew, latin, other := 0, 0, 0
	for _, r := range sample {
		switch {
		case r >= 0x0590 && r <= 0x05FF:
			hebrew++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latin++
		case r > 127:
			other++
		}
	}

	total := hebrew + latin + other
	if total == 0 {
		return languageUnknown
	}

	if float64(other)/float64(total) > 0.3 {
		return languageUnsupported
	}

	return languageSupported
}
