package summarize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const systemPrompt = "You are an expert meeting assistant. You turn raw " +
	"diarized call transcripts into concise, factual markdown summaries. " +
	"Never invent content that is not in the transcript."

const userPromptTemplate = `Analyze the following meeting transcript and produce a condensed summary in Markdown with these sections:

## Key Topics
- (main topics discussed)

## Decisions
- (decisions that were agreed)

## Action Items
- [ ] (tasks, with the speaker they were assigned to when stated)

If a section has no content, write "None".

Transcript:
%s`

// OpenAI implements Summarizer via chat completions.
type OpenAI struct {
	client   oai.Client
	model    string
	attempts int
}

type OpenAIOption func(*openaiConfig)

type openaiConfig struct {
	baseURL  string
	timeout  time.Duration
	attempts int
}

// WithBaseURL overrides the API base URL. Used by tests.
func WithBaseURL(u string) OpenAIOption {
	return func(c *openaiConfig) { c.baseURL = u }
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) OpenAIOption {
	return func(c *openaiConfig) { c.timeout = d }
}

// WithAttempts bounds the retry loop.
func WithAttempts(n int) OpenAIOption {
	return func(c *openaiConfig) { c.attempts = n }
}

func NewOpenAI(apiKey, model string, opts ...OpenAIOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}

	cfg := &openaiConfig{attempts: 3}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// The SDK retries internally too; the explicit loop below owns
		// retry behavior so attempts stay bounded and observable.
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &OpenAI{
		client:   oai.NewClient(reqOpts...),
		model:    model,
		attempts: cfg.attempts,
	}, nil
}

func (o *OpenAI) Name() string { return "openai" }

// Summarize sends the transcript for condensation, retrying transient
// failures with exponential backoff.
func (o *OpenAI) Summarize(ctx context.Context, transcript string) (string, error) {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt),
			oai.UserMessage(fmt.Sprintf(userPromptTemplate, transcript)),
		},
	}

	delay := time.Second
	var lastErr error
	for attempt := 1; attempt <= o.attempts; attempt++ {
		resp, err := o.client.Chat.Completions.New(ctx, params)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", fmt.Errorf("openai: empty choices in response")
			}
			text := strings.TrimSpace(resp.Choices[0].Message.Content)
			if text == "" {
				return "", fmt.Errorf("openai: empty summary content")
			}
			return text, nil
		}
		lastErr = err

		if !retryable(err) || attempt == o.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return "", fmt.Errorf("openai: chat completion: %w", lastErr)
}

func retryable(err error) bool {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	// Network-level failures (no typed API error) are worth one more try.
	return true
}
