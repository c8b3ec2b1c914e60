// Package extract wraps the external text-understanding capability that
// turns raw posts into candidate opinions. It is a thin boundary: output
// is untrusted and must pass the type validator before it can become a
// stored opinion.
package extract

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ppiankov/trackrecord/internal/model"
	"github.com/ppiankov/trackrecord/internal/worker"
)

// limiterKey buckets all extraction calls under one rate budget.
const limiterKey = "extract"

// Adapter defines the extraction contract: raw text in, zero or more
// candidate opinions out. Fails with ErrExtractionUnavailable on
// upstream timeouts/rate limits (retryable) and ErrExtractionMalformed
// when the response cannot be parsed (permanent).
type Adapter interface {
	Extract(ctx context.Context, post model.RawPost) (*Result, error)
}

// Result is one extraction run over a post. RawResponse is preserved for
// audit logging even when parsing fails.
type Result struct {
	Relevant    bool
	SkipReason  string
	Candidates  []model.CandidateOpinion
	RawResponse string
	Model       string
	TokensUsed  int
}

// ChatClient is the slice of the OpenAI client the adapter needs.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIAdapter implements Adapter against an OpenAI-compatible chat
// completion endpoint.
type OpenAIAdapter struct {
	client  ChatClient
	limiter *worker.Limiter
	config  model.ExtractConfig

	// sleep is injectable for tests
	sleep func(time.Duration)
}

// NewOpenAIAdapter creates an adapter from configuration.
func NewOpenAIAdapter(cfg model.ExtractConfig) (*OpenAIAdapter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("extraction API key is required")
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return NewOpenAIAdapterWithClient(openai.NewClientWithConfig(clientConfig), cfg), nil
}

// NewOpenAIAdapterWithClient creates an adapter around an existing
// client. Used by tests to inject fakes.
func NewOpenAIAdapterWithClient(client ChatClient, cfg model.ExtractConfig) *OpenAIAdapter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	return &OpenAIAdapter{
		client:  client,
		limiter: worker.NewLimiter(cfg.RatePerSec, cfg.Burst),
		config:  cfg,
		sleep:   time.Sleep,
	}
}

// Extract runs one extraction over the post content with bounded retries
// and exponential backoff on transient upstream failures.
func (a *OpenAIAdapter) Extract(ctx context.Context, post model.RawPost) (*Result, error) {
	var lastErr error
	for attempt := 0; attempt < a.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			a.sleep(backoff(attempt))
		}
		if err := a.limiter.Wait(ctx, limiterKey); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}

		raw, tokens, err := a.complete(ctx, post)
		if err != nil {
			lastErr = err
			continue
		}

		result, err := Parse(raw)
		if err != nil {
			// Malformed output is permanent: the raw payload is returned
			// for audit logging, not retried.
			return &Result{RawResponse: raw, Model: a.config.Model}, err
		}
		result.RawResponse = raw
		result.Model = a.config.Model
		result.TokensUsed = tokens
		return result, nil
	}
	return nil, fmt.Errorf("after %d attempts: %v: %w", a.config.MaxAttempts, lastErr, model.ErrExtractionUnavailable)
}

func (a *OpenAIAdapter) complete(ctx context.Context, post model.RawPost) (string, int, error) {
	timeout := a.config.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	maxTokens := a.config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4000
	}
	chatModel := a.config.Model
	if chatModel == "" {
		chatModel = openai.GPT4oMini
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(post)},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", 0, err
	}
	if len(resp.Choices) == 0 {
		return "", 0, fmt.Errorf("empty completion response")
	}
	return resp.Choices[0].Message.Content, resp.Usage.TotalTokens, nil
}

func backoff(attempt int) time.Duration {
	d := time.Duration(1<<uint(attempt-1)) * time.Second
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}
