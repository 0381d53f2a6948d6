// Package llm provides text generation for crew workers and orchestration
// strategies via langchaingo, with provider selection by model name and a
// shared rate limit across all calls.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client generates text from a system prompt and a user prompt.
type Client interface {
	// Generate produces a completion. Implementations must honor ctx
	// cancellation and return a typed error rather than panicking.
	Generate(ctx context.Context, req Request) (string, error)
}

// Request describes a single generation call.
type Request struct {
	// Model selects the underlying model (determines provider).
	Model string

	// System is the system prompt. May be empty.
	System string

	// Prompt is the user message.
	Prompt string

	// Temperature overrides the default sampling temperature when > 0.
	Temperature float64

	// MaxTokens caps the response length when > 0.
	MaxTokens int
}

// ErrEmptyResponse indicates the provider returned no choices.
var ErrEmptyResponse = errors.New("llm: empty response")

// Config configures the multi-provider client.
type Config struct {
	// OpenAIKey, AnthropicKey, GoogleAIKey are provider credentials. A
	// provider without a key fails at call time, not construction time.
	OpenAIKey    string
	AnthropicKey string
	GoogleAIKey  string

	// RequestsPerSecond bounds the call rate across all models (default 2).
	RequestsPerSecond float64

	// Burst is the limiter burst size (default 1).
	Burst int
}

// MultiClient routes requests to a provider based on the model name and
// enforces a shared rate limit. Provider handles are created lazily and
// cached per model.
type MultiClient struct {
	cfg     Config
	logger  *zap.Logger
	limiter *rate.Limiter
	models  map[string]llms.Model
}

// NewMultiClient creates a client routing to OpenAI, Anthropic, or Google AI
// by model-name prefix.
func NewMultiClient(cfg Config, logger *zap.Logger) *MultiClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &MultiClient{
		cfg:     cfg,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		models:  make(map[string]llms.Model),
	}
}

// Generate implements Client.
func (c *MultiClient) Generate(ctx context.Context, req Request) (string, error) {
	if req.Prompt == "" {
		return "", errors.New("llm: prompt cannot be empty")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llm: rate limit wait: %w", err)
	}

	model, err := c.modelFor(ctx, req.Model)
	if err != nil {
		return "", err
	}

	msgs := make([]llms.MessageContent, 0, 2)
	if req.System != "" {
		msgs = append(msgs, llms.TextParts(schema.ChatMessageTypeSystem, req.System))
	}
	msgs = append(msgs, llms.TextParts(schema.ChatMessageTypeHuman, req.Prompt))

	var opts []llms.CallOption
	if req.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(req.Temperature))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}

	resp, err := model.GenerateContent(ctx, msgs, opts...)
	if err != nil {
		return "", fmt.Errorf("llm: generate with %s: %w", req.Model, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("llm generation complete",
		zap.String("model", req.Model),
		zap.Int("response_chars", len(resp.Choices[0].Content)))

	return resp.Choices[0].Content, nil
}

// modelFor returns a cached provider handle for the model name.
func (c *MultiClient) modelFor(ctx context.Context, name string) (llms.Model, error) {
	if name == "" {
		return nil, errors.New("llm: model name cannot be empty")
	}
	if m, ok := c.models[name]; ok {
		return m, nil
	}

	var (
		m   llms.Model
		err error
	)
	switch ProviderFor(name) {
	case ProviderAnthropic:
		m, err = anthropic.New(anthropic.WithModel(name), anthropic.WithToken(c.cfg.AnthropicKey))
	case ProviderGoogle:
		m, err = googleai.New(ctx, googleai.WithDefaultModel(name), googleai.WithAPIKey(c.cfg.GoogleAIKey))
	case ProviderOpenAI:
		m, err = openai.New(openai.WithModel(name), openai.WithToken(c.cfg.OpenAIKey))
	default:
		return nil, fmt.Errorf("llm: no provider for model %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("llm: init provider for %s: %w", name, err)
	}

	c.models[name] = m
	return m, nil
}

// Provider identifies an upstream model vendor.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGoogle    Provider = "google"
	ProviderUnknown   Provider = ""
)

// ProviderFor maps a model name to its provider by prefix convention.
func ProviderFor(model string) Provider {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "claude"):
		return ProviderAnthropic
	case strings.Contains(lower, "gemini"):
		return ProviderGoogle
	case strings.Contains(lower, "gpt") || strings.HasPrefix(lower, "o1") || strings.HasPrefix(lower, "o3"):
		return ProviderOpenAI
	default:
		return ProviderUnknown
	}
}
