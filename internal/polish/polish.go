// Package polish optionally rewrites the weekly email with an LLM.
// Any failure leaves the composed body untouched.
package polish

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"notionhelper/internal/logging"
	"notionhelper/internal/types"
)

// Providers understood by New.
const (
	ProviderDeepSeek = "deepseek"
	ProviderOpenAI   = "openai"
	ProviderGemini   = "gemini"
)

const (
	DeepSeekBaseURL = "https://api.deepseek.com/v1"
	DeepSeekModel   = "deepseek-chat"
	OpenAIModel     = "gpt-4o-mini"
	GeminiModel     = "gemini-2.5-flash"
)

// ErrTooLarge is returned when the prompt exceeds the token budget.
var ErrTooLarge = errors.New("email exceeds polish token budget")

// Polisher rewrites a prompt-wrapped email body.
type Polisher interface {
	Name() string
	Complete(ctx context.Context, system, user string) (string, error)
}

// Options configure a provider.
type Options struct {
	Provider       string
	Model          string
	APIKey         string
	BaseURL        string
	Temperature    float32
	MaxInputTokens int
	Timeout        time.Duration
	// Project names the rewrite may keep, in output order.
	Projects  []string
	Signature string
}

// New returns the Polisher for opts.Provider.
func New(ctx context.Context, opts Options) (Polisher, error) {
	if opts.APIKey == "" {
		return nil, &types.ConfigurationError{Field: "llm.api_key", Err: errors.New("required when polishing is enabled")}
	}
	switch strings.ToLower(opts.Provider) {
	case ProviderDeepSeek, "":
		if opts.BaseURL == "" {
			opts.BaseURL = DeepSeekBaseURL
		}
		if opts.Model == "" {
			opts.Model = DeepSeekModel
		}
		return NewOpenAIPolisher(ProviderDeepSeek, opts), nil
	case ProviderOpenAI:
		if opts.Model == "" {
			opts.Model = OpenAIModel
		}
		return NewOpenAIPolisher(ProviderOpenAI, opts), nil
	case ProviderGemini:
		return NewGeminiPolisher(ctx, opts)
	default:
		return nil, &types.ConfigurationError{Field: "llm.provider", Err: fmt.Errorf("unknown provider %q", opts.Provider)}
	}
}

// Service applies a Polisher under a token budget.
type Service struct {
	Polisher Polisher
	Counter  *TokenCounter
	Options  Options
}

// Polish returns the rewritten body and true, or body and false when the
// budget is exceeded or the provider fails. The reason is logged.
func (s *Service) Polish(ctx context.Context, body string) (string, bool) {
	log := logging.Get(logging.CategoryPolish)
	out, err := s.try(ctx, body)
	if err != nil {
		log.Warn("polish skipped: %v", err)
		return body, false
	}
	log.Info("email polished by %s (%d -> %d chars)", s.Polisher.Name(), len(body), len(out))
	return out, true
}

func (s *Service) try(ctx context.Context, body string) (string, error) {
	if s.Polisher == nil {
		return "", errors.New("no provider configured")
	}
	system := SystemPrompt(s.Options.Projects, s.Options.Signature)
	if s.Options.MaxInputTokens > 0 {
		counter := s.Counter
		if counter == nil {
			counter = DefaultCounter()
		}
		if n := counter.Count(system) + counter.Count(body); n > s.Options.MaxInputTokens {
			return "", fmt.Errorf("%w: %d > %d tokens", ErrTooLarge, n, s.Options.MaxInputTokens)
		}
	}
	if s.Options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Options.Timeout)
		defer cancel()
	}
	out, err := s.Polisher.Complete(ctx, system, body)
	if err != nil {
		return "", types.Connectivity(s.Polisher.Name(), "complete", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("empty completion")
	}
	return out, nil
}
