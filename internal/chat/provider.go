// Package chat talks to large language model providers.
//
// All providers implement the same small Provider interface: a list of
// role-tagged messages in, the assistant's text out. Requests are sent once;
// retries are disabled on every SDK client.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/quizedit/internal/config"
)

// Role names the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a chat completion request.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	// JSON asks the provider for a single JSON object as the reply.
	JSON      bool
	MaxTokens int
}

// Provider completes chat requests.
type Provider interface {
	// Name returns the provider name, as used in configuration.
	Name() string
	// Complete sends req and returns the assistant's reply text.
	Complete(ctx context.Context, req Request) (string, error)
}

var (
	// ErrMissingAPIKey indicates no API key is configured for the provider.
	ErrMissingAPIKey = errors.New("missing API key")
	// ErrUnknownProvider indicates an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrEmptyResponse indicates the provider returned no content.
	ErrEmptyResponse = errors.New("empty response")
	// ErrNoMessages indicates a request without messages.
	ErrNoMessages = errors.New("no messages")
)

// Error wraps a failure of a provider operation.
type Error struct {
	Provider string
	Op       string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ChatTemperature is the sampling temperature of free-form edit chats.
const ChatTemperature = 0.3

// New returns the provider selected by cfg.
func New(cfg config.AI) (Provider, error) {
	name := strings.ToLower(cfg.Provider)
	if _, ok := defaultModels[name]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if cfg.APIKey == "" {
		return nil, &Error{Provider: name, Op: "configure", Err: ErrMissingAPIKey}
	}

	switch name {
	case config.ProviderAnthropic:
		return NewAnthropicProvider(cfg), nil
	case config.ProviderGemini:
		return NewGeminiProvider(cfg), nil
	default:
		return NewOpenAIProvider(cfg), nil
	}
}

// defaultModels maps provider names to the model used when none is set.
var defaultModels = map[string]string{
	config.ProviderOpenRouter: "google/gemini-2.5-flash",
	config.ProviderOpenAI:     "gpt-4o-mini",
	config.ProviderAnthropic:  "claude-3-5-haiku-latest",
	config.ProviderGemini:     "gemini-1.5-flash",
}

func modelOr(model, provider string) string {
	if model != "" {
		return model
	}
	return defaultModels[provider]
}

// Chat sends a free-form conversation with the chat temperature and
// returns the reply.
func Chat(ctx context.Context, p Provider, model string, history []Message) (string, error) {
	return p.Complete(ctx, Request{
		Model:       model,
		Messages:    history,
		Temperature: ChatTemperature,
	})
}

// splitSystem separates system messages from the conversation. Multiple
// system messages are joined with blank lines.
func splitSystem(msgs []Message) (system string, rest []Message) {
	var parts []string
	for _, m := range msgs {
		if m.Role == RoleSystem {
			parts = append(parts, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(parts, "\n\n"), rest
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
