package chat

import (
	"context"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dshills/quizedit/internal/config"
)

// defaultMaxTokens bounds replies for APIs that require a limit.
const defaultMaxTokens = 4096

// jsonInstruction is appended to the system prompt in JSON mode, since the
// Messages API has no response format switch.
const jsonInstruction = "Antworte ausschließlich mit einem einzigen JSON-Objekt."

// AnthropicProvider talks to the Anthropic Messages API.
type AnthropicProvider struct {
	model   string
	timeout time.Duration
	client  anthropic.Client
}

// NewAnthropicProvider creates a provider for cfg.
func NewAnthropicProvider(cfg config.AI, opts ...option.RequestOption) *AnthropicProvider {
	clientOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.BaseURL))
	}
	clientOpts = append(clientOpts, opts...)

	return &AnthropicProvider{
		model:   modelOr(cfg.Model, config.ProviderAnthropic),
		timeout: cfg.Timeout.Duration,
		client:  anthropic.NewClient(clientOpts...),
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string { return config.ProviderAnthropic }

// Complete sends a messages request. System messages become the system
// prompt.
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (string, error) {
	system, conversation := splitSystem(req.Messages)
	if len(conversation) == 0 {
		return "", &Error{Provider: p.Name(), Op: "complete", Err: ErrNoMessages}
	}
	if req.JSON {
		system = strings.TrimSpace(system + "\n\n" + jsonInstruction)
	}

	msgs := make([]anthropic.MessageParam, 0, len(conversation))
	for _, m := range conversation {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == RoleAssistant {
			msgs = append(msgs, anthropic.NewAssistantMessage(block))
		} else {
			msgs = append(msgs, anthropic.NewUserMessage(block))
		}
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(modelOr(req.Model, p.model)),
		MaxTokens:   maxTokens,
		Messages:    msgs,
		Temperature: anthropic.Float(req.Temperature),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", &Error{Provider: p.Name(), Op: "complete", Err: err}
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", &Error{Provider: p.Name(), Op: "complete", Err: ErrEmptyResponse}
	}
	return b.String(), nil
}
