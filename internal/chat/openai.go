package chat

import (
	"context"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/dshills/quizedit/internal/config"
)

// OpenRouterBaseURL is the OpenAI-compatible endpoint of OpenRouter.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// appTitle is sent as X-Title so OpenRouter can attribute requests.
const appTitle = "quizedit"

// OpenAIProvider talks to OpenAI-compatible chat completion APIs,
// OpenRouter by default.
type OpenAIProvider struct {
	name    string
	model   string
	timeout time.Duration
	client  openai.Client
}

// NewOpenAIProvider creates a provider for cfg. The base URL defaults to
// OpenRouter for the "openrouter" provider and to the OpenAI API otherwise.
func NewOpenAIProvider(cfg config.AI, opts ...option.RequestOption) *OpenAIProvider {
	name := strings.ToLower(cfg.Provider)
	if name == "" {
		name = config.ProviderOpenRouter
	}

	baseURL := cfg.BaseURL
	if baseURL == "" && name == config.ProviderOpenRouter {
		baseURL = OpenRouterBaseURL
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHeader("X-Title", appTitle),
	}
	if baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}
	clientOpts = append(clientOpts, opts...)

	return &OpenAIProvider{
		name:    name,
		model:   modelOr(cfg.Model, name),
		timeout: cfg.Timeout.Duration,
		client:  openai.NewClient(clientOpts...),
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string { return p.name }

// Complete sends a chat completion request.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	if len(req.Messages) == 0 {
		return "", &Error{Provider: p.name, Op: "complete", Err: ErrNoMessages}
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(modelOr(req.Model, p.model)),
		Messages:    msgs,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", &Error{Provider: p.name, Op: "complete", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Provider: p.name, Op: "complete", Err: ErrEmptyResponse}
	}
	return resp.Choices[0].Message.Content, nil
}
