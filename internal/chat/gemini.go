package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/dshills/quizedit/internal/config"
)

// GeminiProvider talks to the Google Gemini API.
type GeminiProvider struct {
	apiKey  string
	model   string
	timeout time.Duration
	opts    []option.ClientOption
}

// NewGeminiProvider creates a provider for cfg. A client is opened per
// request.
func NewGeminiProvider(cfg config.AI, opts ...option.ClientOption) *GeminiProvider {
	return &GeminiProvider{
		apiKey:  cfg.APIKey,
		model:   modelOr(cfg.Model, config.ProviderGemini),
		timeout: cfg.Timeout.Duration,
		opts:    opts,
	}
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string { return config.ProviderGemini }

// Complete replays the conversation as chat history and sends the last
// user message.
func (p *GeminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	system, conversation := splitSystem(req.Messages)
	if len(conversation) == 0 {
		return "", &Error{Provider: p.Name(), Op: "complete", Err: ErrNoMessages}
	}

	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	opts := append([]option.ClientOption{option.WithAPIKey(p.apiKey)}, p.opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return "", &Error{Provider: p.Name(), Op: "connect", Err: err}
	}
	defer client.Close()

	model := client.GenerativeModel(modelOr(req.Model, p.model))
	model.SetTemperature(float32(req.Temperature))
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	session := model.StartChat()
	last := conversation[len(conversation)-1]
	for _, m := range conversation[:len(conversation)-1] {
		session.History = append(session.History, &genai.Content{
			Role:  geminiRole(m.Role),
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	resp, err := session.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		return "", &Error{Provider: p.Name(), Op: "complete", Err: err}
	}

	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		break
	}
	if b.Len() == 0 {
		return "", &Error{Provider: p.Name(), Op: "complete", Err: ErrEmptyResponse}
	}
	return b.String(), nil
}

func geminiRole(r Role) string {
	if r == RoleAssistant {
		return "model"
	}
	return "user"
}
