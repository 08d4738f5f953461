package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/platinummonkey/garagescan/internal/sse"
	"github.com/platinummonkey/garagescan/internal/types"
)

const (
	// AnthropicEndpoint is the default Anthropic API base URL
	AnthropicEndpoint = "https://api.anthropic.com"

	// AnthropicVersion is sent as the anthropic-version header
	AnthropicVersion = "2023-06-01"

	// AnthropicDefaultModel is used when no model is configured
	AnthropicDefaultModel = "claude-sonnet-4-5"
)

// AnthropicAdapter calls the Messages API directly so the raw stream can be observed
type AnthropicAdapter struct {
	apiKey string
	opts   options
}

// NewAnthropic creates an Anthropic adapter
func NewAnthropic(_ context.Context, cfg types.ProviderConfig, opts ...Option) (Adapter, error) {
	return &AnthropicAdapter{
		apiKey: strings.TrimSpace(cfg.APIKey),
		opts:   buildOptions(AnthropicEndpoint, opts),
	}, nil
}

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicContent struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
	Stream    bool               `json:"stream,omitempty"`
	Thinking  *anthropicThinking `json:"thinking,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Run sends the task to POST /v1/messages
func (a *AnthropicAdapter) Run(ctx context.Context, task *Task, obs *types.Observer) (string, error) {
	images, err := encodeImages(ctx, task.Images)
	if err != nil {
		return "", err
	}

	content := make([]anthropicContent, 0, len(images)+1)
	for _, img := range images {
		content = append(content, anthropicContent{
			Type:   "image",
			Source: &anthropicSource{Type: "base64", MediaType: img.MediaType, Data: img.Base64},
		})
	}
	content = append(content, anthropicContent{Type: "text", Text: task.Prompt})

	body := anthropicRequest{
		Model:     task.modelOr(AnthropicDefaultModel),
		MaxTokens: task.MaxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: content}},
	}
	stream := obs.Streaming()
	if stream {
		body.Stream = true
		if task.ThinkingBudget > 0 && task.ThinkingBudget < task.MaxTokens {
			body.Thinking = &anthropicThinking{Type: "enabled", BudgetTokens: task.ThinkingBudget}
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	if obs.Debugging() {
		ev := task.event(types.DebugRequest, types.ProviderAnthropic)
		ev.Payload = redactRequest(payload, "messages.0.content", map[string]bool{"image": true}, images, task.RedactedPrompt)
		obs.Emit(ev)
	}

	log := a.opts.logger.WithProvider(string(types.ProviderAnthropic)).WithCallID(task.CallID)
	log.WithFields("model", body.Model, "images", len(images), "bytes", len(payload), "stream", stream).Debug("Sending request")

	resp, err := postJSON(ctx, a.opts, types.ProviderAnthropic, a.opts.endpoint+"/v1/messages", map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": AnthropicVersion,
		// required by proxies that forward browser-originated calls
		"anthropic-dangerous-direct-browser-access": "true",
	}, payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if stream {
		return readStream(ctx, types.ProviderAnthropic, task, resp.Body, sse.Anthropic, obs)
	}

	var out anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", transportError(ctx, types.ProviderAnthropic, fmt.Errorf("failed to decode response: %w", err))
	}

	var parts []string
	for _, block := range out.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}

// Name returns the provider name
func (a *AnthropicAdapter) Name() types.ProviderType {
	return types.ProviderAnthropic
}
