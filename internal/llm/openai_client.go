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
	// OpenAIEndpoint is the default OpenAI API base URL
	OpenAIEndpoint = "https://api.openai.com"

	// OpenAIDefaultModel is used when no model is configured
	OpenAIDefaultModel = "gpt-4.1"
)

// OpenAIAdapter calls the Chat Completions API directly so the raw stream can be observed
type OpenAIAdapter struct {
	apiKey string
	opts   options
}

// NewOpenAI creates an OpenAI adapter
func NewOpenAI(_ context.Context, cfg types.ProviderConfig, opts ...Option) (Adapter, error) {
	return &OpenAIAdapter{
		apiKey: strings.TrimSpace(cfg.APIKey),
		opts:   buildOptions(OpenAIEndpoint, opts),
	}, nil
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIContent struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIMessage struct {
	Role    string          `json:"role"`
	Content []openAIContent `json:"content"`
}

type openAIRequest struct {
	Model               string          `json:"model"`
	MaxCompletionTokens int             `json:"max_completion_tokens"`
	Messages            []openAIMessage `json:"messages"`
	Stream              bool            `json:"stream,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Run sends the task to POST /v1/chat/completions
func (o *OpenAIAdapter) Run(ctx context.Context, task *Task, obs *types.Observer) (string, error) {
	images, err := encodeImages(ctx, task.Images)
	if err != nil {
		return "", err
	}

	content := make([]openAIContent, 0, len(images)+1)
	content = append(content, openAIContent{Type: "text", Text: task.Prompt})
	for _, img := range images {
		content = append(content, openAIContent{Type: "image_url", ImageURL: &openAIImageURL{URL: img.dataURL()}})
	}

	body := openAIRequest{
		Model:               task.modelOr(OpenAIDefaultModel),
		MaxCompletionTokens: task.MaxTokens,
		Messages:            []openAIMessage{{Role: "user", Content: content}},
		Stream:              obs.Streaming(),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	if obs.Debugging() {
		ev := task.event(types.DebugRequest, types.ProviderOpenAI)
		ev.Payload = redactRequest(payload, "messages.0.content", map[string]bool{"image_url": true}, images, task.RedactedPrompt)
		obs.Emit(ev)
	}

	log := o.opts.logger.WithProvider(string(types.ProviderOpenAI)).WithCallID(task.CallID)
	log.WithFields("model", body.Model, "images", len(images), "bytes", len(payload), "stream", body.Stream).Debug("Sending request")

	resp, err := postJSON(ctx, o.opts, types.ProviderOpenAI, o.opts.endpoint+"/v1/chat/completions", map[string]string{
		"Authorization": "Bearer " + o.apiKey,
	}, payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if body.Stream {
		return readStream(ctx, types.ProviderOpenAI, task, resp.Body, sse.OpenAI, obs)
	}

	var out openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", transportError(ctx, types.ProviderOpenAI, fmt.Errorf("failed to decode response: %w", err))
	}

	var parts []string
	for _, c := range out.Choices {
		if c.Message.Content != nil {
			parts = append(parts, *c.Message.Content)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}

// Name returns the provider name
func (o *OpenAIAdapter) Name() types.ProviderType {
	return types.ProviderOpenAI
}
