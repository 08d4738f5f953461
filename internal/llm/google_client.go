package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/tidwall/sjson"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/platinummonkey/garagescan/internal/sse"
	"github.com/platinummonkey/garagescan/internal/types"
)

// GoogleDefaultModel is used when no model is configured
const GoogleDefaultModel = "gemini-2.5-flash"

// GoogleAdapter implements Adapter with the Gemini SDK
type GoogleAdapter struct {
	client *genai.Client
	opts   options
}

// NewGoogle creates a Gemini adapter
func NewGoogle(ctx context.Context, cfg types.ProviderConfig, opts ...Option) (Adapter, error) {
	o := buildOptions("", opts)

	clientOpts := []option.ClientOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
	}
	if o.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(o.endpoint))
	}

	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GoogleAdapter{client: client, opts: o}, nil
}

// Run sends the task with GenerateContent, or GenerateContentStream when obs asks for streaming
func (g *GoogleAdapter) Run(ctx context.Context, task *Task, obs *types.Observer) (string, error) {
	parts := []genai.Part{genai.Text(task.Prompt)}
	for i, img := range task.Images {
		if img.Size() == 0 {
			return "", fmt.Errorf("encode images: image %d is empty", i+1)
		}
		parts = append(parts, genai.Blob{MIMEType: img.MIME(), Data: img.Data})
	}

	modelName := task.modelOr(GoogleDefaultModel)
	model := g.client.GenerativeModel(modelName)
	model.SetMaxOutputTokens(int32(task.MaxTokens))
	model.ResponseMIMEType = "application/json"

	if obs.Debugging() {
		ev := task.event(types.DebugRequest, types.ProviderGoogle)
		ev.Payload = googleRequestMirror(modelName, task)
		obs.Emit(ev)
	}

	log := g.opts.logger.WithProvider(string(types.ProviderGoogle)).WithCallID(task.CallID)
	log.WithFields("model", modelName, "images", len(task.Images), "stream", obs.Streaming()).Debug("Sending request")

	dec := sse.NewDecoder(nil, sse.WithProgressHandler(obs.Progress))

	if !obs.Streaming() {
		resp, err := model.GenerateContent(ctx, parts...)
		if err != nil {
			return "", googleError(ctx, err)
		}
		var texts []string
		for _, ev := range googleEvents(resp) {
			if d, ok := ev.(sse.BlockDelta); ok {
				texts = append(texts, d.Text)
			}
		}
		return strings.TrimSpace(strings.Join(texts, "\n")), nil
	}

	it := model.GenerateContentStream(ctx, parts...)
	for {
		resp, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return "", googleError(ctx, err)
		}
		if obs.Debugging() {
			if line, err := json.Marshal(resp); err == nil {
				ev := task.event(types.DebugChunk, types.ProviderGoogle)
				ev.Line = string(line)
				obs.Emit(ev)
			}
		}
		for _, ev := range googleEvents(resp) {
			dec.Apply(ev)
		}
	}
	return dec.Finish(), nil
}

// Name returns the provider name
func (g *GoogleAdapter) Name() types.ProviderType {
	return types.ProviderGoogle
}

// Close closes the Google client
func (g *GoogleAdapter) Close() error {
	return g.client.Close()
}

// googleEvents maps the text parts of a response onto decoder events
func googleEvents(resp *genai.GenerateContentResponse) []sse.Event {
	if resp == nil {
		return nil
	}
	var events []sse.Event
	for i, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok && t != "" {
				events = append(events, sse.BlockDelta{Index: i, Kind: sse.KindText, Text: string(t)})
			}
		}
	}
	return events
}

// googleRequestMirror describes the SDK request in the shape of the REST body
func googleRequestMirror(model string, task *Task) json.RawMessage {
	out := []byte(`{}`)
	set := func(path string, v any) {
		if next, err := sjson.SetBytes(out, path, v); err == nil {
			out = next
		}
	}

	set("model", model)
	set("generationConfig.maxOutputTokens", task.MaxTokens)
	set("generationConfig.responseMimeType", "application/json")
	set("contents.0.role", "user")
	set("contents.0.parts.0.text", task.RedactedPrompt)
	for i, img := range task.Images {
		set(fmt.Sprintf("contents.0.parts.%d.inlineData", i+1), imageSummary{MediaType: img.MIME(), ByteSize: img.Size()})
	}
	return json.RawMessage(out)
}

func googleError(ctx context.Context, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &HTTPError{Provider: types.ProviderGoogle, StatusCode: apiErr.Code, Body: strings.TrimSpace(apiErr.Message)}
	}
	return transportError(ctx, types.ProviderGoogle, err)
}
