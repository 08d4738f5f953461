package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/generative-ai-go/genai"
	"github.com/openai/openai-go"
	openaioption "github.com/openai/openai-go/option"
	"google.golang.org/api/option"

	"github.com/platinummonkey/garagescan/internal/types"
)

// HealthCheck makes the cheapest authenticated call the provider offers,
// verifying the key and that the model is reachable.
func HealthCheck(ctx context.Context, cfg types.ProviderConfig, endpoint string) error {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return fmt.Errorf("%s API key is required", cfg.Provider)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel(cfg.Provider)
	}
	endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")

	switch cfg.Provider {
	case types.ProviderAnthropic:
		opts := []anthropicoption.RequestOption{
			anthropicoption.WithAPIKey(key),
			anthropicoption.WithMaxRetries(0),
		}
		if endpoint != "" {
			opts = append(opts, anthropicoption.WithBaseURL(endpoint+"/"))
		}
		client := anthropic.NewClient(opts...)
		_, err := client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(model),
			MaxTokens: 10,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
			},
		})
		if err != nil {
			return fmt.Errorf("anthropic health check failed: %w", err)
		}
		return nil

	case types.ProviderOpenAI:
		opts := []openaioption.RequestOption{
			openaioption.WithAPIKey(key),
			openaioption.WithMaxRetries(0),
		}
		if endpoint != "" {
			opts = append(opts, openaioption.WithBaseURL(endpoint+"/v1/"))
		}
		client := openai.NewClient(opts...)
		if _, err := client.Models.Get(ctx, model); err != nil {
			return fmt.Errorf("openai health check failed: %w", err)
		}
		return nil

	case types.ProviderGoogle:
		opts := []option.ClientOption{option.WithAPIKey(key)}
		if endpoint != "" {
			opts = append(opts, option.WithEndpoint(endpoint))
		}
		client, err := genai.NewClient(ctx, opts...)
		if err != nil {
			return fmt.Errorf("failed to create Gemini client: %w", err)
		}
		defer client.Close()
		if _, err := client.GenerativeModel(model).GenerateContent(ctx, genai.Text("ping")); err != nil {
			return fmt.Errorf("gemini health check failed: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
