// Package llm talks to vision-capable model providers and turns their answers into validated results.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/platinummonkey/garagescan/internal/logger"
	"github.com/platinummonkey/garagescan/internal/types"
)

// Adapter runs one task against one provider and returns the joined answer text.
// When obs asks for streaming the adapter streams, forwarding raw lines and thinking headlines.
type Adapter interface {
	Run(ctx context.Context, task *Task, obs *types.Observer) (string, error)

	// Name returns the provider this adapter talks to
	Name() types.ProviderType
}

// Factory creates an adapter for a provider entry
type Factory func(ctx context.Context, cfg types.ProviderConfig, opts ...Option) (Adapter, error)

// Registry selects the adapter factory by provider type
type Registry map[types.ProviderType]Factory

// DefaultRegistry knows every supported provider
func DefaultRegistry() Registry {
	return Registry{
		types.ProviderAnthropic: NewAnthropic,
		types.ProviderOpenAI:    NewOpenAI,
		types.ProviderGoogle:    NewGoogle,
	}
}

// Adapter creates the adapter for cfg
func (r Registry) Adapter(ctx context.Context, cfg types.ProviderConfig, opts ...Option) (Adapter, error) {
	factory, ok := r[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%s API key is required", cfg.Provider)
	}
	return factory(ctx, cfg, opts...)
}

// DefaultModel returns the model used when neither the provider entry nor the request names one
func DefaultModel(provider types.ProviderType) string {
	switch provider {
	case types.ProviderAnthropic:
		return AnthropicDefaultModel
	case types.ProviderOpenAI:
		return OpenAIDefaultModel
	case types.ProviderGoogle:
		return GoogleDefaultModel
	default:
		return ""
	}
}

// Option configures an adapter
type Option func(*options)

type options struct {
	endpoint   string
	httpClient *http.Client
	logger     *logger.Logger
}

// WithEndpoint overrides the provider base URL (scheme and host, no path)
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/")
	}
}

// WithHTTPClient sets the HTTP client used by hand-rolled adapters
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithLogger sets the logger
func WithLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.logger = log
	}
}

func buildOptions(defaultEndpoint string, opts []Option) options {
	o := options{
		endpoint: defaultEndpoint,
		// no client timeout: the caller's context is the only deadline
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.endpoint == "" {
		o.endpoint = defaultEndpoint
	}
	if o.logger == nil {
		o.logger = logger.Get()
	}
	return o
}
