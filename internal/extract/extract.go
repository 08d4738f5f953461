// Package extract runs an extraction against an ordered list of providers, falling back on failure.
package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/garagescan/internal/llm"
	"github.com/platinummonkey/garagescan/internal/logger"
	"github.com/platinummonkey/garagescan/internal/schema"
	"github.com/platinummonkey/garagescan/internal/types"
)

// Extractor coordinates provider fallback for the fuel and service tasks
type Extractor struct {
	registry   llm.Registry
	logger     *logger.Logger
	endpoints  map[types.ProviderType]string
	httpClient *http.Client
}

// Config holds the dependencies of an Extractor; every field is optional
type Config struct {
	// Registry maps provider types to adapters (default: llm.DefaultRegistry())
	Registry llm.Registry

	Logger *logger.Logger

	// Endpoints overrides provider base URLs
	Endpoints map[types.ProviderType]string

	// HTTPClient is used by the hand-rolled adapters
	HTTPClient *http.Client
}

// New creates an Extractor
func New(cfg *Config) *Extractor {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = llm.DefaultRegistry()
	}

	return &Extractor{
		registry:   registry,
		logger:     log,
		endpoints:  cfg.Endpoints,
		httpClient: cfg.HTTPClient,
	}
}

// ExtractFuelPhotos reads odometer, fuel quantity and total cost from a pump photo and an odometer photo
func (e *Extractor) ExtractFuelPhotos(ctx context.Context, providers []types.ProviderConfig, req types.FuelRequest, obs *types.Observer) (*types.FuelExtraction, error) {
	result, _, err := e.ExtractFuelPhotosWithReport(ctx, providers, req, obs)
	return result, err
}

// ExtractFuelPhotosWithReport is ExtractFuelPhotos that also returns the per-provider report of this call.
// The report is nil only when no provider was configured.
func (e *Extractor) ExtractFuelPhotosWithReport(ctx context.Context, providers []types.ProviderConfig, req types.FuelRequest, obs *types.Observer) (*types.FuelExtraction, *Attempts, error) {
	v, report, err := e.run(ctx, providers, llm.FuelTask(req), obs, acceptFuel)
	if err != nil {
		return nil, report, err
	}
	return v.(*types.FuelExtraction), report, nil
}

// ExtractServiceDocument reads service/repair/upgrade records from document images and text
func (e *Extractor) ExtractServiceDocument(ctx context.Context, providers []types.ProviderConfig, req types.ServiceRequest, obs *types.Observer) (*types.ServiceExtraction, error) {
	result, _, err := e.ExtractServiceDocumentWithReport(ctx, providers, req, obs)
	return result, err
}

// ExtractServiceDocumentWithReport is ExtractServiceDocument that also returns the per-provider report of this call
func (e *Extractor) ExtractServiceDocumentWithReport(ctx context.Context, providers []types.ProviderConfig, req types.ServiceRequest, obs *types.Observer) (*types.ServiceExtraction, *Attempts, error) {
	v, report, err := e.run(ctx, providers, llm.ServiceTask(req), obs, acceptService)
	if err != nil {
		return nil, report, err
	}
	return v.(*types.ServiceExtraction), report, nil
}

func (e *Extractor) run(ctx context.Context, providers []types.ProviderConfig, task *llm.Task, obs *types.Observer, accept func(any) (any, error)) (any, *Attempts, error) {
	providers = activeProviders(providers)
	if len(providers) == 0 {
		return nil, nil, ErrNoProvider
	}

	task.CallID = uuid.NewString()
	report := NewAttempts(task.Kind, task.CallID)
	started := time.Now()
	defer func() { report.Duration = time.Since(started) }()

	log := e.logger.WithTask(string(task.Kind)).WithCallID(task.CallID)
	var lastErr error

	for i, pc := range providers {
		if err := ctx.Err(); err != nil {
			return nil, report, fmt.Errorf("extraction stopped before %s: %w", pc.Provider, err)
		}

		attemptTask := task.WithModel(pc.Model)
		model := attemptTask.Model
		if model == "" {
			model = llm.DefaultModel(pc.Provider)
		}
		plog := log.WithProvider(string(pc.Provider)).WithFields("model", model, "attempt", i+1, "of", len(providers))
		plog.Debug("Trying provider")

		attemptStart := time.Now()
		result, err := e.attempt(ctx, pc, attemptTask, obs, accept)
		elapsed := time.Since(attemptStart)

		if err == nil {
			report.AddSuccess(pc.Provider, model, elapsed)
			plog.WithFields("duration", elapsed.Round(time.Millisecond)).Info("Extraction succeeded")
			if report.HasFailures() {
				log.Info(report.Summary())
			}
			return result, report, nil
		}

		report.AddError(pc.Provider, model, elapsed, err)
		lastErr = err

		ev := types.DebugEvent{Kind: types.DebugError, Provider: pc.Provider, CallID: task.CallID, Message: err.Error()}
		obs.Emit(ev)
		plog.WithError(err).Warn("Provider failed")

		if ctx.Err() != nil {
			return nil, report, err
		}
	}

	log.Warn(report.Summary())
	return nil, report, lastErr
}

func (e *Extractor) attempt(ctx context.Context, pc types.ProviderConfig, task *llm.Task, obs *types.Observer, accept func(any) (any, error)) (any, error) {
	opts := []llm.Option{llm.WithLogger(e.logger)}
	if endpoint := e.endpoints[pc.Provider]; endpoint != "" {
		opts = append(opts, llm.WithEndpoint(endpoint))
	}
	if e.httpClient != nil {
		opts = append(opts, llm.WithHTTPClient(e.httpClient))
	}

	adapter, err := e.registry.Adapter(ctx, pc, opts...)
	if err != nil {
		return nil, err
	}
	if c, ok := adapter.(io.Closer); ok {
		defer c.Close()
	}

	v, err := llm.Extract(ctx, adapter, task, obs)
	if err != nil {
		return nil, err
	}
	return accept(v)
}

// acceptFuel re-validates the adapter output as a typed fuel result
func acceptFuel(v any) (any, error) {
	f, ok := v.(*types.FuelExtraction)
	if !ok || f == nil {
		return nil, fmt.Errorf("%w: expected a fuel result, got %T", schema.ErrSchemaMismatch, v)
	}
	return schema.ValidateFuel(f.Raw)
}

// acceptService re-validates the adapter output as a typed service result
func acceptService(v any) (any, error) {
	s, ok := v.(*types.ServiceExtraction)
	if !ok || s == nil {
		return nil, fmt.Errorf("%w: expected a service result, got %T", schema.ErrSchemaMismatch, v)
	}
	return schema.ValidateService(s.Raw)
}

// activeProviders drops entries without a key, keeping order
func activeProviders(providers []types.ProviderConfig) []types.ProviderConfig {
	out := make([]types.ProviderConfig, 0, len(providers))
	for _, p := range providers {
		if strings.TrimSpace(p.APIKey) != "" {
			out = append(out, p)
		}
	}
	return out
}
