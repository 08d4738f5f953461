package llm

import (
	"strings"

	"github.com/platinummonkey/garagescan/internal/prompt"
	"github.com/platinummonkey/garagescan/internal/types"
)

const (
	// FuelMaxTokens is the output budget of a fuel extraction
	FuelMaxTokens = 1024

	// ServiceMaxTokens is the output budget of a service extraction
	ServiceMaxTokens = 16000

	// ServiceThinkingBudget is the reasoning budget requested when a service extraction streams.
	// It must stay below ServiceMaxTokens.
	ServiceThinkingBudget = 6000
)

// Task is one provider-independent extraction request
type Task struct {
	Kind types.TaskKind

	// Prompt is sent to the provider; RedactedPrompt replaces it in debug output
	Prompt         string
	RedactedPrompt string

	Images []types.Image

	// Model overrides the adapter default when non-empty
	Model string

	MaxTokens      int
	ThinkingBudget int

	// CallID groups the debug events of one extraction call
	CallID string
}

// FuelTask builds the task for a fuel fill-up: pump photo first, odometer second
func FuelTask(req types.FuelRequest) *Task {
	p := prompt.Fuel()
	return &Task{
		Kind:           types.TaskFuel,
		Prompt:         p,
		RedactedPrompt: p,
		Images:         []types.Image{req.Pump, req.Odometer},
		Model:          strings.TrimSpace(req.Model),
		MaxTokens:      FuelMaxTokens,
	}
}

// ServiceTask builds the task for a service document, keeping at most types.MaxServiceImages images
func ServiceTask(req types.ServiceRequest) *Task {
	images := req.Images
	if len(images) > types.MaxServiceImages {
		images = images[:types.MaxServiceImages]
	}

	sp := prompt.Service(prompt.ServiceParams{
		DocumentText: req.DocumentText,
		ImageCount:   len(images),
		Vehicles:     req.Vehicles,
		ExtraFields:  req.ExtraFields,
	})

	return &Task{
		Kind:           types.TaskService,
		Prompt:         sp.Text,
		RedactedPrompt: sp.Redacted,
		Images:         images,
		Model:          strings.TrimSpace(req.Model),
		MaxTokens:      ServiceMaxTokens,
		ThinkingBudget: ServiceThinkingBudget,
	}
}

// WithModel returns a copy of the task using model when it is set
func (t *Task) WithModel(model string) *Task {
	c := *t
	if m := strings.TrimSpace(model); m != "" {
		c.Model = m
	}
	return &c
}

func (t *Task) modelOr(def string) string {
	if t.Model != "" {
		return t.Model
	}
	return def
}

func (t *Task) event(kind types.DebugKind, provider types.ProviderType) types.DebugEvent {
	return types.DebugEvent{Kind: kind, Provider: provider, CallID: t.CallID}
}
