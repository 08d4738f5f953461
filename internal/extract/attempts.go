package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/platinummonkey/garagescan/internal/types"
)

// Attempts records what happened to each provider tried during one extraction call
type Attempts struct {
	Task      types.TaskKind
	CallID    string
	Succeeded types.ProviderType
	Duration  time.Duration
	Attempts  []Attempt
}

// Attempt is one provider try
type Attempt struct {
	Provider types.ProviderType
	Model    string
	Duration time.Duration
	Error    error
}

// NewAttempts creates an empty report
func NewAttempts(task types.TaskKind, callID string) *Attempts {
	return &Attempts{
		Task:     task,
		CallID:   callID,
		Attempts: make([]Attempt, 0),
	}
}

// AddSuccess records the provider whose result was returned
func (a *Attempts) AddSuccess(provider types.ProviderType, model string, d time.Duration) {
	a.Attempts = append(a.Attempts, Attempt{Provider: provider, Model: model, Duration: d})
	a.Succeeded = provider
}

// AddError records a failed provider
func (a *Attempts) AddError(provider types.ProviderType, model string, d time.Duration, err error) {
	a.Attempts = append(a.Attempts, Attempt{Provider: provider, Model: model, Duration: d, Error: err})
}

// FailureCount returns the number of failed attempts
func (a *Attempts) FailureCount() int {
	n := 0
	for _, at := range a.Attempts {
		if at.Error != nil {
			n++
		}
	}
	return n
}

// HasFailures returns true if any provider failed
func (a *Attempts) HasFailures() bool {
	return a.FailureCount() > 0
}

// Summary returns a human-readable summary of the call
func (a *Attempts) Summary() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Extraction Summary (%s, call %s):\n", a.Task, a.CallID)
	fmt.Fprintf(&sb, "  Providers tried: %d\n", len(a.Attempts))
	fmt.Fprintf(&sb, "  Failed: %d\n", a.FailureCount())
	if a.Succeeded != "" {
		fmt.Fprintf(&sb, "  Result from: %s\n", a.Succeeded)
	} else {
		sb.WriteString("  Result from: none\n")
	}
	fmt.Fprintf(&sb, "  Duration: %v\n", a.Duration)

	if a.HasFailures() {
		sb.WriteString("\nFailures:\n")
		for _, at := range a.Attempts {
			if at.Error != nil {
				fmt.Fprintf(&sb, "  - %s (%s, %v): %v\n", at.Provider, at.Model, at.Duration, at.Error)
			}
		}
	}

	return sb.String()
}

// String returns a string representation of the report
func (a *Attempts) String() string {
	return a.Summary()
}
