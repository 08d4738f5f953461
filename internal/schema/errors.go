package schema

import (
	"errors"
	"fmt"

	"github.com/platinummonkey/garagescan/internal/types"
)

var (
	// ErrNoJSON is returned when no JSON object could be located in the model text
	ErrNoJSON = errors.New("model did not return JSON")

	// ErrSchemaMismatch is returned when decoded JSON does not fit the task schema
	ErrSchemaMismatch = errors.New("response did not match schema")
)

// maxRawInMessage caps how much raw model text is repeated in Error()
const maxRawInMessage = 600

// ExtractionError reports model text that could not be turned into a result.
// Raw always holds the complete offending text.
type ExtractionError struct {
	Task types.TaskKind
	Raw  string
	Err  error
}

func (e *ExtractionError) Error() string {
	raw := e.Raw
	if r := []rune(raw); len(r) > maxRawInMessage {
		raw = string(r[:maxRawInMessage]) + "…"
	}
	if errors.Is(e.Err, ErrNoJSON) {
		return fmt.Sprintf("%v: %s", e.Err, raw)
	}
	task := string(e.Task)
	if task == "" {
		task = "model"
	}
	return fmt.Sprintf("%s %v; raw response: %s", task, e.Err, raw)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

func mismatch(task types.TaskKind, raw []byte, cause error) error {
	return &ExtractionError{
		Task: task,
		Raw:  string(raw),
		Err:  fmt.Errorf("%w: %v", ErrSchemaMismatch, cause),
	}
}
