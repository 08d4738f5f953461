package llm

import (
	"context"
	"errors"
	"time"

	"github.com/platinummonkey/garagescan/internal/logger"
	"github.com/platinummonkey/garagescan/internal/schema"
	"github.com/platinummonkey/garagescan/internal/types"
)

// Extract runs task on adapter and returns the validated result:
// *types.FuelExtraction or *types.ServiceExtraction depending on task.Kind.
func Extract(ctx context.Context, adapter Adapter, task *Task, obs *types.Observer) (any, error) {
	provider := adapter.Name()
	started := time.Now()

	text, err := adapter.Run(ctx, task, obs)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, ErrNoText
	}

	ev := task.event(types.DebugResponse, provider)
	ev.Text = text
	obs.Emit(ev)

	raw, err := schema.ExtractJSON(text)
	if err != nil {
		var ee *schema.ExtractionError
		if errors.As(err, &ee) {
			ee.Task = task.Kind
		}
		return nil, err
	}

	result, err := schema.Validate(task.Kind, raw)
	if err != nil {
		return nil, err
	}

	logger.WithProvider(string(provider)).WithCallID(task.CallID).WithTask(string(task.Kind)).
		WithFields("duration", time.Since(started).Round(time.Millisecond)).
		Debug("Extraction validated")
	return result, nil
}
