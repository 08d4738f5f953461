package types

import (
	"encoding/json"
	"time"
)

// DebugKind tags a DebugEvent
type DebugKind string

const (
	// DebugRequest carries the outgoing payload with images reduced to metadata
	DebugRequest DebugKind = "request"

	// DebugChunk carries one raw streamed protocol line
	DebugChunk DebugKind = "chunk"

	// DebugResponse carries the final joined model text
	DebugResponse DebugKind = "response"

	// DebugError carries a per-provider failure
	DebugError DebugKind = "error"
)

// DebugEvent is a transient record of what was sent to or received from a provider.
// Only the field matching Kind is populated besides the common ones.
type DebugEvent struct {
	Kind     DebugKind
	Provider ProviderType
	CallID   string
	Time     time.Time

	// Payload is set for DebugRequest
	Payload json.RawMessage

	// Line is set for DebugChunk
	Line string

	// Text is set for DebugResponse
	Text string

	// Message is set for DebugError
	Message string
}

// Observer receives debug events and thinking progress for one extraction call.
// A nil Observer, or one with both callbacks nil, selects the non-streaming path.
type Observer struct {
	OnDebug    func(DebugEvent)
	OnProgress func(string)
}

// Streaming reports whether the call should stream the provider response
func (o *Observer) Streaming() bool {
	return o != nil && (o.OnDebug != nil || o.OnProgress != nil)
}

// Debugging reports whether debug events should be built at all
func (o *Observer) Debugging() bool {
	return o != nil && o.OnDebug != nil
}

// Emit forwards ev to the debug sink, stamping the time
func (o *Observer) Emit(ev DebugEvent) {
	if !o.Debugging() {
		return
	}
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	o.OnDebug(ev)
}

// Progress forwards a thinking headline to the progress sink
func (o *Observer) Progress(headline string) {
	if o == nil || o.OnProgress == nil {
		return
	}
	o.OnProgress(headline)
}
