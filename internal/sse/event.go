// Package sse decodes the server-sent event streams returned by model providers.
package sse

import "fmt"

// BlockKind says which accumulator a content block feeds
type BlockKind int

const (
	// KindUnknown is a block the decoder does not accumulate (tool use, signatures)
	KindUnknown BlockKind = iota

	// KindText is answer text
	KindText

	// KindThinking is reasoning text, surfaced only as progress headlines
	KindThinking
)

func (k BlockKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindThinking:
		return "thinking"
	default:
		return "unknown"
	}
}

// Event is one decoded stream event.
// It is one of BlockStart, BlockDelta, StreamError or Other.
type Event interface {
	isEvent()
}

// BlockStart registers the kind of the content block at Index for the rest of the stream
type BlockStart struct {
	Index int
	Kind  BlockKind
}

// BlockDelta appends Text to the block at Index.
// Kind is the sub-type declared by the delta itself and is used only when Index was never registered.
type BlockDelta struct {
	Index int
	Kind  BlockKind
	Text  string
}

// StreamError is an error reported inside an otherwise successful stream
type StreamError struct {
	Message string
}

// Other is any event the decoder ignores
type Other struct {
	Type string
}

func (BlockStart) isEvent()  {}
func (BlockDelta) isEvent()  {}
func (StreamError) isEvent() {}
func (Other) isEvent()       {}

func (e StreamError) Error() string {
	return fmt.Sprintf("stream error: %s", e.Message)
}

// Classifier turns one data payload into events.
// An error means the payload could not be decoded and is dropped.
type Classifier func(payload []byte) ([]Event, error)
