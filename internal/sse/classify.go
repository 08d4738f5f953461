package sse

import (
	"encoding/json"
	"strings"
)

type anthropicPayload struct {
	Type         string `json:"type"`
	Index        int    `json:"index"`
	ContentBlock struct {
		Type string `json:"type"`
	} `json:"content_block"`
	Delta struct {
		Type     string `json:"type"`
		Text     string `json:"text"`
		Thinking string `json:"thinking"`
	} `json:"delta"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Anthropic classifies Messages API stream payloads
func Anthropic(payload []byte) ([]Event, error) {
	var p anthropicPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}

	switch p.Type {
	case "content_block_start":
		return []Event{BlockStart{Index: p.Index, Kind: anthropicBlockKind(p.ContentBlock.Type)}}, nil

	case "content_block_delta":
		switch p.Delta.Type {
		case "text_delta":
			return []Event{BlockDelta{Index: p.Index, Kind: KindText, Text: p.Delta.Text}}, nil
		case "thinking_delta":
			return []Event{BlockDelta{Index: p.Index, Kind: KindThinking, Text: p.Delta.Thinking}}, nil
		default:
			return []Event{Other{Type: p.Type + "/" + p.Delta.Type}}, nil
		}

	case "error":
		msg := p.Error.Message
		if msg == "" {
			msg = p.Error.Type
		}
		return []Event{StreamError{Message: msg}}, nil

	default:
		return []Event{Other{Type: p.Type}}, nil
	}
}

func anthropicBlockKind(blockType string) BlockKind {
	switch blockType {
	case "text":
		return KindText
	case "thinking", "redacted_thinking":
		return KindThinking
	default:
		return KindUnknown
	}
}

type openAIPayload struct {
	Object  string `json:"object"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Content          *string `json:"content"`
			ReasoningContent *string `json:"reasoning_content"`
			Reasoning        *string `json:"reasoning"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// OpenAI classifies Chat Completions stream payloads.
// Chat chunks carry no block registry, so deltas declare their own kind.
func OpenAI(payload []byte) ([]Event, error) {
	var p openAIPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}

	if p.Error != nil {
		msg := p.Error.Message
		if msg == "" {
			msg = p.Error.Type
		}
		return []Event{StreamError{Message: msg}}, nil
	}

	var events []Event
	for _, c := range p.Choices {
		reasoning := c.Delta.ReasoningContent
		if reasoning == nil {
			reasoning = c.Delta.Reasoning
		}
		if reasoning != nil && *reasoning != "" {
			events = append(events, BlockDelta{Index: c.Index, Kind: KindThinking, Text: *reasoning})
		}
		if c.Delta.Content != nil && *c.Delta.Content != "" {
			events = append(events, BlockDelta{Index: c.Index, Kind: KindText, Text: *c.Delta.Content})
		}
	}
	if len(events) == 0 {
		return []Event{Other{Type: strings.TrimSpace(p.Object)}}, nil
	}
	return events, nil
}
