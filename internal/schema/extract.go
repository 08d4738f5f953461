package schema

import (
	"encoding/json"
	"strings"
)

// ExtractJSON locates the JSON document in free-form model output.
// The whole text is tried first, then the span from the first "{" to the last "}",
// which tolerates prose or code fences around a single object.
func ExtractJSON(text string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		candidate := trimmed[start : end+1]
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate), nil
		}
	}

	return nil, &ExtractionError{Raw: text, Err: ErrNoJSON}
}
