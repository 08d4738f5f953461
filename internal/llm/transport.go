package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/platinummonkey/garagescan/internal/sse"
	"github.com/platinummonkey/garagescan/internal/types"
)

// maxErrorBody caps how much of a failed response body is kept
const maxErrorBody = 2000

// ErrNoText is returned when a provider answered without any text
var ErrNoText = errors.New("provider did not return text")

// HTTPError is a non-2xx provider response
type HTTPError struct {
	Provider   types.ProviderType
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s API error (status %d)", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// StreamError is an error event received inside a 2xx streamed response
type StreamError struct {
	Provider types.ProviderType
	Message  string
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("%s stream error: %s", e.Provider, e.Message)
}

func newHTTPError(provider types.ProviderType, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody*4))
	text := strings.TrimSpace(string(body))
	if r := []rune(text); len(r) > maxErrorBody {
		text = string(r[:maxErrorBody]) + "…"
	}
	return &HTTPError{Provider: provider, StatusCode: resp.StatusCode, Body: text}
}

// transportError keeps cancellation visible to errors.Is
func transportError(ctx context.Context, provider types.ProviderType, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("%s request: %w (%v)", provider, ctxErr, err)
	}
	return fmt.Errorf("%s request: %w", provider, err)
}

// postJSON sends payload and returns the response when the status is 2xx.
// The caller closes the body.
func postJSON(ctx context.Context, o options, provider types.ProviderType, url string, headers map[string]string, payload []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, provider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, newHTTPError(provider, resp)
	}
	return resp, nil
}

// readStream drives an SSE decoder over body and returns the joined answer text
func readStream(ctx context.Context, provider types.ProviderType, task *Task, body io.Reader, classify sse.Classifier, obs *types.Observer) (string, error) {
	dec := sse.NewDecoder(classify,
		sse.WithChunkHandler(func(line string) {
			ev := task.event(types.DebugChunk, provider)
			ev.Line = line
			obs.Emit(ev)
		}),
		sse.WithProgressHandler(obs.Progress),
	)

	if _, err := dec.ReadFrom(body); err != nil {
		return "", transportError(ctx, provider, err)
	}
	text := dec.Finish()

	var se *sse.StreamError
	if errors.As(dec.Err(), &se) {
		return "", &StreamError{Provider: provider, Message: se.Message}
	}
	return text, nil
}
