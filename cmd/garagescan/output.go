package main

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/platinummonkey/garagescan/internal/types"
)

// printDebugEvent renders each debug event as one line
func printDebugEvent(w io.Writer) func(types.DebugEvent) {
	var mu sync.Mutex
	return func(ev types.DebugEvent) {
		mu.Lock()
		defer mu.Unlock()

		var body string
		switch ev.Kind {
		case types.DebugRequest:
			body = string(ev.Payload)
		case types.DebugChunk:
			body = ev.Line
		case types.DebugResponse:
			body = ev.Text
		case types.DebugError:
			body = ev.Message
		}
		fmt.Fprintf(w, "[%s] %s %s (call %s): %s\n",
			ev.Time.Format("15:04:05.000"), ev.Provider, ev.Kind, shortID(ev.CallID), body)
	}
}

// printProgress prints each thinking headline on its own line
func printProgress(w io.Writer) func(string) {
	return func(headline string) {
		fmt.Fprintf(w, "thinking: %s\n", headline)
	}
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// loadImage reads an image file, taking the media type from the extension or the content
func loadImage(path string) (types.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Image{}, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	if len(data) == 0 {
		return types.Image{}, fmt.Errorf("image %s is empty", path)
	}

	mediaType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if !strings.HasPrefix(mediaType, "image/") {
		mediaType = http.DetectContentType(data)
	}
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = mediaType[:i]
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return types.Image{}, fmt.Errorf("%s does not look like an image (%s)", path, mediaType)
	}

	return types.Image{MediaType: mediaType, Data: data}, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
