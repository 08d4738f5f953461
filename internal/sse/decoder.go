package sse

import (
	"bytes"
	"errors"
	"io"
	"strings"
)

const (
	dataPrefix = "data:"
	doneMarker = "[DONE]"
	readChunk  = 4 * 1024
)

var eventSeparator = []byte("\n\n")

// Option configures a Decoder
type Option func(*Decoder)

// WithChunkHandler receives every data line except the [DONE] marker, as it appeared on the wire
func WithChunkHandler(fn func(line string)) Option {
	return func(d *Decoder) {
		d.onChunk = fn
	}
}

// WithProgressHandler receives a headline whenever the reasoning text yields a new one
func WithProgressHandler(fn func(headline string)) Option {
	return func(d *Decoder) {
		d.onProgress = fn
	}
}

// Decoder holds the state of one streamed response.
// It is fed raw bytes in arbitrary chunks and is not safe for concurrent use.
type Decoder struct {
	classify   Classifier
	onChunk    func(string)
	onProgress func(string)

	buf      []byte
	kinds    map[int]BlockKind
	text     strings.Builder
	thinking strings.Builder
	headline string
	err      *StreamError
}

// NewDecoder creates a Decoder using classify to interpret payloads
func NewDecoder(classify Classifier, opts ...Option) *Decoder {
	d := &Decoder{
		classify: classify,
		kinds:    make(map[int]BlockKind),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Feed consumes the next chunk of the stream.
// Carriage returns are dropped so CRLF framed streams split the same way.
func (d *Decoder) Feed(chunk []byte) {
	for _, b := range chunk {
		if b != '\r' {
			d.buf = append(d.buf, b)
		}
	}

	for {
		i := bytes.Index(d.buf, eventSeparator)
		if i < 0 {
			return
		}
		event := string(d.buf[:i])
		d.buf = d.buf[i+len(eventSeparator):]
		d.handleEvent(event)
	}
}

// ReadFrom feeds the decoder until r is exhausted
func (d *Decoder) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	buf := make([]byte, readChunk)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			total += int64(n)
			d.Feed(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, err
		}
	}
}

// Finish flushes a trailing event that was not followed by a blank line
// and returns the trimmed answer text.
func (d *Decoder) Finish() string {
	if len(bytes.TrimSpace(d.buf)) > 0 {
		event := string(d.buf)
		d.buf = nil
		d.handleEvent(event)
	}
	d.buf = nil
	return strings.TrimSpace(d.text.String())
}

// Text returns the answer text accumulated so far
func (d *Decoder) Text() string {
	return d.text.String()
}

// Thinking returns the reasoning text accumulated so far
func (d *Decoder) Thinking() string {
	return d.thinking.String()
}

// Err returns the first error event seen in the stream, if any
func (d *Decoder) Err() error {
	if d.err == nil {
		return nil
	}
	return d.err
}

// Apply updates the decoder state with an already decoded event
func (d *Decoder) Apply(ev Event) {
	switch e := ev.(type) {
	case BlockStart:
		d.kinds[e.Index] = e.Kind

	case BlockDelta:
		kind, ok := d.kinds[e.Index]
		if !ok {
			kind = e.Kind
		}
		switch kind {
		case KindText:
			d.text.WriteString(e.Text)
		case KindThinking:
			d.thinking.WriteString(e.Text)
			d.updateProgress()
		}

	case StreamError:
		if d.err == nil {
			d.err = &e
		}
	}
}

func (d *Decoder) handleEvent(event string) {
	var payloads []string
	decoded := 0

	for _, line := range strings.Split(event, "\n") {
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
		if payload == doneMarker {
			continue
		}
		if d.onChunk != nil {
			d.onChunk(line)
		}
		if payload == "" {
			continue
		}
		payloads = append(payloads, payload)
		if d.decode(payload) {
			decoded++
		}
	}

	// A JSON document split across several data lines only decodes once joined
	if decoded == 0 && len(payloads) > 1 {
		d.decode(strings.Join(payloads, "\n"))
	}
}

func (d *Decoder) decode(payload string) bool {
	events, err := d.classify([]byte(payload))
	if err != nil {
		return false
	}
	for _, ev := range events {
		d.Apply(ev)
	}
	return true
}

func (d *Decoder) updateProgress() {
	if d.onProgress == nil {
		return
	}
	h := Headline(d.thinking.String())
	if h == "" || h == d.headline {
		return
	}
	d.headline = h
	d.onProgress(h)
}

// Headline derives a one-line progress summary from reasoning text.
// It looks at the last paragraph only. A first line made of a single **bold** heading
// wins; otherwise the first line is used once it is complete.
func Headline(thinking string) string {
	paragraph := thinking
	if i := strings.LastIndex(thinking, "\n\n"); i >= 0 {
		paragraph = thinking[i+2:]
	}
	paragraph = strings.TrimLeft(paragraph, " \t\n")
	if paragraph == "" {
		return ""
	}

	first, _, sawNewline := strings.Cut(paragraph, "\n")
	first = strings.TrimSpace(first)
	if first == "" {
		return ""
	}

	if heading, ok := boldHeading(first); ok {
		return heading
	}
	if sawNewline || endsSentence(first) {
		return first
	}
	return ""
}

func boldHeading(line string) (string, bool) {
	if len(line) < 5 || !strings.HasPrefix(line, "**") || !strings.HasSuffix(line, "**") {
		return "", false
	}
	inner := strings.TrimSpace(line[2 : len(line)-2])
	if inner == "" || strings.Contains(inner, "**") {
		return "", false
	}
	return inner, true
}

func endsSentence(line string) bool {
	return strings.HasSuffix(line, ".") ||
		strings.HasSuffix(line, "!") ||
		strings.HasSuffix(line, "?") ||
		strings.HasSuffix(line, ":") ||
		strings.HasSuffix(line, "…")
}
