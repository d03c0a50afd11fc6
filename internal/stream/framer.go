package stream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrMetaNotWritten = errors.New("stream: content written before metadata frame")
	ErrMetaWritten    = errors.New("stream: metadata frame already written")
	ErrIncomplete     = errors.New("stream: generated text is missing section markers")
	ErrMarkerOrder    = errors.New("stream: section markers repeated or out of order")
)

type flusher interface {
	Flush()
}

// Framer writes the metadata frame and then generated text verbatim to w,
// flushing after every write when w supports it. It keeps a copy of
// everything written.
type Framer struct {
	w           io.Writer
	metaWritten bool
	buf         strings.Builder
}

func NewFramer(w io.Writer) *Framer {
	return &Framer{w: w}
}

func (f *Framer) WriteMeta(m Meta) error {
	if f.metaWritten {
		return ErrMetaWritten
	}
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	f.metaWritten = true
	return f.emit(MarkerMetaOpen + string(payload) + MarkerMetaClose + "\n")
}

// WriteChunk appends one chunk of generated text.
func (f *Framer) WriteChunk(chunk string) error {
	if !f.metaWritten {
		return ErrMetaNotWritten
	}
	if chunk == "" {
		return nil
	}
	return f.emit(chunk)
}

// Write implements io.Writer on top of WriteChunk.
func (f *Framer) Write(p []byte) (int, error) {
	if err := f.WriteChunk(string(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// String returns the framed stream written so far.
func (f *Framer) String() string {
	return f.buf.String()
}

// Validate reports whether the generated text carried each section marker
// exactly once, in order.
func (f *Framer) Validate() error {
	buf := f.buf.String()
	toks := tokenize(buf)
	body := 0
	if end, ok := find(toks, tokMetaClose, 0); ok {
		body = end.end
	}

	var seen []tokenKind
	counts := make(map[tokenKind]int)
	for _, t := range toks {
		if t.start < body {
			continue
		}
		switch t.kind {
		case tokYesterday, tokToday, tokBlockers:
			seen = append(seen, t.kind)
			counts[t.kind]++
		}
	}

	for i, kind := range []tokenKind{tokYesterday, tokToday, tokBlockers} {
		if counts[kind] == 0 {
			return fmt.Errorf("%w: %s", ErrIncomplete, sectionMarkers[i])
		}
	}
	if len(seen) != len(sectionMarkers) {
		return fmt.Errorf("%w: %d section markers", ErrMarkerOrder, len(seen))
	}
	for i, kind := range []tokenKind{tokYesterday, tokToday, tokBlockers} {
		if seen[i] != kind {
			return fmt.Errorf("%w: %s at position %d", ErrMarkerOrder, sectionMarkers[i], i+1)
		}
	}
	return nil
}

func (f *Framer) emit(s string) error {
	if _, err := io.WriteString(f.w, s); err != nil {
		return err
	}
	f.buf.WriteString(s)
	if fl, ok := f.w.(flusher); ok {
		fl.Flush()
	}
	return nil
}
