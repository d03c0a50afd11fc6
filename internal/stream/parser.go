package stream

import (
	"encoding/json"
	"regexp"
	"strings"
)

// SectionState tells a renderer how to treat a section.
type SectionState int

const (
	// SectionAbsent means the section marker has not arrived.
	SectionAbsent SectionState = iota
	// SectionArriving means the marker arrived but the section is not
	// confirmed and carries no text yet. Renderers must not show it as empty.
	SectionArriving
	// SectionEmpty means the section is confirmed and has no text.
	SectionEmpty
	// SectionContent means the section has text, confirmed or not.
	SectionContent
)

func (s SectionState) String() string {
	switch s {
	case SectionAbsent:
		return "absent"
	case SectionArriving:
		return "arriving"
	case SectionEmpty:
		return "empty"
	case SectionContent:
		return "content"
	default:
		return "unknown"
	}
}

type Section struct {
	Marker    string
	State     SectionState
	Confirmed bool
	Text      string
}

// Pending reports whether a renderer should show a placeholder.
func (s Section) Pending() bool {
	return s.State == SectionAbsent || s.State == SectionArriving
}

// Report is the parsed view of a framed buffer.
type Report struct {
	Meta      Meta
	HasMeta   bool
	Yesterday Section
	Today     Section
	Blockers  Section
}

func (r Report) Sections() []Section {
	return []Section{r.Yesterday, r.Today, r.Blockers}
}

// Complete reports whether every section is confirmed.
func (r Report) Complete() bool {
	return r.Yesterday.Confirmed && r.Today.Confirmed && r.Blockers.Confirmed
}

type tokenKind int

const (
	tokMetaOpen tokenKind = iota
	tokMetaClose
	tokYesterday
	tokToday
	tokBlockers
)

type token struct {
	kind       tokenKind
	start, end int
}

var markerRe = regexp.MustCompile(`\[(?:\|META|META|YESTERDAY|TODAY|BLOCKERS)\]`)

var tokenKinds = map[string]tokenKind{
	MarkerMetaOpen:  tokMetaOpen,
	MarkerMetaClose: tokMetaClose,
	MarkerYesterday: tokYesterday,
	MarkerToday:     tokToday,
	MarkerBlockers:  tokBlockers,
}

func tokenize(buf string) []token {
	locs := markerRe.FindAllStringIndex(buf, -1)
	toks := make([]token, 0, len(locs))
	for _, loc := range locs {
		toks = append(toks, token{kind: tokenKinds[buf[loc[0]:loc[1]]], start: loc[0], end: loc[1]})
	}
	return toks
}

// find returns the first token of kind that starts at or after from.
func find(toks []token, kind tokenKind, from int) (token, bool) {
	for _, t := range toks {
		if t.kind == kind && t.start >= from {
			return t, true
		}
	}
	return token{}, false
}

// Parse decodes a buffer that may still be growing. A section is confirmed
// once the following marker arrived; the blockers section is confirmed once
// all three section markers are present.
func Parse(buf string) Report {
	return parse(buf, false)
}

// ParseFinal decodes a buffer whose stream has ended: every section whose
// marker is present is confirmed.
func ParseFinal(buf string) Report {
	return parse(buf, true)
}

func parse(buf string, final bool) Report {
	toks := tokenize(buf)
	var r Report

	body := 0
	if open, ok := find(toks, tokMetaOpen, 0); ok {
		if closing, ok := find(toks, tokMetaClose, open.end); ok {
			var m Meta
			if err := json.Unmarshal([]byte(strings.TrimSpace(buf[open.end:closing.start])), &m); err == nil {
				r.Meta = m
				r.HasMeta = true
			}
			body = closing.end
		}
	}

	y, hasY := find(toks, tokYesterday, body)
	t, hasT := find(toks, tokToday, body)
	b, hasB := find(toks, tokBlockers, body)

	yEnd, yClosed := find(toks, tokToday, y.end)
	tEnd, tClosed := find(toks, tokBlockers, t.end)

	r.Yesterday = section(buf, MarkerYesterday, y, hasY, yEnd, yClosed, yClosed || final)
	r.Today = section(buf, MarkerToday, t, hasT, tEnd, tClosed, tClosed || final)
	r.Blockers = section(buf, MarkerBlockers, b, hasB, token{}, false, (hasY && hasT) || final)
	return r
}

// section extracts the text after start up to end (or the end of the buffer
// when the section has no successor yet).
func section(buf, marker string, start token, present bool, end token, hasEnd, confirmed bool) Section {
	s := Section{Marker: marker}
	if !present {
		return s
	}

	var raw string
	switch {
	case hasEnd:
		raw = buf[start.end:end.start]
	case confirmed:
		raw = buf[start.end:]
	default:
		raw = trimPartialMarker(buf[start.end:])
	}

	s.Text = strings.TrimSpace(raw)
	s.Confirmed = confirmed
	switch {
	case s.Text != "":
		s.State = SectionContent
	case s.Confirmed:
		s.State = SectionEmpty
	default:
		s.State = SectionArriving
	}
	return s
}

// trimPartialMarker drops a trailing fragment that could still grow into a
// marker, so text extracted from a growing buffer only ever extends.
func trimPartialMarker(text string) string {
	i := strings.LastIndexByte(text, '[')
	if i < 0 {
		return text
	}
	tail := text[i:]
	for _, m := range allMarkers {
		if len(tail) < len(m) && strings.HasPrefix(m, tail) {
			return text[:i]
		}
	}
	return text
}

// Bullets splits section text into display lines, dropping blank lines and a
// leading bullet glyph.
func Bullets(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		for _, glyph := range []string{"•", "-", "*"} {
			if strings.HasPrefix(line, glyph) {
				line = strings.TrimSpace(strings.TrimPrefix(line, glyph))
				break
			}
		}
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

var (
	metaFrameRe     = regexp.MustCompile(`(?s)\[META\].*?\[\|META\]`)
	sectionMarkerRe = regexp.MustCompile(`\[(YESTERDAY|TODAY|BLOCKERS)\]`)
)

// PlainText strips the metadata frame and turns markers into headings, for
// clipboard and chat export.
func PlainText(buf string) string {
	out := metaFrameRe.ReplaceAllString(buf, "")
	out = sectionMarkerRe.ReplaceAllString(out, "\n$1\n")
	out = strings.ReplaceAll(out, "•", "-")
	return strings.TrimSpace(out)
}
