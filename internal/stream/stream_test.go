package stream

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBody = "[YESTERDAY]\n• Completed authentication flow\n• Reviewed PR comments\n\n[TODAY]\n• Working on API integration\n\n[BLOCKERS]\n• Waiting on design approval\n"

func framed(t *testing.T, meta Meta, body string) string {
	t.Helper()
	var out bytes.Buffer
	f := NewFramer(&out)
	require.NoError(t, f.WriteMeta(meta))
	require.NoError(t, f.WriteChunk(body))
	require.Equal(t, out.String(), f.String())
	return out.String()
}

func TestFramerWritesMetaFrame(t *testing.T) {
	var out bytes.Buffer
	f := NewFramer(&out)

	require.NoError(t, f.WriteMeta(Meta{YesterdayDate: "2024-03-08", TodayDate: "2024-03-11"}))

	assert.Equal(t, `[META]{"yesterdayDate":"2024-03-08","todayDate":"2024-03-11","isWeekend":false}[|META]`+"\n", out.String())
}

func TestFramerOrdering(t *testing.T) {
	f := NewFramer(&bytes.Buffer{})

	assert.ErrorIs(t, f.WriteChunk("[YESTERDAY]"), ErrMetaNotWritten)
	require.NoError(t, f.WriteMeta(Meta{}))
	assert.ErrorIs(t, f.WriteMeta(Meta{}), ErrMetaWritten)
	n, err := f.Write([]byte("[TODAY]"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

type flushRecorder struct {
	bytes.Buffer
	flushes int
}

func (f *flushRecorder) Flush() { f.flushes++ }

func TestFramerFlushesEveryChunk(t *testing.T) {
	w := &flushRecorder{}
	f := NewFramer(w)

	require.NoError(t, f.WriteMeta(Meta{}))
	require.NoError(t, f.WriteChunk("[YESTERDAY]"))
	require.NoError(t, f.WriteChunk(""))
	require.NoError(t, f.WriteChunk("• x"))

	assert.Equal(t, 3, w.flushes)
}

func TestFramerValidate(t *testing.T) {
	f := NewFramer(&bytes.Buffer{})
	require.NoError(t, f.WriteMeta(Meta{}))
	require.NoError(t, f.WriteChunk("[YESTERDAY]\n• a\n[TODAY]\n"))

	err := f.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIncomplete))
	assert.Contains(t, err.Error(), MarkerBlockers)

	require.NoError(t, f.WriteChunk("[BLOCKERS]"))
	assert.NoError(t, f.Validate())
}

func TestFramerValidateRejectsMisplacedMarkers(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"reversed", "[BLOCKERS]\n• b\n[TODAY]\n• t\n[YESTERDAY]\n• y\n"},
		{"today first", "[TODAY]\n• t\n[YESTERDAY]\n• y\n[BLOCKERS]\n"},
		{"duplicated today", "[YESTERDAY]\n• y\n[TODAY]\n• t\n[TODAY]\n• again\n[BLOCKERS]\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := NewFramer(&bytes.Buffer{})
			require.NoError(t, f.WriteMeta(Meta{TodayDate: "2024-03-13"}))
			require.NoError(t, f.WriteChunk(tc.body))

			err := f.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMarkerOrder), "got %v", err)
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	meta := Meta{YesterdayDate: "2024-03-08", TodayDate: "2024-03-09", IsWeekend: true}

	got := Parse(framed(t, meta, sampleBody))

	assert.True(t, got.HasMeta)
	assert.Equal(t, meta, got.Meta)
	assert.Equal(t, "• Completed authentication flow\n• Reviewed PR comments", got.Yesterday.Text)
	assert.Equal(t, "• Working on API integration", got.Today.Text)
	assert.Equal(t, "• Waiting on design approval", got.Blockers.Text)
	assert.True(t, got.Complete())
	for _, s := range got.Sections() {
		assert.Equal(t, SectionContent, s.State, s.Marker)
	}
}

func TestParseConfirmedEmptySections(t *testing.T) {
	buf := framed(t, Meta{TodayDate: "2024-03-11"}, "[YESTERDAY]\n\n[TODAY]\n• Something\n[BLOCKERS]\n")

	got := Parse(buf)

	assert.Equal(t, SectionEmpty, got.Yesterday.State)
	assert.Equal(t, SectionContent, got.Today.State)
	assert.Equal(t, SectionEmpty, got.Blockers.State)
}

func TestParseArrivingVersusEmpty(t *testing.T) {
	buf := framed(t, Meta{}, "[YESTERDAY]\n")

	got := Parse(buf)
	assert.Equal(t, SectionArriving, got.Yesterday.State)
	assert.True(t, got.Yesterday.Pending())
	assert.Equal(t, SectionAbsent, got.Today.State)
	assert.Equal(t, SectionAbsent, got.Blockers.State)

	got = ParseFinal(buf)
	assert.Equal(t, SectionEmpty, got.Yesterday.State)
	assert.False(t, got.Yesterday.Pending())
	assert.Equal(t, SectionAbsent, got.Today.State)
}

func TestParseBlockersConfirmedOnlyWithAllMarkers(t *testing.T) {
	got := Parse("[META]{}[|META]\n[TODAY]\n[BLOCKERS]\n")
	assert.Equal(t, SectionEmpty, got.Today.State)
	assert.Equal(t, SectionArriving, got.Blockers.State)

	got = Parse("[META]{}[|META]\n[YESTERDAY]\n[TODAY]\n[BLOCKERS]\n")
	assert.Equal(t, SectionEmpty, got.Blockers.State)
}

func TestParseTruncatedMeta(t *testing.T) {
	var got Report
	require.NotPanics(t, func() {
		got = Parse(`[META]{"yesterdayDate":"2024-01-0`)
	})

	assert.False(t, got.HasMeta)
	assert.Equal(t, Meta{}, got.Meta)
	assert.Equal(t, SectionAbsent, got.Yesterday.State)
}

func TestParseInvalidMetaKeepsSections(t *testing.T) {
	got := Parse("[META]{not json}[|META]\n[YESTERDAY]\n• a\n[TODAY]\n• b\n[BLOCKERS]\n• c")

	assert.False(t, got.HasMeta)
	assert.Equal(t, "• a", got.Yesterday.Text)
	assert.Equal(t, "• b", got.Today.Text)
	assert.Equal(t, "• c", got.Blockers.Text)
}

func TestParseWithoutMeta(t *testing.T) {
	got := Parse("[YESTERDAY]• a[TODAY]• b")

	assert.False(t, got.HasMeta)
	assert.Equal(t, "• a", got.Yesterday.Text)
	assert.Equal(t, "• b", got.Today.Text)
	assert.Equal(t, SectionAbsent, got.Blockers.State)
}

func TestParseHoldsBackPartialMarker(t *testing.T) {
	got := Parse("[META]{}[|META]\n[YESTERDAY]\n• a\n[TO")
	assert.Equal(t, "• a", got.Yesterday.Text)

	got = Parse("[META]{}[|META]\n[YESTERDAY]\n• see [docs] page")
	assert.Equal(t, "• see [docs] page", got.Yesterday.Text)
}

func TestParseIsMonotonicOverChunks(t *testing.T) {
	full := framed(t, Meta{TodayDate: "2024-03-11"}, sampleBody)
	final := ParseFinal(full)

	for i := 0; i <= len(full); i++ {
		partial := Parse(full[:i])
		for idx, s := range partial.Sections() {
			want := final.Sections()[idx]
			assert.True(t, strings.HasPrefix(want.Text, s.Text),
				"prefix %d: %s text %q is not a prefix of %q", i, s.Marker, s.Text, want.Text)
			// Blockers are confirmed as soon as all markers are present, so
			// only the first two sections are guaranteed not to flash empty.
			if s.State == SectionEmpty && s.Marker != MarkerBlockers {
				assert.Equal(t, SectionEmpty, want.State, "prefix %d: %s flashed empty", i, s.Marker)
			}
		}
		// Re-parsing is idempotent.
		assert.Equal(t, partial, Parse(full[:i]))
	}
}

func TestBullets(t *testing.T) {
	text := "• Completed flow\n\n- Reviewed PR\n* Paired on bug\nplain line\n  •   spaced  "

	assert.Equal(t, []string{"Completed flow", "Reviewed PR", "Paired on bug", "plain line", "spaced"}, Bullets(text))
	assert.Empty(t, Bullets(""))
}

func TestPlainText(t *testing.T) {
	buf := framed(t, Meta{TodayDate: "2024-03-11"}, "[YESTERDAY]\n• a\n[TODAY]\n• b\n[BLOCKERS]\n")

	assert.Equal(t, "YESTERDAY\n\n- a\n\nTODAY\n\n- b\n\nBLOCKERS", PlainText(buf))
}

func TestSectionStateString(t *testing.T) {
	assert.Equal(t, "arriving", SectionArriving.String())
	assert.Equal(t, "unknown", SectionState(42).String())
}
