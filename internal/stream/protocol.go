// Package stream frames a generated standup as a single text stream and
// parses partial or complete streams back into sections.
//
// A framed stream looks like:
//
//	[META]{"yesterdayDate":"2024-03-08","todayDate":"2024-03-11","isWeekend":false}[|META]
//	[YESTERDAY]
//	• Finished the payment retry flow
//	[TODAY]
//	• Reviewing the refund PR
//	[BLOCKERS]
//
// Parsing is stateless: consumers re-run Parse on the whole buffer after every
// received chunk.
package stream

const (
	MarkerMetaOpen  = "[META]"
	MarkerMetaClose = "[|META]"
	MarkerYesterday = "[YESTERDAY]"
	MarkerToday     = "[TODAY]"
	MarkerBlockers  = "[BLOCKERS]"
)

// sectionMarkers lists the section markers in their required order.
var sectionMarkers = []string{MarkerYesterday, MarkerToday, MarkerBlockers}

var allMarkers = []string{MarkerMetaOpen, MarkerMetaClose, MarkerYesterday, MarkerToday, MarkerBlockers}

// Meta is the header the producer sends before any generated text.
type Meta struct {
	YesterdayDate string `json:"yesterdayDate"`
	TodayDate     string `json:"todayDate"`
	IsWeekend     bool   `json:"isWeekend"`
}
