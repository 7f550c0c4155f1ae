// Package layout re-typesets translated speech bubbles onto PDF pages.
//
// It maps normalized bounding boxes into page space, wraps and auto-fits the
// translated text, moves patches out of the way of patches already placed on
// the same page and emits draw instructions through a Drawer. The package
// performs no I/O of its own.
package layout

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NormalizedScale is the upper bound of normalized box coordinates.
const NormalizedScale = 1000.0

// Placeholder is the line used when a segment carries no text at wrap time.
const Placeholder = "..."

// Segment is one detected speech bubble with its translation.
type Segment struct {
	PageNumber int       `json:"page_number"`
	Text       string    `json:"text"`
	Box        []float64 `json:"box_2d"` // yMin, xMin, yMax, xMax in [0,1000], y-down
}

// UnmarshalJSON decodes a segment leniently so that one malformed entry in a
// model reply never fails the whole document. Page numbers may be integral
// floats or numeric strings. A field that cannot be read is left at its zero
// value (a nil Box for any non-numeric coordinate) and the session later
// skips the segment with the matching reason.
func (s *Segment) UnmarshalJSON(data []byte) error {
	*s = Segment{}

	var raw struct {
		PageNumber json.RawMessage `json:"page_number"`
		Text       json.RawMessage `json:"text"`
		Box        json.RawMessage `json:"box_2d"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		// Not an object: an empty segment, skipped as missing_page.
		return nil //nolint:nilerr // malformed entries are skipped, not fatal
	}

	s.PageNumber = decodePageNumber(raw.PageNumber)
	if err := json.Unmarshal(raw.Text, &s.Text); err != nil {
		s.Text = ""
	}
	s.Box = decodeBox(raw.Box)
	return nil
}

// decodePageNumber returns the page number in raw, or 0 when raw is not a
// positive integer.
func decodePageNumber(raw json.RawMessage) int {
	var v any
	if len(raw) == 0 || json.Unmarshal(raw, &v) != nil {
		return 0
	}
	f, ok := number(v)
	if !ok || f < 1 || f > math.MaxInt32 || f != math.Trunc(f) {
		return 0
	}
	return int(f)
}

// decodeBox returns the four coordinates in raw, or nil unless raw is an
// array of exactly four numbers.
func decodeBox(raw json.RawMessage) []float64 {
	var vs []any
	if len(raw) == 0 || json.Unmarshal(raw, &vs) != nil || len(vs) != 4 {
		return nil
	}
	box := make([]float64, len(vs))
	for i, v := range vs {
		f, ok := number(v)
		if !ok {
			return nil
		}
		box[i] = f
	}
	return box
}

// number converts a decoded JSON number or numeric string.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// PageSize is the size of a page in PDF points.
type PageSize struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an axis-aligned rectangle in bottom-left-origin page space.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Top returns the y coordinate of the top edge.
func (r Rect) Top() float64 { return r.Y + r.Height }

// Overlaps reports whether r and o share interior area. Touching edges do not overlap.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.X+o.Width &&
		r.X+r.Width > o.X &&
		r.Y < o.Y+o.Height &&
		r.Y+r.Height > o.Y
}

// Contains reports whether o lies completely inside r.
func (r Rect) Contains(o Rect) bool {
	return o.X >= r.X && o.Right() <= r.Right() && o.Y >= r.Y && o.Top() <= r.Top()
}

func (r Rect) String() string {
	return fmt.Sprintf("(%.2f,%.2f %.2fx%.2f)", r.X, r.Y, r.Width, r.Height)
}

// TextRun is one positioned line of text. X and Y locate the baseline start.
type TextRun struct {
	Text     string  `json:"text"`
	FontSize float64 `json:"font_size"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
}

// Placement is the result of re-typesetting one accepted segment.
type Placement struct {
	Page     int       `json:"page"`
	Source   Rect      `json:"source"`
	Natural  Rect      `json:"natural"`
	Final    Rect      `json:"final"`
	Attempts int       `json:"attempts"`
	Degraded bool      `json:"degraded"`
	FontSize float64   `json:"font_size"`
	Overflow bool      `json:"overflow"`
	Lines    []TextRun `json:"lines"`
}

// SkipReason explains why a segment was not rendered.
type SkipReason string

const (
	SkipMissingPage     SkipReason = "missing_page"
	SkipMissingText     SkipReason = "missing_text"
	SkipMissingBox      SkipReason = "missing_box"
	SkipPageOutOfRange  SkipReason = "page_out_of_range"
	SkipPageNotSelected SkipReason = "page_not_selected"
)

// Outcome is either an accepted placement or a skip with its reason.
type Outcome struct {
	Segment   Segment    `json:"segment"`
	Accepted  bool       `json:"accepted"`
	Reason    SkipReason `json:"reason,omitempty"`
	Placement *Placement `json:"placement,omitempty"`
}

// Accepted builds an accepted outcome.
func Accepted(seg Segment, p *Placement) Outcome {
	return Outcome{Segment: seg, Accepted: true, Placement: p}
}

// Skipped builds a skipped outcome.
func Skipped(seg Segment, reason SkipReason) Outcome {
	return Outcome{Segment: seg, Reason: reason}
}

// validate returns the skip reason for a malformed segment, or "" when the
// segment can be rendered on a document with pageCount pages.
func (s Segment) validate(pageCount int) SkipReason {
	switch {
	case s.PageNumber <= 0:
		return SkipMissingPage
	case strings.TrimSpace(s.Text) == "":
		return SkipMissingText
	case len(s.Box) != 4:
		return SkipMissingBox
	case s.PageNumber > pageCount:
		return SkipPageOutOfRange
	}
	return ""
}
