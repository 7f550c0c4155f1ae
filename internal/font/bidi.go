package font

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/bidi"
)

// HasRTL reports whether text contains Arabic or Hebrew script.
func HasRTL(text string) bool {
	for _, r := range text {
		if unicode.In(r, unicode.Arabic, unicode.Hebrew) {
			return true
		}
	}
	return false
}

// VisualOrder reorders a single line from logical to visual order so that a
// left-to-right text operator renders right-to-left script correctly. Lines
// without right-to-left script are returned unchanged, as is the input when
// the bidi algorithm rejects it.
//
// The paragraph direction is right-to-left: runs are emitted last to first,
// right-to-left runs are mirrored and embedded left-to-right runs (digits,
// Latin words) keep their reading order.
func VisualOrder(line string) string {
	if !HasRTL(line) {
		return line
	}

	var p bidi.Paragraph
	if _, err := p.SetString(line, bidi.DefaultDirection(bidi.RightToLeft)); err != nil {
		return line
	}
	order, err := p.Order()
	if err != nil {
		return line
	}

	var b strings.Builder
	b.Grow(len(line))
	for i := order.NumRuns() - 1; i >= 0; i-- {
		run := order.Run(i)
		if run.Direction() == bidi.RightToLeft {
			b.WriteString(bidi.ReverseString(run.String()))
			continue
		}
		b.WriteString(run.String())
	}
	return b.String()
}
