package layout

import "strings"

// Measurer reports the advance width of text set in the document font.
type Measurer interface {
	MeasureWidth(text string, fontSize float64) float64
}

// MeasurerFunc adapts a function to the Measurer interface.
type MeasurerFunc func(text string, fontSize float64) float64

// MeasureWidth calls f.
func (f MeasurerFunc) MeasureWidth(text string, fontSize float64) float64 {
	return f(text, fontSize)
}

// Wrap breaks text into lines no wider than maxWidth using greedy line fill.
//
// A token is appended to the current line only while the measured width stays
// strictly below maxWidth. A token that is wider than maxWidth on its own is
// never split and ends up alone on an overflowing line. Empty text yields the
// single Placeholder line, so the result always has at least one line.
func Wrap(text string, fontSize, maxWidth float64, m Measurer) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{Placeholder}
	}

	lines := make([]string, 0, 4)
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if m.MeasureWidth(candidate, fontSize) < maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	return append(lines, current)
}
