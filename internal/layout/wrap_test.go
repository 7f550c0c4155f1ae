package layout

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxWidth float64
		want     []string
	}{
		{"empty text", "", 100, []string{Placeholder}},
		{"whitespace only", "  \t ", 100, []string{Placeholder}},
		{"single word", "hello", 100, []string{"hello"}},
		{"fits on one line", "hello there", 200, []string{"hello there"}},
		// 10 units per rune: "ab cd" measures 50 which is not < 50.
		{"strict comparison breaks at equality", "ab cd", 50, []string{"ab", "cd"}},
		{"greedy fill", "aa bb cc dd", 60, []string{"aa bb", "cc dd"}},
		{"long token stays whole", "a extraordinarily b", 40, []string{"a", "extraordinarily", "b"}},
		{"collapses whitespace", "  one   two\nthree ", 1000, []string{"one two three"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(tt.text, 20, tt.maxWidth, monoMeasurer)
			assert.Equal(t, tt.want, got)
		})
	}
}

func genWords() gopter.Gen {
	return gen.SliceOf(gen.AlphaString().SuchThat(func(s string) bool { return s != "" }))
}

func TestWrap_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("multi-token lines stay below max width", prop.ForAll(
		func(words []string, size, maxWidth float64) bool {
			for _, line := range Wrap(strings.Join(words, " "), size, maxWidth, monoMeasurer) {
				if len(strings.Fields(line)) > 1 && monoMeasurer.MeasureWidth(line, size) >= maxWidth {
					return false
				}
			}
			return true
		},
		genWords(),
		gen.Float64Range(4, 30),
		gen.Float64Range(1, 400),
	))

	properties.Property("lines reproduce the tokens in order", prop.ForAll(
		func(words []string, maxWidth float64) bool {
			text := strings.Join(words, "  ")
			lines := Wrap(text, 12, maxWidth, monoMeasurer)
			if len(words) == 0 {
				return len(lines) == 1 && lines[0] == Placeholder
			}
			return strings.Join(lines, " ") == strings.Join(strings.Fields(text), " ")
		},
		genWords(),
		gen.Float64Range(1, 400),
	))

	properties.Property("never empty", prop.ForAll(
		func(text string, maxWidth float64) bool {
			return len(Wrap(text, 10, maxWidth, monoMeasurer)) >= 1
		},
		gen.AnyString(),
		gen.Float64Range(0, 400),
	))

	properties.TestingRun(t)
}
