package layout

import (
	"math"
	"testing"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

// monoMeasurer gives every rune half the font size in advance width.
var monoMeasurer = MeasurerFunc(func(text string, size float64) float64 {
	return float64(utf8.RuneCountInString(text)) * size * 0.5
})

func TestMapBox(t *testing.T) {
	tests := []struct {
		name string
		box  [4]float64
		page PageSize
		want Rect
	}{
		{
			name: "full page",
			box:  [4]float64{0, 0, 1000, 1000},
			page: PageSize{Width: 600, Height: 800},
			want: Rect{X: 0, Y: 0, Width: 600, Height: 800},
		},
		{
			name: "top left quarter",
			box:  [4]float64{0, 0, 500, 500},
			page: PageSize{Width: 600, Height: 800},
			want: Rect{X: 0, Y: 400, Width: 300, Height: 400},
		},
		{
			name: "a4 bubble",
			box:  [4]float64{100, 100, 200, 400},
			page: PageSize{Width: 595, Height: 842},
			want: Rect{X: 59.5, Y: 673.6, Width: 178.5, Height: 84.2},
		},
		{
			name: "inverted x gives negative width",
			box:  [4]float64{100, 400, 200, 100},
			page: PageSize{Width: 1000, Height: 1000},
			want: Rect{X: 400, Y: 800, Width: -300, Height: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapBox(tt.box, tt.page)
			assert.InDelta(t, tt.want.X, got.X, 1e-9)
			assert.InDelta(t, tt.want.Y, got.Y, 1e-9)
			assert.InDelta(t, tt.want.Width, got.Width, 1e-9)
			assert.InDelta(t, tt.want.Height, got.Height, 1e-9)
		})
	}
}

func TestMapBox_EdgesScaleWithPage(t *testing.T) {
	properties := gopter.NewProperties(nil)

	coord := gen.Float64Range(0, NormalizedScale)
	dim := gen.Float64Range(1, 5000)

	properties.Property("right and top edges follow xMax and 1000-yMin", prop.ForAll(
		func(yMin, xMin, yMax, xMax, w, h float64) bool {
			r := MapBox([4]float64{yMin, xMin, yMax, xMax}, PageSize{Width: w, Height: h})
			right := xMax / NormalizedScale * w
			top := (NormalizedScale - yMin) / NormalizedScale * h
			return math.Abs(r.Right()-right) < 1e-6 && math.Abs(r.Top()-top) < 1e-6
		},
		coord, coord, coord, coord, dim, dim,
	))

	properties.TestingRun(t)
}

func TestNormalizeBox(t *testing.T) {
	got := NormalizeBox([]float64{-20, 50, 1200, 999.5})
	assert.Equal(t, [4]float64{0, 50, 1000, 999.5}, got)
}

func TestRectOverlaps(t *testing.T) {
	base := Rect{X: 0, Y: 0, Width: 10, Height: 10}

	tests := []struct {
		name  string
		other Rect
		want  bool
	}{
		{"identical", base, true},
		{"partial", Rect{X: 5, Y: 5, Width: 10, Height: 10}, true},
		{"contained", Rect{X: 2, Y: 2, Width: 2, Height: 2}, true},
		{"touching right edge", Rect{X: 10, Y: 0, Width: 5, Height: 10}, false},
		{"touching top edge", Rect{X: 0, Y: 10, Width: 10, Height: 5}, false},
		{"disjoint", Rect{X: 20, Y: 20, Width: 1, Height: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base), "overlap must be symmetric")
		})
	}
}
