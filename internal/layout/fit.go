package layout

// FitParams bounds the font-size search.
type FitParams struct {
	StartSize  float64 // S0
	MinSize    float64 // floor, accepted even when the text still overflows
	Step       float64 // decrement between attempts
	LineHeight float64 // multiplier applied to the font size per line
	MaxWidth   float64 // wrap width
	MaxHeight  float64 // target block height
	Tolerance  float64 // slack added to MaxHeight
}

// FitResult is the chosen size and its wrapping.
type FitResult struct {
	FontSize   float64
	Lines      []string
	TextHeight float64
	Attempts   int
	Overflow   bool
}

// BlockHeight returns the height of n lines at size with line-height multiplier k.
func BlockHeight(n int, size, k float64) float64 {
	return float64(n) * size * k
}

// Fit picks the largest size S0 - n*Step whose wrapped block fits into
// MaxHeight+Tolerance. When the floor is reached it is accepted as is and
// Overflow reports whether the block is still too tall. Fit never fails.
func Fit(text string, p FitParams, m Measurer) FitResult {
	floor := p.MinSize
	if floor > p.StartSize {
		floor = p.StartSize
	}
	limit := p.MaxHeight + p.Tolerance

	res := FitResult{}
	for n := 0; ; n++ {
		size := p.StartSize - float64(n)*p.Step
		if p.Step <= 0 && n > 0 {
			size = floor
		}
		atFloor := size <= floor
		if atFloor {
			size = floor
		}

		lines := Wrap(text, size, p.MaxWidth, m)
		height := BlockHeight(len(lines), size, p.LineHeight)
		res = FitResult{FontSize: size, Lines: lines, TextHeight: height, Attempts: n + 1}

		if height <= limit {
			return res
		}
		if atFloor {
			res.Overflow = true
			return res
		}
	}
}
