package layout

// MapBox converts a normalized y-down box (yMin, xMin, yMax, xMax) into an
// absolute rectangle in the page's y-up space. The rectangle is positioned by
// its bottom-left corner. Malformed boxes are not corrected: xMax <= xMin gives
// a non-positive width.
func MapBox(box [4]float64, page PageSize) Rect {
	yMin, xMin, yMax, xMax := box[0], box[1], box[2], box[3]
	return Rect{
		X:      xMin / NormalizedScale * page.Width,
		Y:      page.Height - yMax/NormalizedScale*page.Height,
		Width:  (xMax - xMin) / NormalizedScale * page.Width,
		Height: (yMax - yMin) / NormalizedScale * page.Height,
	}
}

// NormalizeBox copies a box slice into a fixed array, clamping every
// coordinate to [0, NormalizedScale]. It expects len(box) == 4.
func NormalizeBox(box []float64) [4]float64 {
	var out [4]float64
	for i := range out {
		out[i] = clamp(box[i], 0, NormalizedScale)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
