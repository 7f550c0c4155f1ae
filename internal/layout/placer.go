package layout

// DefaultMaxAttempts caps how often a patch is pushed down before residual
// overlap is accepted.
const DefaultMaxAttempts = 5

// PlaceParams configures collision resolution.
type PlaceParams struct {
	Margin      float64
	MaxAttempts int
}

// PlaceResult reports where a patch ended up.
type PlaceResult struct {
	Final    Rect
	Attempts int  // number of downward shifts applied
	Resolved bool // false when the attempt cap left an overlap in place
}

// Place moves candidate downward until it no longer overlaps any rectangle in
// placed, then appends the final rectangle to placed.
//
// Each time an overlap is found the candidate drops by the overlapping
// rectangle's height plus the margin and the scan restarts from the first
// placed rectangle. After MaxAttempts shifts the current position is kept even
// if an overlap remains.
func Place(candidate Rect, placed *[]Rect, p PlaceParams) PlaceResult {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	res := PlaceResult{Final: candidate, Resolved: true}
	for {
		hit, ok := firstOverlap(res.Final, *placed)
		if !ok {
			break
		}
		if res.Attempts >= maxAttempts {
			res.Resolved = false
			break
		}
		res.Final.Y -= hit.Height + p.Margin
		res.Attempts++
	}

	*placed = append(*placed, res.Final)
	return res
}

func firstOverlap(r Rect, placed []Rect) (Rect, bool) {
	for _, o := range placed {
		if r.Overlaps(o) {
			return o, true
		}
	}
	return Rect{}, false
}
