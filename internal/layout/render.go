package layout

import (
	"fmt"
	"image/color"
	"math"
)

// Align selects how a text block sits inside its patch.
type Align string

const (
	AlignCenter Align = "center"
	AlignTop    Align = "top"
)

// PatchStyle describes the opaque cover rectangle.
type PatchStyle struct {
	Fill        color.RGBA
	Border      color.RGBA
	BorderWidth float64
	Opacity     float64
}

// TextStyle describes translated text runs. The font itself belongs to the Drawer.
type TextStyle struct {
	Color color.RGBA
}

// Drawer receives draw instructions. Pages are 1-based.
type Drawer interface {
	DrawRectangle(page int, r Rect, style PatchStyle) error
	DrawText(page int, run TextRun, style TextStyle) error
}

// Config holds the typesetting constants.
type Config struct {
	StartFontSize float64
	MinFontSize   float64
	FontStep      float64
	LineHeight    float64
	Tolerance     float64

	// PatchPadding grows the mapped box on every side.
	PatchPadding float64
	// TextInset keeps text away from the patch border.
	TextInset     float64
	MinPatchWidth float64
	// PatchDrop moves the natural patch below the source box.
	PatchDrop float64

	CollisionMargin float64
	MaxAttempts     int
	VerticalAlign   Align

	Patch PatchStyle
	Text  TextStyle
}

// DefaultConfig returns the constants used by the service.
func DefaultConfig() Config {
	return Config{
		StartFontSize:   14,
		MinFontSize:     6,
		FontStep:        0.5,
		LineHeight:      1.4,
		Tolerance:       2,
		PatchPadding:    6,
		TextInset:       4,
		MinPatchWidth:   110,
		PatchDrop:       5,
		CollisionMargin: 4,
		MaxAttempts:     DefaultMaxAttempts,
		VerticalAlign:   AlignCenter,
		Patch: PatchStyle{
			Fill:        color.RGBA{R: 255, G: 255, B: 255, A: 255},
			Border:      color.RGBA{A: 255},
			BorderWidth: 1.5,
			Opacity:     0.95,
		},
		Text: TextStyle{Color: color.RGBA{A: 255}},
	}
}

// Typesetter lays out segments with a fixed configuration and font metrics.
// It is safe for concurrent use when the Measurer is.
type Typesetter struct {
	cfg     Config
	measure Measurer
}

// NewTypesetter creates a Typesetter.
func NewTypesetter(cfg Config, m Measurer) *Typesetter {
	return &Typesetter{cfg: cfg, measure: m}
}

// Config returns the typesetter configuration.
func (t *Typesetter) Config() Config { return t.cfg }

// NewSession starts typesetting one document. selected may be nil to accept
// every page.
func (t *Typesetter) NewSession(pages []PageSize, selected func(page int) bool) *Session {
	return &Session{
		t:        t,
		pages:    pages,
		selected: selected,
		placed:   make(map[int][]Rect),
	}
}

// Session carries the placed patches of one document. It is not safe for
// concurrent use and is discarded once the document is written.
type Session struct {
	t        *Typesetter
	pages    []PageSize
	selected func(page int) bool
	placed   map[int][]Rect
	outcomes []Outcome
}

// Render typesets one segment and draws it. Malformed segments are skipped
// and reported in the outcome. Only drawer failures return an error.
func (s *Session) Render(seg Segment, d Drawer) (Outcome, error) {
	if reason := seg.validate(len(s.pages)); reason != "" {
		return s.record(Skipped(seg, reason)), nil
	}
	if s.selected != nil && !s.selected(seg.PageNumber) {
		return s.record(Skipped(seg, SkipPageNotSelected)), nil
	}

	page := s.pages[seg.PageNumber-1]
	p := s.layout(seg, page)

	if err := d.DrawRectangle(seg.PageNumber, p.Final, s.t.cfg.Patch); err != nil {
		return Outcome{}, fmt.Errorf("draw patch on page %d: %w", seg.PageNumber, err)
	}
	for _, run := range p.Lines {
		if err := d.DrawText(seg.PageNumber, run, s.t.cfg.Text); err != nil {
			return Outcome{}, fmt.Errorf("draw text on page %d: %w", seg.PageNumber, err)
		}
	}
	return s.record(Accepted(seg, p)), nil
}

// RenderAll renders segments in order and returns their outcomes.
func (s *Session) RenderAll(segs []Segment, d Drawer) ([]Outcome, error) {
	out := make([]Outcome, 0, len(segs))
	for _, seg := range segs {
		o, err := s.Render(seg, d)
		if err != nil {
			return out, err
		}
		out = append(out, o)
	}
	return out, nil
}

// Outcomes returns every outcome recorded so far, in render order.
func (s *Session) Outcomes() []Outcome { return s.outcomes }

// Placed returns the final patches on a page.
func (s *Session) Placed(page int) []Rect { return s.placed[page] }

func (s *Session) record(o Outcome) Outcome {
	s.outcomes = append(s.outcomes, o)
	return o
}

func (s *Session) layout(seg Segment, page PageSize) *Placement {
	cfg := s.t.cfg
	source := MapBox(NormalizeBox(seg.Box), page)
	natural := s.naturalPatch(source, page)

	placed := s.placed[seg.PageNumber]
	res := Place(natural, &placed, PlaceParams{Margin: cfg.CollisionMargin, MaxAttempts: cfg.MaxAttempts})
	s.placed[seg.PageNumber] = placed

	final := res.Final
	fit := Fit(seg.Text, FitParams{
		StartSize:  cfg.StartFontSize,
		MinSize:    cfg.MinFontSize,
		Step:       cfg.FontStep,
		LineHeight: cfg.LineHeight,
		MaxWidth:   final.Width - 2*cfg.TextInset,
		MaxHeight:  final.Height - 2*cfg.TextInset,
		Tolerance:  cfg.Tolerance,
	}, s.t.measure)

	return &Placement{
		Page:     seg.PageNumber,
		Source:   source,
		Natural:  natural,
		Final:    final,
		Attempts: res.Attempts,
		Degraded: !res.Resolved,
		FontSize: fit.FontSize,
		Overflow: fit.Overflow,
		Lines:    s.runs(fit, final),
	}
}

// naturalPatch applies the padded-overlay policy: the source box grown by the
// padding, widened to the minimum width, tall enough for one line at the
// minimum size, kept inside the page horizontally and dropped slightly below
// the source.
func (s *Session) naturalPatch(src Rect, page PageSize) Rect {
	cfg := s.t.cfg
	pad := cfg.PatchPadding

	r := Rect{
		X:      src.X - pad,
		Y:      src.Y - pad,
		Width:  math.Max(src.Width, 0) + 2*pad,
		Height: math.Max(src.Height, 0) + 2*pad,
	}

	if r.Width < cfg.MinPatchWidth {
		extra := cfg.MinPatchWidth - r.Width
		r.X -= extra / 2
		r.Width = cfg.MinPatchWidth
	}

	minHeight := BlockHeight(1, cfg.MinFontSize, cfg.LineHeight) + 2*cfg.TextInset
	if r.Height < minHeight {
		top := r.Top()
		r.Height = minHeight
		r.Y = top - minHeight
	}

	if r.Right() > page.Width {
		r.X = page.Width - r.Width
	}
	if r.X < 0 {
		r.X = 0
	}

	r.Y -= cfg.PatchDrop
	return r
}

func (s *Session) runs(fit FitResult, rect Rect) []TextRun {
	cfg := s.t.cfg
	lineBox := fit.FontSize * cfg.LineHeight
	block := BlockHeight(len(fit.Lines), fit.FontSize, cfg.LineHeight)

	blockTop := rect.Y + rect.Height/2 + block/2
	if cfg.VerticalAlign == AlignTop {
		blockTop = rect.Top() - cfg.TextInset
	}

	runs := make([]TextRun, 0, len(fit.Lines))
	for i, line := range fit.Lines {
		width := s.t.measure.MeasureWidth(line, fit.FontSize)
		lineTop := blockTop - float64(i)*lineBox
		runs = append(runs, TextRun{
			Text:     line,
			FontSize: fit.FontSize,
			X:        rect.X + (rect.Width-width)/2,
			Y:        lineTop - (lineBox+fit.FontSize)/2,
			Width:    width,
		})
	}
	return runs
}

// Stats summarizes the outcomes of a session.
type Stats struct {
	Accepted int                `json:"accepted"`
	Skipped  map[SkipReason]int `json:"skipped"`
	Degraded int                `json:"degraded"`
	Overflow int                `json:"overflow"`
}

// SkippedTotal returns the number of skipped segments.
func (st Stats) SkippedTotal() int {
	n := 0
	for _, c := range st.Skipped {
		n += c
	}
	return n
}

// Summarize counts outcomes.
func Summarize(outcomes []Outcome) Stats {
	st := Stats{Skipped: make(map[SkipReason]int)}
	for _, o := range outcomes {
		if !o.Accepted {
			st.Skipped[o.Reason]++
			continue
		}
		st.Accepted++
		if o.Placement.Degraded {
			st.Degraded++
		}
		if o.Placement.Overflow {
			st.Overflow++
		}
	}
	return st
}
