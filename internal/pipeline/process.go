package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/retype/internal/layout"
	"github.com/MeKo-Tech/retype/internal/pdf"
	"github.com/MeKo-Tech/retype/internal/translator"
)

// Stage names a step of document processing.
type Stage string

const (
	StageValidate  Stage = "validating"
	StageTranslate Stage = "translating"
	StageTypeset   Stage = "typesetting"
	StageWrite     Stage = "writing"
)

// StageFunc receives stage changes with the overall progress in [0,1].
type StageFunc func(stage Stage, progress float64)

// Input is one document to process.
type Input struct {
	Name     string
	Data     []byte
	Pages    string // page range, e.g. "1-3,7"; empty selects all pages
	Password string
	// Segments bypass the translator when non-nil.
	Segments []layout.Segment
	OnStage  StageFunc
}

// Result is a processed document.
type Result struct {
	PDF          []byte               `json:"-"`
	Pages        []layout.PageSize    `json:"pages"`
	Segments     []layout.Segment     `json:"segments"`
	Outcomes     []layout.Outcome     `json:"outcomes"`
	Instructions []layout.Instruction `json:"instructions,omitempty"`
	Report       Report               `json:"report"`
}

// Report summarizes a processed document.
type Report struct {
	Filename      string       `json:"filename"`
	TotalPages    int          `json:"total_pages"`
	Encrypted     bool         `json:"encrypted"`
	Segments      int          `json:"segments"`
	Stats         layout.Stats `json:"stats"`
	MissingGlyphs []string     `json:"missing_glyphs,omitempty"`
	OutputBytes   int          `json:"output_bytes"`
	Processing    struct {
		ValidateNs  int64 `json:"validate_ns"`
		TranslateNs int64 `json:"translate_ns"`
		TypesetNs   int64 `json:"typeset_ns"`
		WriteNs     int64 `json:"write_ns"`
		TotalNs     int64 `json:"total_ns"`
	} `json:"processing"`
}

// StageDurations returns the per-stage durations of the report.
func (r Report) StageDurations() map[Stage]time.Duration {
	return map[Stage]time.Duration{
		StageValidate:  time.Duration(r.Processing.ValidateNs),
		StageTranslate: time.Duration(r.Processing.TranslateNs),
		StageTypeset:   time.Duration(r.Processing.TypesetNs),
		StageWrite:     time.Duration(r.Processing.WriteNs),
	}
}

// ProcessPDF validates the document, obtains segments, typesets them onto a
// copy and writes it. Malformed segments are skipped and reported; only
// document level failures return an error.
func (p *Pipeline) ProcessPDF(ctx context.Context, in Input) (*Result, error) {
	if p == nil || p.typesetter == nil {
		return nil, errors.New("pipeline not initialized")
	}

	notify := in.OnStage
	if notify == nil {
		notify = func(Stage, float64) {}
	}

	var report Report
	report.Filename = in.Name
	totalStart := time.Now()

	// Validate
	notify(StageValidate, 0)
	start := time.Now()
	selection, err := pdf.ParsePageRange(in.Pages)
	if err != nil {
		return nil, err
	}
	doc, err := pdf.Open(in.Name, in.Data, pdf.UserPassword(in.Password))
	if err != nil {
		return nil, err
	}
	report.TotalPages = doc.PageCount()
	report.Encrypted = doc.Encrypted
	report.Processing.ValidateNs = time.Since(start).Nanoseconds()

	// Translate
	notify(StageTranslate, 0.1)
	start = time.Now()
	segs, err := p.segments(ctx, in, doc)
	if err != nil {
		return nil, err
	}
	report.Segments = len(segs)
	report.Processing.TranslateNs = time.Since(start).Nanoseconds()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Typeset
	notify(StageTypeset, 0.7)
	start = time.Now()
	overlay, err := pdf.NewOverlay(doc, p.face)
	if err != nil {
		return nil, err
	}
	rec := &layout.Recorder{}
	session := p.typesetter.NewSession(doc.Pages, pdf.PageSelector(selection))
	outcomes, err := session.RenderAll(segs, layout.Tee{rec, overlay})
	if err != nil {
		return nil, fmt.Errorf("typeset %s: %w", in.Name, err)
	}
	report.Stats = layout.Summarize(outcomes)
	report.MissingGlyphs = p.missingGlyphs(outcomes)
	p.logOutcomes(in.Name, outcomes)
	report.Processing.TypesetNs = time.Since(start).Nanoseconds()

	// Write
	notify(StageWrite, 0.9)
	start = time.Now()
	out, err := overlay.Bytes()
	if err != nil {
		return nil, err
	}
	if p.cfg.Optimize {
		if out, err = pdf.Optimize(out); err != nil {
			return nil, err
		}
	}
	report.OutputBytes = len(out)
	report.Processing.WriteNs = time.Since(start).Nanoseconds()
	report.Processing.TotalNs = time.Since(totalStart).Nanoseconds()
	notify(StageWrite, 1)

	slog.Info("Document processed",
		"document", in.Name,
		"pages", report.TotalPages,
		"segments", report.Segments,
		"accepted", report.Stats.Accepted,
		"skipped", report.Stats.SkippedTotal(),
		"degraded", report.Stats.Degraded,
		"duration", time.Duration(report.Processing.TotalNs).Round(time.Millisecond))

	return &Result{
		PDF:          out,
		Pages:        doc.Pages,
		Segments:     segs,
		Outcomes:     outcomes,
		Instructions: rec.Instructions,
		Report:       report,
	}, nil
}

func (p *Pipeline) segments(ctx context.Context, in Input, doc *pdf.Document) ([]layout.Segment, error) {
	provider := p.translator
	if in.Segments != nil {
		provider = translator.Static(in.Segments)
	}
	if provider == nil {
		return nil, ErrNoTranslator
	}
	return provider.Translate(ctx, translator.Document{Name: in.Name, Data: doc.Data})
}

// missingGlyphs lists the distinct characters of accepted text that the font cannot draw.
func (p *Pipeline) missingGlyphs(outcomes []layout.Outcome) []string {
	seen := make(map[rune]bool)
	var out []string
	for _, o := range outcomes {
		if !o.Accepted {
			continue
		}
		for _, r := range p.face.Missing(o.Segment.Text) {
			if !seen[r] {
				seen[r] = true
				out = append(out, string(r))
			}
		}
	}
	return out
}

func (p *Pipeline) logOutcomes(name string, outcomes []layout.Outcome) {
	for i, o := range outcomes {
		switch {
		case !o.Accepted:
			slog.Debug("Segment skipped", "document", name, "index", i, "reason", o.Reason, "page", o.Segment.PageNumber)
		case o.Placement.Degraded:
			slog.Warn("Layout degraded", "document", name, "index", i, "page", o.Placement.Page,
				"attempts", o.Placement.Attempts, "rect", o.Placement.Final.String())
		case o.Placement.Overflow:
			slog.Warn("Text overflows patch", "document", name, "index", i, "page", o.Placement.Page,
				"font_size", o.Placement.FontSize)
		}
	}
}

// LayoutResult is the outcome of a dry run.
type LayoutResult struct {
	Outcomes     []layout.Outcome     `json:"outcomes"`
	Instructions []layout.Instruction `json:"instructions"`
	Stats        layout.Stats         `json:"stats"`
}

// Layout typesets segments onto pages of the given sizes without producing
// a PDF.
func (p *Pipeline) Layout(pages []layout.PageSize, segs []layout.Segment, pageRange string) (*LayoutResult, error) {
	if len(pages) == 0 {
		return nil, errors.New("at least one page size is required")
	}
	for i, pg := range pages {
		if pg.Width <= 0 || pg.Height <= 0 {
			return nil, fmt.Errorf("page %d has invalid size %.2fx%.2f", i+1, pg.Width, pg.Height)
		}
	}
	selection, err := pdf.ParsePageRange(pageRange)
	if err != nil {
		return nil, err
	}

	rec := &layout.Recorder{}
	session := p.typesetter.NewSession(pages, pdf.PageSelector(selection))
	outcomes, err := session.RenderAll(segs, rec)
	if err != nil {
		return nil, err
	}
	p.logOutcomes("dry-run", outcomes)

	return &LayoutResult{
		Outcomes:     outcomes,
		Instructions: rec.Instructions,
		Stats:        layout.Summarize(outcomes),
	}, nil
}
