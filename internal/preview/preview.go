// Package preview renders debug images of a typeset document: for each page
// the source box, the natural patch and the final patch of every accepted
// segment, plus the text lines as laid out.
package preview

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/retype/internal/font"
	"github.com/MeKo-Tech/retype/internal/layout"
	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/ridge/must/v2"
)

// Palette colors, as hex.
var (
	colorBackground = must.OK1(colorful.Hex("#fafafa"))
	colorSource     = must.OK1(colorful.Hex("#1565c0"))
	colorNatural    = must.OK1(colorful.Hex("#9e9e9e"))
	colorFinal      = must.OK1(colorful.Hex("#2e7d32"))
	colorDegraded   = must.OK1(colorful.Hex("#c62828"))
	colorText       = must.OK1(colorful.Hex("#212121"))
)

// Options controls preview rendering.
type Options struct {
	// Scale converts PDF points to pixels. Zero means 1.
	Scale float64
	// MaxWidth downsizes wider images, keeping the aspect ratio. Zero disables it.
	MaxWidth int
	// Face draws the text lines. Nil draws baselines only.
	Face *font.Face
}

// Render draws one page. page is 1-based and selects which outcomes are drawn.
func Render(size layout.PageSize, page int, outcomes []layout.Outcome, opts Options) (image.Image, error) {
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("invalid page size %.1fx%.1f", size.Width, size.Height)
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}

	w, h := int(size.Width*scale+0.5), int(size.Height*scale+0.5)
	dc := gg.NewContext(w, h)
	dc.SetColor(colorBackground)
	dc.Clear()

	// PDF space is y-up; images are y-down.
	toImage := func(r layout.Rect) (x, y, rw, rh float64) {
		return r.X * scale, (size.Height - r.Top()) * scale, r.Width * scale, r.Height * scale
	}

	for _, o := range outcomes {
		if !o.Accepted || o.Placement == nil || o.Placement.Page != page {
			continue
		}
		p := o.Placement

		dc.SetLineWidth(1)
		dc.SetDash(4, 3)
		dc.SetColor(colorSource)
		dc.DrawRectangle(toImage(p.Source))
		dc.Stroke()

		dc.SetColor(colorNatural)
		dc.DrawRectangle(toImage(p.Natural))
		dc.Stroke()
		dc.SetDash()

		final := colorFinal
		if p.Degraded {
			final = colorDegraded
		}
		dc.SetRGBA(final.R, final.G, final.B, 0.15)
		dc.DrawRectangle(toImage(p.Final))
		dc.Fill()
		dc.SetColor(final)
		dc.SetLineWidth(2)
		dc.DrawRectangle(toImage(p.Final))
		dc.Stroke()

		drawLines(dc, p.Lines, size.Height, scale, opts.Face)
	}

	img := dc.Image()
	if opts.MaxWidth > 0 && w > opts.MaxWidth {
		img = imaging.Resize(img, opts.MaxWidth, 0, imaging.Lanczos)
	}
	return img, nil
}

func drawLines(dc *gg.Context, lines []layout.TextRun, pageHeight, scale float64, face *font.Face) {
	dc.SetColor(colorText)
	for _, run := range lines {
		x, y := run.X*scale, (pageHeight-run.Y)*scale
		if face == nil || run.FontSize <= 0 {
			dc.SetLineWidth(1)
			dc.DrawLine(x, y, x+run.Width*scale, y)
			dc.Stroke()
			continue
		}
		dc.SetFontFace(truetype.NewFace(face.TrueType(), &truetype.Options{Size: run.FontSize * scale}))
		dc.DrawString(font.VisualOrder(run.Text), x, y)
	}
}

// WritePages renders every page that has at least one accepted outcome and
// saves it as dir/page-NNN.png. It returns the written paths.
func WritePages(dir string, pages []layout.PageSize, outcomes []layout.Outcome, opts Options) ([]string, error) {
	if len(pages) == 0 {
		return nil, errors.New("no pages to preview")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create preview directory: %w", err)
	}

	used := make(map[int]bool)
	for _, o := range outcomes {
		if o.Accepted && o.Placement != nil {
			used[o.Placement.Page] = true
		}
	}

	var paths []string
	for i, size := range pages {
		page := i + 1
		if !used[page] {
			continue
		}
		img, err := Render(size, page, outcomes, opts)
		if err != nil {
			return paths, fmt.Errorf("page %d: %w", page, err)
		}
		path := filepath.Join(dir, fmt.Sprintf("page-%03d.png", page))
		if err := imaging.Save(img, path); err != nil {
			return paths, fmt.Errorf("save %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
