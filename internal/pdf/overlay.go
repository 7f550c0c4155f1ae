package pdf

import (
	"bytes"
	"fmt"
	"io"

	"github.com/MeKo-Tech/retype/internal/font"
	"github.com/MeKo-Tech/retype/internal/layout"
	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"
)

// Overlay is a copy of a source document that accepts draw instructions.
// It implements layout.Drawer. Coordinates received from the layout package
// are bottom-left based and converted to gofpdf's top-left space here.
type Overlay struct {
	pdf   *gofpdf.Fpdf
	pages []layout.PageSize
	font  *font.Face
}

// NewOverlay imports every page of doc into a new PDF and registers face for text.
func NewOverlay(doc *Document, face *font.Face) (*Overlay, error) {
	if doc.PageCount() == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrInvalidPDF)
	}

	first := doc.Pages[0]
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: first.Width, Ht: first.Height},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.SetCompression(true)
	pdf.AddUTF8FontFromBytes(face.Name(), "", face.Data())

	importer := gofpdi.NewImporter()
	rs := io.ReadSeeker(bytes.NewReader(doc.Data))
	for i, page := range doc.Pages {
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: page.Width, Ht: page.Height})
		// Same box as Document.Pages; gofpdi falls back to the media box.
		tpl := importer.ImportPageFromStream(pdf, &rs, i+1, "/CropBox")
		importer.UseImportedTemplate(pdf, tpl, 0, 0, page.Width, page.Height)
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("import pages: %w", err)
	}

	return &Overlay{pdf: pdf, pages: doc.Pages, font: face}, nil
}

// DrawRectangle draws an opaque patch.
func (o *Overlay) DrawRectangle(page int, r layout.Rect, style layout.PatchStyle) error {
	height, err := o.selectPage(page)
	if err != nil {
		return err
	}

	o.pdf.SetAlpha(style.Opacity, "Normal")
	o.pdf.SetFillColor(int(style.Fill.R), int(style.Fill.G), int(style.Fill.B))
	drawStyle := "F"
	if style.BorderWidth > 0 {
		o.pdf.SetDrawColor(int(style.Border.R), int(style.Border.G), int(style.Border.B))
		o.pdf.SetLineWidth(style.BorderWidth)
		drawStyle = "FD"
	}
	o.pdf.Rect(r.X, height-r.Top(), r.Width, r.Height, drawStyle)
	o.pdf.SetAlpha(1, "Normal")

	return o.pdf.Error()
}

// DrawText draws one line with its baseline at run.X, run.Y.
func (o *Overlay) DrawText(page int, run layout.TextRun, style layout.TextStyle) error {
	height, err := o.selectPage(page)
	if err != nil {
		return err
	}

	o.pdf.SetFont(o.font.Name(), "", run.FontSize)
	o.pdf.SetTextColor(int(style.Color.R), int(style.Color.G), int(style.Color.B))
	o.pdf.Text(run.X, height-run.Y, font.VisualOrder(run.Text))

	return o.pdf.Error()
}

// WriteTo writes the finished PDF.
func (o *Overlay) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	if err := o.pdf.Output(&buf); err != nil {
		return 0, fmt.Errorf("write PDF: %w", err)
	}
	return buf.WriteTo(w)
}

// Bytes returns the finished PDF.
func (o *Overlay) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := o.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (o *Overlay) selectPage(page int) (float64, error) {
	if page < 1 || page > len(o.pages) {
		return 0, fmt.Errorf("page %d out of range 1-%d", page, len(o.pages))
	}
	o.pdf.SetPage(page)
	return o.pages[page-1].Height, nil
}
