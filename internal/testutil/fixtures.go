package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/MeKo-Tech/retype/internal/layout"
	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/require"
)

// A4 is the page size used by most fixtures.
var A4 = layout.PageSize{Width: 595, Height: 842}

// SamplePDF builds a PDF with one labelled page per size.
func SamplePDF(t *testing.T, pages ...layout.PageSize) []byte {
	t.Helper()

	data, err := BuildPDF(pages...)
	require.NoError(t, err)
	return data
}

// BuildPDF builds a PDF with one labelled page per size. With no sizes it
// builds a single A4 page.
func BuildPDF(pages ...layout.PageSize) ([]byte, error) {
	if len(pages) == 0 {
		pages = []layout.PageSize{A4}
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pages[0].Width, Ht: pages[0].Height},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Helvetica", "", 18)
	for i, p := range pages {
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: p.Width, Ht: p.Height})
		pdf.Text(40, 80, fmt.Sprintf("Page %d", i+1))
		pdf.Rect(40, 100, p.Width/3, 60, "D")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("build sample PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// EncryptedPDF returns SamplePDF encrypted with the given user password.
func EncryptedPDF(t *testing.T, userPassword string, pages ...layout.PageSize) []byte {
	t.Helper()

	data, err := EncryptPDF(SamplePDF(t, pages...), userPassword)
	require.NoError(t, err)
	return data
}

// EncryptPDF encrypts data with userPassword. The owner password is derived
// from it.
func EncryptPDF(data []byte, userPassword string) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.UserPW = userPassword
	conf.OwnerPW = userPassword + "-owner"

	var out bytes.Buffer
	if err := api.Encrypt(bytes.NewReader(data), &out, conf); err != nil {
		return nil, fmt.Errorf("encrypt sample PDF: %w", err)
	}
	return out.Bytes(), nil
}

// SampleSegments returns segments for a document of at least two pages.
func SampleSegments() []layout.Segment {
	return []layout.Segment{
		{PageNumber: 1, Text: "Hello there friend", Box: []float64{100, 100, 200, 400}},
		{PageNumber: 1, Text: "Where are you going?", Box: []float64{100, 100, 200, 400}},
		{PageNumber: 2, Text: "Wait for me", Box: []float64{500, 550, 580, 900}},
		{PageNumber: 7, Text: "nowhere", Box: []float64{0, 0, 10, 10}},
	}
}

// SegmentsJSON marshals segments the way the model returns them.
func SegmentsJSON(t *testing.T, segs []layout.Segment) []byte {
	t.Helper()

	data, err := json.Marshal(segs)
	require.NoError(t, err)
	return data
}

// CropPDF sets the crop box of every page to box, given in PDF array
// notation such as "[50 100 450 700]".
func CropPDF(t *testing.T, data []byte, box string) []byte {
	t.Helper()

	b, err := model.ParseBox(box, types.POINTS)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, api.Crop(bytes.NewReader(data), &out, nil, b, model.NewDefaultConfiguration()))
	return out.Bytes()
}
