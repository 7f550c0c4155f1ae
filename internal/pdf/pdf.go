// Package pdf reads source documents and writes translated copies.
//
// pdfcpu validates, decrypts and measures the source. The copy is produced by
// importing every source page as a template with gofpdi and drawing patches
// and text on top with gofpdf.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/retype/internal/layout"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	// ErrInvalidPDF marks input that pdfcpu cannot read or validate.
	ErrInvalidPDF = errors.New("invalid PDF")
	// ErrEncrypted marks a password protected PDF opened without the right password.
	ErrEncrypted = errors.New("PDF is password protected")
	// ErrInvalidPageRange marks a page selection that cannot be parsed.
	ErrInvalidPageRange = errors.New("invalid page range")
)

// Document is a validated, decrypted source PDF.
type Document struct {
	Name      string
	Data      []byte
	Pages     []layout.PageSize
	Encrypted bool
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.Pages) }

// Open validates data and reads its page sizes. Encrypted documents are
// decrypted with creds so that later stages work on plain bytes.
func Open(name string, data []byte, creds *PasswordCredentials) (*Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidPDF)
	}

	conf := newConfiguration(creds)
	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		if IsPasswordError(err) {
			return nil, fmt.Errorf("%w: %v", ErrEncrypted, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	doc := &Document{Name: name, Data: data}
	if ctx.Encrypt != nil {
		plain, err := Decrypt(data, creds)
		if err != nil {
			return nil, err
		}
		doc.Data = plain
		doc.Encrypted = true
		if ctx, err = api.ReadContext(bytes.NewReader(plain), newConfiguration(nil)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
		}
	}

	if err := api.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	boxes, err := ctx.PageBoundaries(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: read page sizes: %v", ErrInvalidPDF, err)
	}
	if len(boxes) == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrInvalidPDF)
	}

	doc.Pages = make([]layout.PageSize, len(boxes))
	for i, pb := range boxes {
		size, err := visibleSize(pb)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", ErrInvalidPDF, i+1, err)
		}
		doc.Pages[i] = size
	}
	return doc, nil
}

// visibleSize is the size of the crop box, the region viewers and the model
// see. It falls back to the media box and honors page rotation.
func visibleSize(pb model.PageBoundaries) (layout.PageSize, error) {
	box := pb.CropBox()
	if box == nil {
		return layout.PageSize{}, errors.New("no media box")
	}
	size := layout.PageSize{Width: box.Width(), Height: box.Height()}
	if pb.Rot%180 != 0 {
		size.Width, size.Height = size.Height, size.Width
	}
	return size, nil
}

// Optimize rewrites a PDF through pdfcpu's optimizer, dropping duplicate
// resources such as the font subsets embedded per page.
func Optimize(data []byte) ([]byte, error) {
	var out bytes.Buffer
	if err := api.Optimize(bytes.NewReader(data), &out, newConfiguration(nil)); err != nil {
		return nil, fmt.Errorf("optimize PDF: %w", err)
	}
	return out.Bytes(), nil
}

func newConfiguration(creds *PasswordCredentials) *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if creds != nil {
		conf.UserPW = creds.UserPassword
		conf.OwnerPW = creds.OwnerPassword
	}
	return conf
}

// ParsePageRange parses a page range string like "1-5" or "1,3,5".
// An empty string selects every page and returns nil.
func ParsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}

	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		part = strings.TrimSpace(part)
		tokenPages, err := parseRangeToken(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPageRange, err)
		}
		pages = append(pages, tokenPages...)
	}
	return pages, nil
}

// parseRangeToken parses either a single page token (e.g., "3") or a range token (e.g., "1-5").
func parseRangeToken(part string) ([]int, error) {
	if strings.Contains(part, "-") {
		rangeParts := strings.Split(part, "-")
		if len(rangeParts) != 2 {
			return nil, fmt.Errorf("invalid range format: %s", part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid start page: %s", rangeParts[0])
		}
		end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", rangeParts[1])
		}
		if start < 1 {
			return nil, fmt.Errorf("invalid start page: %d", start)
		}
		if start > end {
			return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
		}
		out := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			out = append(out, i)
		}
		return out, nil
	}
	page, err := strconv.Atoi(part)
	if err != nil || page < 1 {
		return nil, fmt.Errorf("invalid page number: %s", part)
	}
	return []int{page}, nil
}

// PageSelector turns a page list into a predicate. A nil or empty list selects
// every page and yields a nil predicate.
func PageSelector(pages []int) func(int) bool {
	if len(pages) == 0 {
		return nil
	}
	set := make(map[int]struct{}, len(pages))
	for _, p := range pages {
		set[p] = struct{}{}
	}
	return func(page int) bool {
		_, ok := set[page]
		return ok
	}
}
