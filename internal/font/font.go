// Package font loads the TrueType font embedded into translated PDFs and
// measures text set in it.
package font

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/golang/freetype/truetype"
	"github.com/ridge/must/v2"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// FallbackName is the family name of the built-in fallback font.
const FallbackName = "goregular"

// ErrNoFont is returned when a font file holds no usable data.
var ErrNoFont = errors.New("font: empty font data")

// Face is a parsed TrueType font with a per-size face cache. Sizes are in
// points and widths are returned in points, so measurements match PDF units.
type Face struct {
	name string
	data []byte
	ttf  *truetype.Font

	mu    sync.Mutex
	faces map[float64]xfont.Face
}

// Load reads and parses a TrueType font file.
func Load(path string) (*Face, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: font path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(name, data)
}

// Parse parses TrueType font data.
func Parse(name string, data []byte) (*Face, error) {
	if len(data) == 0 {
		return nil, ErrNoFont
	}
	ttf, err := truetype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", name, err)
	}
	return &Face{name: name, data: data, ttf: ttf, faces: make(map[float64]xfont.Face)}, nil
}

// Fallback returns the Go Regular font. It has no Arabic script glyphs and is
// meant for tests and Latin-script targets.
func Fallback() *Face {
	return must.OK1(Parse(FallbackName, goregular.TTF))
}

// LoadOrFallback loads path, or returns the fallback font when path is empty.
func LoadOrFallback(path string) (*Face, error) {
	if path == "" {
		return Fallback(), nil
	}
	return Load(path)
}

// Name returns the family name used when embedding the font.
func (f *Face) Name() string { return f.name }

// Data returns the raw font file.
func (f *Face) Data() []byte { return f.data }

// MeasureWidth returns the advance width of text at size points.
func (f *Face) MeasureWidth(text string, size float64) float64 {
	if text == "" || size <= 0 {
		return 0
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	adv := xfont.MeasureString(f.face(size), text)
	return float64(adv) / 64
}

// TrueType returns the parsed font for callers that rasterize with it.
func (f *Face) TrueType() *truetype.Font { return f.ttf }

// Missing returns the distinct runes of text that the font has no glyph for.
// Whitespace and control characters are ignored.
func (f *Face) Missing(text string) []rune {
	var missing []rune
	seen := make(map[rune]bool)
	for _, r := range text {
		if unicode.IsSpace(r) || unicode.IsControl(r) || seen[r] {
			continue
		}
		seen[r] = true
		if f.ttf.Index(r) == 0 {
			missing = append(missing, r)
		}
	}
	return missing
}

// face returns the cached face for size. Callers hold f.mu since truetype
// faces keep a glyph cache of their own.
func (f *Face) face(size float64) xfont.Face {
	if face, ok := f.faces[size]; ok {
		return face
	}
	face := truetype.NewFace(f.ttf, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: xfont.HintingNone,
	})
	f.faces[size] = face
	return face
}
