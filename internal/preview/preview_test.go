package preview

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/retype/internal/font"
	"github.com/MeKo-Tech/retype/internal/layout"
	"github.com/MeKo-Tech/retype/internal/testutil"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeset(t *testing.T, pages []layout.PageSize) []layout.Outcome {
	t.Helper()
	face := font.Fallback()
	session := layout.NewTypesetter(layout.DefaultConfig(), face).NewSession(pages, nil)
	outs, err := session.RenderAll(testutil.SampleSegments(), &layout.Recorder{})
	require.NoError(t, err)
	return outs
}

func TestRender(t *testing.T) {
	pages := []layout.PageSize{testutil.A4, testutil.A4}
	outs := typeset(t, pages)

	img, err := Render(pages[0], 1, outs, Options{Scale: 0.5, Face: font.Fallback()})
	require.NoError(t, err)
	assert.Equal(t, 298, img.Bounds().Dx())
	assert.Equal(t, 421, img.Bounds().Dy())

	// Just inside the final patch's top-left corner the fill is tinted.
	p := outs[0].Placement
	require.NotNil(t, p)
	cx := int(p.Final.X*0.5) + 3
	cy := int((testutil.A4.Height-p.Final.Top())*0.5) + 3
	r, g, b, _ := img.At(cx, cy).RGBA()
	assert.False(t, r == g && g == b, "expected tinted pixel inside the patch")
}

func TestRender_MaxWidthAndBaselines(t *testing.T) {
	pages := []layout.PageSize{testutil.A4, testutil.A4}
	img, err := Render(pages[1], 2, typeset(t, pages), Options{MaxWidth: 200})
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
}

func TestRender_InvalidSize(t *testing.T) {
	_, err := Render(layout.PageSize{}, 1, nil, Options{})
	require.Error(t, err)
}

func TestWritePages(t *testing.T) {
	pages := []layout.PageSize{testutil.A4, testutil.A4, testutil.A4}
	dir := filepath.Join(t.TempDir(), "preview")

	paths, err := WritePages(dir, pages, typeset(t, pages), Options{Scale: 0.25})
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "page-001.png"),
		filepath.Join(dir, "page-002.png"),
	}, paths)

	for _, p := range paths {
		_, err := os.Stat(p)
		require.NoError(t, err)
		img, err := imaging.Open(p)
		require.NoError(t, err)
		assert.Equal(t, 149, img.Bounds().Dx())
	}

	_, err = WritePages(dir, nil, nil, Options{})
	require.Error(t, err)
}
