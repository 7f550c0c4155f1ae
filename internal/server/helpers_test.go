package server

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/MeKo-Tech/retype/internal/layout"
	"github.com/MeKo-Tech/retype/internal/pipeline"
	"github.com/MeKo-Tech/retype/internal/testutil"
	"github.com/MeKo-Tech/retype/internal/translator"
	"github.com/stretchr/testify/require"
)

// fakeTranslator returns fixed segments and can list models.
type fakeTranslator struct {
	segs      []layout.Segment
	err       error
	models    []translator.ModelInfo
	modelsErr error

	mu    sync.Mutex
	calls int
}

func (f *fakeTranslator) Translate(_ context.Context, _ translator.Document) ([]layout.Segment, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.segs, f.err
}

func (f *fakeTranslator) ListModels(context.Context) ([]translator.ModelInfo, error) {
	return f.models, f.modelsErr
}

func (f *fakeTranslator) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// newTestServer builds a server around a pipeline using p, which may be nil.
func newTestServer(t *testing.T, p translator.Provider, cfg Config) *Server {
	t.Helper()
	pl, err := pipeline.NewBuilder().WithTranslator(p).Build()
	require.NoError(t, err)
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	s, err := NewServer(cfg, pl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func twoPagePDF(t *testing.T) []byte {
	t.Helper()
	return testutil.SamplePDF(t, testutil.A4, testutil.A4)
}

// createTranslateRequest builds a multipart POST for /api/translate.
// A nil file omits the file part.
func createTranslateRequest(t *testing.T, filename string, file []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if file != nil {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/translate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
