package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MeKo-Tech/retype/internal/layout"
	"github.com/MeKo-Tech/retype/internal/pdf"
	"github.com/MeKo-Tech/retype/internal/pipeline"
	"github.com/MeKo-Tech/retype/internal/testutil"
	"github.com/MeKo-Tech/retype/internal/translator"
	"github.com/MeKo-Tech/retype/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	_, err := NewServer(Config{}, nil)
	require.Error(t, err)

	pl, err := pipeline.NewBuilder().Build()
	require.NoError(t, err)
	_, err = NewServer(Config{Port: 70000}, pl)
	require.Error(t, err)

	s, err := NewServer(Config{Port: 5000}, pl)
	require.NoError(t, err)
	assert.Equal(t, DefaultOutputFilename, s.outputFilename)
	assert.Equal(t, int64(50), s.maxUploadMB)
	assert.Nil(t, s.rateLimiter)
	assert.Nil(t, s.models)

	withModels := newTestServer(t, &fakeTranslator{}, Config{RateLimit: RateLimitConfig{Enabled: true}})
	assert.NotNil(t, withModels.models)
	assert.NotNil(t, withModels.rateLimiter)
}

func TestServer_HealthHandler(t *testing.T) {
	server := &Server{}

	tests := []struct {
		name           string
		method         string
		expectedStatus int
	}{
		{"GET request success", http.MethodGet, http.StatusOK},
		{"POST request not allowed", http.MethodPost, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/health", nil)
			w := httptest.NewRecorder()

			server.healthHandler(w, req)
			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedStatus == http.StatusOK {
				var response HealthResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
				assert.Equal(t, "healthy", response.Status)
				assert.Equal(t, version.Version, response.Version)
				assert.NotEmpty(t, response.Time)
				assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			}
		})
	}
}

func TestServer_ModelsHandler(t *testing.T) {
	models := []translator.ModelInfo{{Name: "gemini-2.5-flash", Methods: []string{"generateContent"}}}

	tests := []struct {
		name           string
		server         *Server
		expectedStatus int
		expectedCount  int
	}{
		{"no lister", &Server{}, http.StatusServiceUnavailable, 0},
		{"lists models", &Server{models: &fakeTranslator{models: models}}, http.StatusOK, 1},
		{
			"upstream failure",
			&Server{models: &fakeTranslator{modelsErr: fmt.Errorf("%w: boom", translator.ErrUpstream)}},
			http.StatusBadGateway, 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.server.modelsHandler(w, httptest.NewRequest(http.MethodGet, "/api/models", nil))
			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedStatus == http.StatusOK {
				var resp ModelsResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.expectedCount, resp.Count)
				assert.Equal(t, models, resp.Models)
			} else {
				var resp ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.False(t, resp.Success)
				assert.NotEmpty(t, resp.Error)
			}
		})
	}

	w := httptest.NewRecorder()
	(&Server{}).modelsHandler(w, httptest.NewRequest(http.MethodPost, "/api/models", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_LayoutHandler(t *testing.T) {
	s := newTestServer(t, nil, Config{})

	body, err := json.Marshal(LayoutRequest{
		Pages:    []layout.PageSize{testutil.A4, testutil.A4},
		Segments: testutil.SampleSegments(),
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	s.layoutHandler(w, httptest.NewRequest(http.MethodPost, "/api/layout", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success      bool                 `json:"success"`
		Outcomes     []layout.Outcome     `json:"outcomes"`
		Instructions []layout.Instruction `json:"instructions"`
		Stats        layout.Stats         `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Len(t, resp.Outcomes, 4)
	assert.Equal(t, 3, resp.Stats.Accepted)
	assert.Equal(t, layout.SkipPageOutOfRange, resp.Outcomes[3].Reason)
	assert.NotEmpty(t, resp.Instructions)

	tests := []struct {
		name   string
		method string
		body   string
		status int
	}{
		{"invalid json", http.MethodPost, "{", http.StatusBadRequest},
		{"no pages", http.MethodPost, `{"segments":[]}`, http.StatusBadRequest},
		{"bad range", http.MethodPost, `{"pages":[{"width":10,"height":10}],"range":"z"}`, http.StatusBadRequest},
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			s.layoutHandler(w, httptest.NewRequest(tt.method, "/api/layout", strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{fmt.Errorf("wrap: %w", errBadRequest), http.StatusBadRequest},
		{fmt.Errorf("%w: x", pdf.ErrInvalidPDF), http.StatusBadRequest},
		{pdf.ErrEncrypted, http.StatusBadRequest},
		{fmt.Errorf("%w: x", pdf.ErrInvalidPageRange), http.StatusBadRequest},
		{fmt.Errorf("%w: x", translator.ErrUpstream), http.StatusBadGateway},
		{translator.ErrInvalidResponse, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusBadGateway},
		{pipeline.ErrNoTranslator, http.StatusServiceUnavailable},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}

func TestServer_Routes(t *testing.T) {
	s := newTestServer(t, nil, Config{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, buf.String(), "retype_http_requests_total")
}

func TestServer_Run(t *testing.T) {
	pl, err := pipeline.NewBuilder().Build()
	require.NoError(t, err)
	s, err := NewServer(Config{Host: "127.0.0.1", Port: 0, ShutdownTimeout: 1}, pl)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()
	require.NoError(t, <-done)
}
