package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/MeKo-Tech/retype/internal/layout"
	"github.com/MeKo-Tech/retype/internal/pdf"
	"github.com/MeKo-Tech/retype/internal/pipeline"
	"github.com/MeKo-Tech/retype/internal/translator"
	"github.com/MeKo-Tech/retype/internal/version"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// ModelsResponse is the body of GET /api/models.
type ModelsResponse struct {
	Models []translator.ModelInfo `json:"models"`
	Count  int                    `json:"count"`
}

// modelsHandler lists the translation models usable for content generation.
func (s *Server) modelsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.models == nil {
		s.writeErrorResponse(w, "", "Model listing is not available", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	models, err := s.models.ListModels(ctx)
	if err != nil {
		s.writeErrorResponse(w, "", err.Error(), statusForError(err))
		return
	}
	writeJSON(w, http.StatusOK, ModelsResponse{Models: models, Count: len(models)})
}

// LayoutRequest is the body of POST /api/layout.
type LayoutRequest struct {
	Pages    []layout.PageSize `json:"pages"`
	Segments []layout.Segment  `json:"segments"`
	Range    string            `json:"range,omitempty"`
}

// LayoutResponse is the dry-run result.
type LayoutResponse struct {
	Success bool `json:"success"`
	*pipeline.LayoutResult
}

// layoutHandler typesets segments onto page sizes without a PDF.
func (s *Server) layoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadMB<<20)
	var req LayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErrorResponse(w, "", "Invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.pipeline.Layout(req.Pages, req.Segments, req.Range)
	if err != nil {
		s.writeErrorResponse(w, "", err.Error(), http.StatusBadRequest)
		return
	}
	for _, o := range res.Outcomes {
		observeOutcome(o)
	}
	writeJSON(w, http.StatusOK, LayoutResponse{Success: true, LayoutResult: res})
}

// errBadRequest marks malformed client input.
var errBadRequest = errors.New("bad request")

// statusForError maps pipeline failures to HTTP status codes.
func statusForError(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errBadRequest),
		errors.Is(err, pdf.ErrInvalidPDF),
		errors.Is(err, pdf.ErrEncrypted),
		errors.Is(err, pdf.ErrInvalidPageRange):
		return http.StatusBadRequest
	case errors.Is(err, translator.ErrUpstream),
		errors.Is(err, translator.ErrInvalidResponse),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway
	case errors.Is(err, pipeline.ErrNoTranslator):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
