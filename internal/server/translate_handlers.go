package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/retype/internal/layout"
	"github.com/MeKo-Tech/retype/internal/pipeline"
	"github.com/MeKo-Tech/retype/internal/translator"
)

// errNoFile is returned when the multipart form has no "file" part.
var errNoFile = errors.New("no file uploaded")

// translateHandler accepts a PDF upload and answers with the translated PDF.
func (s *Server) translateHandler(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)
	w.Header().Set(headerRequestID, reqID)

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	in, err := s.parseTranslateRequest(w, r)
	if err != nil {
		translateRequestsTotal.WithLabelValues("http", "rejected").Inc()
		s.writeErrorResponse(w, reqID, err.Error(), statusForError(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	res, err := s.pipeline.ProcessPDF(ctx, in)
	if err != nil {
		translateRequestsTotal.WithLabelValues("http", "error").Inc()
		slog.Error("Translation failed", "request_id", reqID, "document", in.Name, "error", err)
		s.writeErrorResponse(w, reqID, err.Error(), statusForError(err))
		return
	}
	translateRequestsTotal.WithLabelValues("http", "success").Inc()
	observeResult(res)

	stats := res.Report.Stats
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": s.outputFilename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.PDF)))
	w.Header().Set(headerSegmentsAccepted, strconv.Itoa(stats.Accepted))
	w.Header().Set(headerSegmentsSkipped, strconv.Itoa(stats.SkippedTotal()))
	w.Header().Set(headerLayoutDegraded, strconv.Itoa(stats.Degraded))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.PDF); err != nil {
		slog.Error("Failed to write PDF response", "request_id", reqID, "error", err)
	}
}

// parseTranslateRequest reads the multipart upload into a pipeline input.
func (s *Server) parseTranslateRequest(w http.ResponseWriter, r *http.Request) (pipeline.Input, error) {
	limit := s.maxUploadMB << 20
	// Form fields ride along with the file; leave room for them.
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			return pipeline.Input{}, fmt.Errorf("file too large (max %d MB): %w", s.maxUploadMB, &http.MaxBytesError{Limit: limit})
		}
		return pipeline.Input{}, fmt.Errorf("%w: failed to parse form data: %v", errBadRequest, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return pipeline.Input{}, fmt.Errorf("%w: %w", errBadRequest, errNoFile)
	}
	defer func() { _ = file.Close() }()

	if header.Size > limit {
		return pipeline.Input{}, fmt.Errorf("file too large (max %d MB): %w", s.maxUploadMB, &http.MaxBytesError{Limit: limit})
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return pipeline.Input{}, fmt.Errorf("failed to read upload: %w", err)
	}
	uploadSizeBytes.Observe(float64(len(data)))

	in := pipeline.Input{
		Name:     header.Filename,
		Data:     data,
		Pages:    strings.TrimSpace(r.FormValue("pages")),
		Password: r.FormValue("password"),
	}
	if raw := strings.TrimSpace(r.FormValue("segments")); raw != "" {
		segs, err := translator.ParseSegments(raw)
		if err != nil {
			return pipeline.Input{}, fmt.Errorf("%w: invalid segments: %v", errBadRequest, err)
		}
		if segs == nil {
			segs = []layout.Segment{}
		}
		in.Segments = segs
	}
	return in, nil
}
