// Package translator finds speech bubbles in a PDF and translates them with a
// hosted multimodal model. The result is a list of layout segments with
// normalized boxes; nothing in this package draws.
package translator

import (
	"context"
	"errors"

	"github.com/MeKo-Tech/retype/internal/layout"
)

var (
	// ErrUpstream marks a failed or timed out model call.
	ErrUpstream = errors.New("translation service failed")
	// ErrInvalidResponse marks a model reply that could not be read as segments.
	ErrInvalidResponse = errors.New("translation service returned an invalid response")
)

// Document is the input handed to a provider.
type Document struct {
	Name string
	Data []byte
}

// Provider turns a document into translated segments.
type Provider interface {
	Translate(ctx context.Context, doc Document) ([]layout.Segment, error)
}

// ModelInfo describes a model usable for translation.
type ModelInfo struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name,omitempty"`
	Version     string   `json:"version,omitempty"`
	Methods     []string `json:"methods,omitempty"`
}

// ModelLister lists the models a provider can use.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// Static is a Provider that returns fixed segments. It backs the segments
// file and form field that bypass the model.
type Static []layout.Segment

// Translate returns a copy of the fixed segments.
func (s Static) Translate(ctx context.Context, _ Document) ([]layout.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]layout.Segment, len(s))
	copy(out, s)
	return out, nil
}
