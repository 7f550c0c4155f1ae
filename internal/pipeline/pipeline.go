// Package pipeline runs one document through validation, translation,
// typesetting and writing.
package pipeline

import (
	"errors"

	"github.com/MeKo-Tech/retype/internal/font"
	"github.com/MeKo-Tech/retype/internal/layout"
	"github.com/MeKo-Tech/retype/internal/translator"
)

// ErrNoTranslator is returned when a document needs translating but the
// pipeline was built without a provider.
var ErrNoTranslator = errors.New("no translator configured")

// Config holds configuration for the pipeline.
type Config struct {
	Layout   layout.Config
	Optimize bool // rewrite output through the PDF optimizer

	// Parallel processing configuration
	Parallel ParallelConfig
}

// DefaultConfig returns a default pipeline config with component defaults.
func DefaultConfig() Config {
	return Config{
		Layout:   layout.DefaultConfig(),
		Parallel: DefaultParallelConfig(),
	}
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg        Config
	face       *font.Face
	translator translator.Provider
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// WithLayout sets the typesetting constants.
func (b *Builder) WithLayout(cfg layout.Config) *Builder {
	b.cfg.Layout = cfg
	return b
}

// WithFace sets the font used for measuring and drawing.
func (b *Builder) WithFace(face *font.Face) *Builder {
	b.face = face
	return b
}

// WithTranslator sets the provider used when a request carries no segments.
func (b *Builder) WithTranslator(p translator.Provider) *Builder {
	b.translator = p
	return b
}

// WithOptimize toggles output optimization.
func (b *Builder) WithOptimize(on bool) *Builder {
	b.cfg.Optimize = on
	return b
}

// WithWorkers sets the number of documents processed at once by ProcessPDFsParallel.
func (b *Builder) WithWorkers(n int) *Builder {
	if n > 0 {
		b.cfg.Parallel.MaxWorkers = n
	}
	return b
}

// Config returns the current builder configuration.
func (b *Builder) Config() Config { return b.cfg }

// Build creates the pipeline. Without a face the bundled fallback is used.
func (b *Builder) Build() (*Pipeline, error) {
	if b.cfg.Layout.StartFontSize <= 0 || b.cfg.Layout.LineHeight <= 0 {
		return nil, errors.New("invalid layout configuration")
	}
	face := b.face
	if face == nil {
		face = font.Fallback()
	}
	return &Pipeline{
		cfg:        b.cfg,
		face:       face,
		typesetter: layout.NewTypesetter(b.cfg.Layout, face),
		translator: b.translator,
	}, nil
}

// Pipeline processes documents. It is safe for concurrent use; every
// document gets its own layout session.
type Pipeline struct {
	cfg        Config
	face       *font.Face
	typesetter *layout.Typesetter
	translator translator.Provider
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Face returns the font in use.
func (p *Pipeline) Face() *font.Face { return p.face }

// Translator returns the configured provider, which may be nil.
func (p *Pipeline) Translator() translator.Provider { return p.translator }

// Close releases the translator when it holds resources.
func (p *Pipeline) Close() error {
	if c, ok := p.translator.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
