package translator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MeKo-Tech/retype/internal/layout"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Defaults for GeminiConfig.
const (
	DefaultModel      = "gemini-2.5-flash"
	DefaultTimeout    = 5 * time.Minute
	DefaultMaxRetries = 2
	DefaultRetryDelay = 2 * time.Second

	pdfMIMEType  = "application/pdf"
	jsonMIMEType = "application/json"
	// generateContentMethod is the capability a model needs to be usable.
	generateContentMethod = "generateContent"
)

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	APIKey         string
	Model          string
	TargetLanguage string
	ToneRules      []string
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
}

// DefaultGeminiConfig returns the defaults used when a field is left empty.
func DefaultGeminiConfig() GeminiConfig {
	return GeminiConfig{
		Model:          DefaultModel,
		TargetLanguage: DefaultTargetLanguage,
		ToneRules:      DefaultToneRules,
		Timeout:        DefaultTimeout,
		MaxRetries:     DefaultMaxRetries,
		RetryDelay:     DefaultRetryDelay,
	}
}

func (c GeminiConfig) withDefaults() GeminiConfig {
	d := DefaultGeminiConfig()
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.TargetLanguage == "" {
		c.TargetLanguage = d.TargetLanguage
	}
	if c.ToneRules == nil {
		c.ToneRules = d.ToneRules
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = d.RetryDelay
	}
	return c
}

type generateFunc func(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)

// Gemini is a Provider and ModelLister backed by the Gemini API.
type Gemini struct {
	client   *genai.Client
	cfg      GeminiConfig
	prompt   string
	generate generateFunc
}

// NewGemini creates a client for cfg. Close releases it.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini API key is required (set GEMINI_API_KEY)")
	}
	cfg = cfg.withDefaults()

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.ResponseMIMEType = jsonMIMEType

	g := newGemini(cfg, model.GenerateContent)
	g.client = client
	return g, nil
}

func newGemini(cfg GeminiConfig, generate generateFunc) *Gemini {
	cfg = cfg.withDefaults()
	return &Gemini{
		cfg:      cfg,
		prompt:   BuildPrompt(cfg.TargetLanguage, cfg.ToneRules),
		generate: generate,
	}
}

// Model returns the configured model name.
func (g *Gemini) Model() string { return g.cfg.Model }

// Close releases the underlying client.
func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Translate sends the PDF inline with the prompt and parses the reply. Failed
// calls and unreadable replies are retried with a constant delay.
func (g *Gemini) Translate(ctx context.Context, doc Document) ([]layout.Segment, error) {
	if len(doc.Data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrUpstream)
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	attempt := 0
	op := func() ([]layout.Segment, error) {
		attempt++
		resp, err := g.generate(ctx, genai.Blob{MIMEType: pdfMIMEType, Data: doc.Data}, genai.Text(g.prompt))
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(fmt.Errorf("%w: %v", ErrUpstream, ctx.Err()))
			}
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		return ParseSegments(responseText(resp))
	}
	notify := func(err error, wait time.Duration) {
		slog.Warn("Translation attempt failed", "document", doc.Name, "attempt", attempt, "retry_in", wait, "error", err)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(g.cfg.RetryDelay), uint64(g.cfg.MaxRetries)), ctx)
	segs, err := backoff.RetryNotifyWithData(op, policy, notify)
	if err != nil {
		if errors.Is(err, ErrInvalidResponse) || errors.Is(err, ErrUpstream) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	slog.Info("Translation completed", "document", doc.Name, "model", g.cfg.Model, "segments", len(segs), "attempts", attempt)
	return segs, nil
}

// ListModels returns the models that support content generation.
func (g *Gemini) ListModels(ctx context.Context) ([]ModelInfo, error) {
	if g.client == nil {
		return nil, fmt.Errorf("%w: no client", ErrUpstream)
	}

	var all []*genai.ModelInfo
	it := g.client.ListModels(ctx)
	for {
		m, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: list models: %v", ErrUpstream, err)
		}
		all = append(all, m)
	}
	return filterModels(all), nil
}

func filterModels(models []*genai.ModelInfo) []ModelInfo {
	var out []ModelInfo
	for _, m := range models {
		if m == nil || !supports(m.SupportedGenerationMethods, generateContentMethod) {
			continue
		}
		out = append(out, ModelInfo{
			Name:        strings.TrimPrefix(m.Name, "models/"),
			DisplayName: m.DisplayName,
			Version:     m.Version,
			Methods:     m.SupportedGenerationMethods,
		})
	}
	return out
}

func supports(methods []string, method string) bool {
	for _, m := range methods {
		if m == method {
			return true
		}
	}
	return false
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}
