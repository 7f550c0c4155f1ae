package translator

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MeKo-Tech/retype/internal/layout"
	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoSegments = `[
 {"page_number": 1, "text": "سلام", "box_2d": [100, 100, 200, 400]},
 {"page_number": 2, "text": "بریم", "box_2d": [500, 550, 580, 900]}
]`

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(text)}},
		}},
	}
}

func testConfig() GeminiConfig {
	return GeminiConfig{MaxRetries: 2, RetryDelay: time.Millisecond, Timeout: time.Second}
}

func TestParseSegments(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int
		wantErr bool
	}{
		{name: "bare array", in: twoSegments, want: 2},
		{name: "fenced", in: "```json\n" + twoSegments + "\n```", want: 2},
		{name: "fence without info", in: "```\n[]\n```", want: 0},
		{name: "wrapped", in: `{"segments": ` + twoSegments + `}`, want: 2},
		{name: "empty array", in: "[]", want: 0},
		{name: "empty", in: "  ", wantErr: true},
		{name: "prose", in: "I found two bubbles", wantErr: true},
		{name: "object without segments", in: `{"bubbles": []}`, wantErr: true},
		{name: "broken json", in: `[{"page_number": 1,`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs, err := ParseSegments(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidResponse)
				return
			}
			require.NoError(t, err)
			assert.Len(t, segs, tt.want)
		})
	}
}

func TestParseSegments_Fields(t *testing.T) {
	segs, err := ParseSegments(twoSegments)
	require.NoError(t, err)
	require.Len(t, segs, 2)

	assert.Equal(t, layout.Segment{PageNumber: 1, Text: "سلام", Box: []float64{100, 100, 200, 400}}, segs[0])
	assert.Equal(t, 2, segs[1].PageNumber)
}

func TestParseSegments_MalformedEntries(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []layout.Segment
	}{
		{
			name: "page number as string",
			in:   `[{"page_number": 1, "text": "a", "box_2d": [1, 2, 3, 4]}, {"page_number": "2", "text": "b", "box_2d": [1, 2, 3, 4]}]`,
			want: []layout.Segment{
				{PageNumber: 1, Text: "a", Box: []float64{1, 2, 3, 4}},
				{PageNumber: 2, Text: "b", Box: []float64{1, 2, 3, 4}},
			},
		},
		{
			name: "page number as float",
			in:   `[{"page_number": 2.0, "text": "b", "box_2d": [1, 2, 3, 4]}]`,
			want: []layout.Segment{{PageNumber: 2, Text: "b", Box: []float64{1, 2, 3, 4}}},
		},
		{
			name: "numeric text",
			in:   `[{"page_number": 1, "text": 5, "box_2d": [1, 2, 3, 4]}]`,
			want: []layout.Segment{{PageNumber: 1, Box: []float64{1, 2, 3, 4}}},
		},
		{
			name: "null in box",
			in:   `[{"page_number": 1, "text": "a", "box_2d": [1, null, 3, 4]}]`,
			want: []layout.Segment{{PageNumber: 1, Text: "a"}},
		},
		{
			name: "wrapped with a bad entry",
			in:   `{"segments": [{"page_number": 1, "text": "a", "box_2d": [1, 2, 3, 4]}, 17]}`,
			want: []layout.Segment{{PageNumber: 1, Text: "a", Box: []float64{1, 2, 3, 4}}, {}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs, err := ParseSegments(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, segs)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("", DefaultToneRules)
	assert.Contains(t, p, "speech bubbles")
	assert.Contains(t, p, `"box_2d"`)
	assert.Contains(t, p, DefaultTargetLanguage)
	assert.Contains(t, p, "- Keep it polite but natural.")

	p = BuildPrompt("German", nil)
	assert.Contains(t, p, "The German translation")
	assert.NotContains(t, p, "RULES")
}

func TestGemini_Translate(t *testing.T) {
	var gotParts []genai.Part
	g := newGemini(testConfig(), func(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
		gotParts = parts
		return textResponse(twoSegments), nil
	})

	segs, err := g.Translate(context.Background(), Document{Name: "a.pdf", Data: []byte("%PDF-1.4")})
	require.NoError(t, err)
	assert.Len(t, segs, 2)

	require.Len(t, gotParts, 2)
	blob, ok := gotParts[0].(genai.Blob)
	require.True(t, ok)
	assert.Equal(t, "application/pdf", blob.MIMEType)
	prompt, ok := gotParts[1].(genai.Text)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(string(prompt), "Analyze this whole PDF"))
}

func TestGemini_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	g := newGemini(testConfig(), func(context.Context, ...genai.Part) (*genai.GenerateContentResponse, error) {
		switch calls.Add(1) {
		case 1:
			return nil, errors.New("503 unavailable")
		case 2:
			return textResponse("not json"), nil
		default:
			return textResponse(twoSegments), nil
		}
	})

	segs, err := g.Translate(context.Background(), Document{Data: []byte("x")})
	require.NoError(t, err)
	assert.Len(t, segs, 2)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGemini_Failures(t *testing.T) {
	t.Run("upstream", func(t *testing.T) {
		var calls atomic.Int32
		g := newGemini(testConfig(), func(context.Context, ...genai.Part) (*genai.GenerateContentResponse, error) {
			calls.Add(1)
			return nil, errors.New("quota")
		})
		_, err := g.Translate(context.Background(), Document{Data: []byte("x")})
		require.ErrorIs(t, err, ErrUpstream)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("invalid response", func(t *testing.T) {
		g := newGemini(testConfig(), func(context.Context, ...genai.Part) (*genai.GenerateContentResponse, error) {
			return &genai.GenerateContentResponse{}, nil
		})
		_, err := g.Translate(context.Background(), Document{Data: []byte("x")})
		require.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("empty document", func(t *testing.T) {
		g := newGemini(testConfig(), nil)
		_, err := g.Translate(context.Background(), Document{})
		require.ErrorIs(t, err, ErrUpstream)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		g := newGemini(testConfig(), func(ctx context.Context, _ ...genai.Part) (*genai.GenerateContentResponse, error) {
			return nil, ctx.Err()
		})
		_, err := g.Translate(ctx, Document{Data: []byte("x")})
		require.ErrorIs(t, err, ErrUpstream)
	})
}

func TestNewGemini_RequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), GeminiConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestFilterModels(t *testing.T) {
	models := []*genai.ModelInfo{
		{Name: "models/gemini-2.5-flash", DisplayName: "Gemini 2.5 Flash", Version: "001",
			SupportedGenerationMethods: []string{"generateContent", "countTokens"}},
		{Name: "models/text-embedding-004", SupportedGenerationMethods: []string{"embedContent"}},
		nil,
	}

	got := filterModels(models)
	require.Len(t, got, 1)
	assert.Equal(t, "gemini-2.5-flash", got[0].Name)
	assert.Equal(t, "001", got[0].Version)
}

func TestGeminiConfig_Defaults(t *testing.T) {
	g := newGemini(GeminiConfig{MaxRetries: -1}, nil)
	assert.Equal(t, DefaultModel, g.Model())
	assert.Equal(t, 0, g.cfg.MaxRetries)
	assert.Equal(t, DefaultTimeout, g.cfg.Timeout)
	assert.NoError(t, g.Close())
}

func TestStatic(t *testing.T) {
	src := Static{{PageNumber: 1, Text: "a", Box: []float64{0, 0, 1, 1}}}
	segs, err := src.Translate(context.Background(), Document{})
	require.NoError(t, err)
	require.Len(t, segs, 1)

	segs[0].Text = "changed"
	assert.Equal(t, "a", src[0].Text)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Translate(ctx, Document{})
	require.ErrorIs(t, err, context.Canceled)
}
