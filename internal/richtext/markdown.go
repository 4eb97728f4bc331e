package richtext

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
)

// Renderer converts markdown bodies into the HTML the editor works with.
// It is stateless and safe for concurrent use.
type Renderer struct {
	engine goldmark.Markdown
}

// RendererOption configures a Renderer.
type RendererOption func(*rendererConfig)

type rendererConfig struct {
	hardWraps bool
	unsafe    bool
}

// WithHardWraps renders single newlines as line breaks.
func WithHardWraps() RendererOption {
	return func(cfg *rendererConfig) {
		cfg.hardWraps = true
	}
}

// WithRawHTML keeps raw HTML embedded in markdown sources.
func WithRawHTML() RendererOption {
	return func(cfg *rendererConfig) {
		cfg.unsafe = true
	}
}

// NewRenderer builds a goldmark renderer with GFM, linkify and task lists.
func NewRenderer(opts ...RendererOption) *Renderer {
	cfg := rendererConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	engineOptions := []goldmark.Option{
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.TaskList),
	}

	rendererOptions := []renderer.Option{}
	if cfg.hardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}
	if cfg.unsafe {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}
	if len(rendererOptions) > 0 {
		engineOptions = append(engineOptions, goldmark.WithRendererOptions(rendererOptions...))
	}

	return &Renderer{engine: goldmark.New(engineOptions...)}
}

// HTML renders markdown into HTML.
func (r *Renderer) HTML(markdown []byte) (string, error) {
	var buf bytes.Buffer
	if err := r.engine.Convert(markdown, &buf); err != nil {
		return "", fmt.Errorf("richtext: render markdown: %w", err)
	}
	return buf.String(), nil
}
