package richtext

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
)

// Document is a draft imported from a markdown file with front matter.
type Document struct {
	Title       string
	Slug        string
	Status      string
	Category    string
	Tags        []string
	Cover       string
	Excerpt     string
	PublishedAt *time.Time
	Extra       map[string]any
	Markdown    []byte
	HTML        string
}

type frontMatterEnvelope struct {
	Title       string         `yaml:"title"`
	Slug        string         `yaml:"slug"`
	Status      string         `yaml:"status"`
	Category    string         `yaml:"category"`
	Tags        []string       `yaml:"tags"`
	Cover       string         `yaml:"cover"`
	Excerpt     string         `yaml:"excerpt"`
	PublishedAt time.Time      `yaml:"published_at"`
	Custom      map[string]any `yaml:",inline"`
}

// ParseDocument splits front matter from the markdown body and renders the
// body to HTML with renderer. A nil renderer uses the defaults.
func ParseDocument(source []byte, renderer *Renderer) (*Document, error) {
	var meta frontMatterEnvelope
	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return nil, fmt.Errorf("richtext: parse front matter: %w", err)
	}
	if renderer == nil {
		renderer = NewRenderer()
	}
	rendered, err := renderer.HTML(body)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Title:    strings.TrimSpace(meta.Title),
		Slug:     strings.TrimSpace(meta.Slug),
		Status:   strings.TrimSpace(meta.Status),
		Category: strings.TrimSpace(meta.Category),
		Tags:     append([]string(nil), meta.Tags...),
		Cover:    strings.TrimSpace(meta.Cover),
		Excerpt:  strings.TrimSpace(meta.Excerpt),
		Extra:    cloneMap(meta.Custom),
		Markdown: body,
		HTML:     rendered,
	}
	if !meta.PublishedAt.IsZero() {
		at := meta.PublishedAt.UTC()
		doc.PublishedAt = &at
	}
	return doc, nil
}

func cloneMap(input map[string]any) map[string]any {
	out := make(map[string]any, len(input))
	for key, value := range input {
		out[key] = value
	}
	return out
}
