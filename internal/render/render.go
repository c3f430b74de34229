// Package render converts article bodies to the HTML sent to the platform.
package render

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"wxdraft/internal/config"
)

// Renderer turns a Markdown (or HTML) body into article HTML.
type Renderer struct {
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

// New builds a renderer. With Markdown off the body is treated as HTML
// already; with Sanitize on the output passes a UGC policy.
func New(cfg config.RenderConfig) *Renderer {
	r := &Renderer{}

	if cfg.Markdown {
		// Bodies may embed raw HTML.
		r.markdown = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		)
	}

	if cfg.Sanitize {
		r.policy = bluemonday.UGCPolicy()
	}

	return r
}

// Render returns the HTML for body.
func (r *Renderer) Render(body string) (string, error) {
	out := body

	if r.markdown != nil {
		var buf bytes.Buffer
		if err := r.markdown.Convert([]byte(body), &buf); err != nil {
			return "", fmt.Errorf("markdown render: %w", err)
		}

		out = buf.String()
	}

	if r.policy != nil {
		out = r.policy.Sanitize(out)
	}

	return out, nil
}
