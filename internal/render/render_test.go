package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wxdraft/internal/config"
)

func TestRender_Markdown(t *testing.T) {
	r := New(config.RenderConfig{Markdown: true})

	out, err := r.Render("# Title\n\nSome *text* with ![pic](local.png)\n")
	require.NoError(t, err)

	assert.Contains(t, out, "<h1>Title</h1>")
	assert.Contains(t, out, "<em>text</em>")
	assert.Contains(t, out, `<img src="local.png" alt="pic">`)
}

func TestRender_MarkdownKeepsRawHTML(t *testing.T) {
	r := New(config.RenderConfig{Markdown: true})

	out, err := r.Render("<p><img src=\"a.jpg\"></p>\n\n~~gone~~\n")
	require.NoError(t, err)

	assert.Contains(t, out, `<img src="a.jpg">`)
	assert.Contains(t, out, "<del>gone</del>")
}

func TestRender_Passthrough(t *testing.T) {
	r := New(config.RenderConfig{})

	body := "<p>already *html*</p>"

	out, err := r.Render(body)
	require.NoError(t, err)
	assert.Equal(t, body, out)
}

func TestRender_Sanitize(t *testing.T) {
	r := New(config.RenderConfig{Markdown: true, Sanitize: true})

	out, err := r.Render("hello <script>alert(1)</script>\n\n![x](https://example.com/a.png)\n")
	require.NoError(t, err)

	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, `src="https://example.com/a.png"`)
}
