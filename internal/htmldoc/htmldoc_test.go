package htmldoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ImagesInDocumentOrder(t *testing.T) {
	doc, err := NewParser().Parse(`<p>a<img src="one.png"></p><div><span><IMG SRC="two.png"></span></div><img alt="no src">`)
	require.NoError(t, err)

	images := doc.Images()
	require.Len(t, images, 3)

	src, ok := images[0].Src()
	assert.True(t, ok)
	assert.Equal(t, "one.png", src)

	src, ok = images[1].Src()
	assert.True(t, ok)
	assert.Equal(t, "two.png", src)

	_, ok = images[2].Src()
	assert.False(t, ok)
}

func TestRender_NoDocumentWrapper(t *testing.T) {
	doc, err := NewParser().Parse(`<h1>Title</h1><p>Body &amp; more</p>`)
	require.NoError(t, err)

	out, err := doc.Render()
	require.NoError(t, err)

	assert.Equal(t, `<h1>Title</h1><p>Body &amp; more</p>`, out)
	assert.NotContains(t, out, "<html>")
	assert.NotContains(t, out, "<body>")
}

func TestSetSrc(t *testing.T) {
	doc, err := NewParser().Parse(`<p><img src="a.png" alt="x"><img alt="y"></p>`)
	require.NoError(t, err)

	images := doc.Images()
	require.Len(t, images, 2)

	images[0].SetSrc("https://mmbiz.qpic.cn/1")
	images[1].SetSrc("https://mmbiz.qpic.cn/2")

	out, err := doc.Render()
	require.NoError(t, err)

	assert.Equal(t, `<p><img src="https://mmbiz.qpic.cn/1" alt="x"/><img alt="y" src="https://mmbiz.qpic.cn/2"/></p>`, out)
}

func TestParse_PlainText(t *testing.T) {
	doc, err := NewParser().Parse("just text")
	require.NoError(t, err)

	assert.Empty(t, doc.Images())

	out, err := doc.Render()
	require.NoError(t, err)
	assert.Equal(t, "just text", out)
}
