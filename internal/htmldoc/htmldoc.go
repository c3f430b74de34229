// Package htmldoc parses article HTML fragments, exposes their images for
// rewriting and renders the fragment back.
package htmldoc

import (
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var imgSelector = cascadia.MustCompile("img")

// Parser turns an HTML fragment into a Document.
type Parser interface {
	Parse(fragment string) (Document, error)
}

// Document is a parsed fragment.
type Document interface {
	// Images returns the img elements in document order.
	Images() []Image
	// Render serializes the fragment without any html/head/body wrapper.
	Render() (string, error)
}

// Image is one img element.
type Image interface {
	// Src returns the src attribute and whether it is present.
	Src() (string, bool)
	SetSrc(src string)
}

// Ensure the net/html types implement the interfaces.
var (
	_ Parser   = NetHTMLParser{}
	_ Document = (*netDocument)(nil)
	_ Image    = (*netImage)(nil)
)

// NetHTMLParser parses with golang.org/x/net/html as body content.
type NetHTMLParser struct{}

// NewParser returns the default parser.
func NewParser() Parser {
	return NetHTMLParser{}
}

// Parse parses fragment in a body context.
func (NetHTMLParser) Parse(fragment string) (Document, error) {
	context := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}

	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	root := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	return &netDocument{root: root}, nil
}

type netDocument struct {
	root *html.Node
}

func (d *netDocument) Images() []Image {
	nodes := cascadia.QueryAll(d.root, imgSelector)

	images := make([]Image, 0, len(nodes))
	for _, n := range nodes {
		images = append(images, &netImage{node: n})
	}

	return images
}

func (d *netDocument) Render() (string, error) {
	var sb strings.Builder

	for n := d.root.FirstChild; n != nil; n = n.NextSibling {
		if err := html.Render(&sb, n); err != nil {
			return "", fmt.Errorf("failed to render html: %w", err)
		}
	}

	return sb.String(), nil
}

type netImage struct {
	node *html.Node
}

func (i *netImage) Src() (string, bool) {
	for _, attr := range i.node.Attr {
		if attr.Namespace == "" && strings.EqualFold(attr.Key, "src") {
			return attr.Val, true
		}
	}

	return "", false
}

func (i *netImage) SetSrc(src string) {
	for idx, attr := range i.node.Attr {
		if attr.Namespace == "" && strings.EqualFold(attr.Key, "src") {
			i.node.Attr[idx].Val = src
			return
		}
	}

	i.node.Attr = append(i.node.Attr, html.Attribute{Key: "src", Val: src})
}
