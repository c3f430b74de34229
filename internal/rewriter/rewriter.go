// Package rewriter uploads the images embedded in article HTML and points
// their src attributes at the uploaded copies.
package rewriter

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"wxdraft/internal/htmldoc"
	"wxdraft/internal/logger"
	"wxdraft/internal/models"
)

// maxConcurrentUploads bounds the inline uploads in flight for one article.
const maxConcurrentUploads = 5

// ImageUploader uploads one image reference.
type ImageUploader interface {
	UploadImage(ctx context.Context, source, token, filename string) (models.UploadedMedia, error)
}

// Result is the rewritten HTML plus the cover fallback candidate.
type Result struct {
	HTML string
	// FirstImageID is the first resolved reference in document order: a media
	// id for uploaded images, the unchanged src for hosted ones.
	FirstImageID string
	Uploaded     int
}

// Rewriter rewrites image sources in article HTML.
type Rewriter struct {
	uploader     ImageUploader
	parser       htmldoc.Parser
	hostedPrefix string
	logger       *logger.Logger
}

// New creates a rewriter. Images whose src starts with hostedPrefix are left
// alone.
func New(uploader ImageUploader, parser htmldoc.Parser, hostedPrefix string, log *logger.Logger) *Rewriter {
	if parser == nil {
		parser = htmldoc.NewParser()
	}

	if log == nil {
		log = logger.Discard()
	}

	return &Rewriter{
		uploader:     uploader,
		parser:       parser,
		hostedPrefix: hostedPrefix,
		logger:       log,
	}
}

// IsHosted reports whether src already lives on the platform.
func (r *Rewriter) IsHosted(src string) bool {
	return r.hostedPrefix != "" && strings.HasPrefix(src, r.hostedPrefix)
}

// UploadImages uploads every non-hosted image of content concurrently and
// rewrites its src. Any failed upload fails the whole call; content without
// image markup is returned untouched and nothing is uploaded.
func (r *Rewriter) UploadImages(ctx context.Context, content, token string) (*Result, error) {
	if !strings.Contains(strings.ToLower(content), "<img") {
		return &Result{HTML: content}, nil
	}

	doc, err := r.parser.Parse(content)
	if err != nil {
		return nil, err
	}

	images := doc.Images()
	resolved := make([]string, len(images))
	uploaded := make([]bool, len(images))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentUploads)

	for i, img := range images {
		src, ok := img.Src()
		if !ok || strings.TrimSpace(src) == "" {
			continue
		}

		if r.IsHosted(src) {
			resolved[i] = src
			continue
		}

		g.Go(func() error {
			media, err := r.uploader.UploadImage(gctx, src, token, "")
			if err != nil {
				return fmt.Errorf("inline image %d: %w", i+1, err)
			}

			img.SetSrc(media.URL)
			resolved[i] = media.MediaID
			uploaded[i] = true

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	html, err := doc.Render()
	if err != nil {
		return nil, err
	}

	result := &Result{HTML: html}

	for i, id := range resolved {
		if result.FirstImageID == "" && id != "" {
			result.FirstImageID = id
		}

		if uploaded[i] {
			result.Uploaded++
		}
	}

	r.logger.Debug(fmt.Sprintf("Rewrote %d of %d inline images", result.Uploaded, len(images)))

	return result, nil
}
