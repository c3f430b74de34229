// Package publisher runs the draft pipeline for one article: token, inline
// image rewrite, cover resolution and draft creation.
package publisher

import (
	"context"
	"errors"
	"fmt"

	"wxdraft/internal/logger"
	"wxdraft/internal/models"
	"wxdraft/internal/rewriter"
	"wxdraft/internal/wechat"
)

// ErrMissingCover is returned when neither an explicit cover nor an inline
// image can supply the draft's thumb.
var ErrMissingCover = errors.New("a cover image or at least one inline image is required")

const coverFilename = "cover.jpg"

// TokenSource issues access tokens.
type TokenSource interface {
	FetchAccessToken(ctx context.Context) (models.AccessToken, error)
}

// DraftCreator submits drafts.
type DraftCreator interface {
	AddDraft(ctx context.Context, token string, articles ...wechat.DraftArticle) (models.DraftResult, error)
}

// ContentRewriter uploads inline images and rewrites their sources.
type ContentRewriter interface {
	UploadImages(ctx context.Context, content, token string) (*rewriter.Result, error)
	IsHosted(src string) bool
}

// Ensure the concrete collaborators satisfy the interfaces.
var (
	_ TokenSource     = (*wechat.Client)(nil)
	_ DraftCreator    = (*wechat.Client)(nil)
	_ ContentRewriter = (*rewriter.Rewriter)(nil)
)

// Publisher turns one article into one draft.
type Publisher struct {
	tokens  TokenSource
	content ContentRewriter
	images  rewriter.ImageUploader
	drafts  DraftCreator
	logger  *logger.Logger
}

// New creates a publisher.
func New(tokens TokenSource, content ContentRewriter, images rewriter.ImageUploader, drafts DraftCreator, log *logger.Logger) *Publisher {
	if log == nil {
		log = logger.Discard()
	}

	return &Publisher{
		tokens:  tokens,
		content: content,
		images:  images,
		drafts:  drafts,
		logger:  log,
	}
}

// PublishToDraft fetches a fresh token, rewrites content, resolves the cover
// and creates the draft. Any failing step aborts the call; materials already
// uploaded stay on the platform.
func (p *Publisher) PublishToDraft(ctx context.Context, title, content, cover string) (models.DraftResult, error) {
	token, err := p.tokens.FetchAccessToken(ctx)
	if err != nil {
		return models.DraftResult{}, err
	}

	if token.Value == "" {
		return models.DraftResult{}, fmt.Errorf("%w: empty access token", wechat.ErrUnexpectedResponse)
	}

	rewritten, err := p.content.UploadImages(ctx, content, token.Value)
	if err != nil {
		return models.DraftResult{}, err
	}

	thumbID, err := p.resolveCover(ctx, cover, rewritten.FirstImageID, token.Value)
	if err != nil {
		return models.DraftResult{}, err
	}

	result, err := p.drafts.AddDraft(ctx, token.Value, wechat.DraftArticle{
		Title:        title,
		Content:      rewritten.HTML,
		ThumbMediaID: thumbID,
	})
	if err != nil {
		return models.DraftResult{}, err
	}

	p.logger.Info(fmt.Sprintf("Draft created: %s", result.MediaID), "title", title, "inline_uploads", rewritten.Uploaded)

	return result, nil
}

// resolveCover picks the thumb media id: explicit cover, then the first
// inline image (re-uploaded when it is only a hosted URL).
func (p *Publisher) resolveCover(ctx context.Context, cover, firstImageID, token string) (string, error) {
	var source string

	switch {
	case cover != "":
		source = cover
	case firstImageID != "" && p.content.IsHosted(firstImageID):
		source = firstImageID
	case firstImageID != "":
		p.logger.Debug("Using first inline image as cover")
		return firstImageID, nil
	default:
		return "", ErrMissingCover
	}

	media, err := p.images.UploadImage(ctx, source, token, coverFilename)
	if err != nil {
		return "", fmt.Errorf("cover: %w", err)
	}

	if media.MediaID == "" {
		return "", ErrMissingCover
	}

	return media.MediaID, nil
}
