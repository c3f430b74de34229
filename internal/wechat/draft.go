package wechat

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"wxdraft/internal/models"
)

const opDraft = "add draft"

// DraftArticle is one article of a draft request.
type DraftArticle struct {
	Title        string `json:"title"`
	Content      string `json:"content"`
	ThumbMediaID string `json:"thumb_media_id"`
}

type draftRequest struct {
	Articles []DraftArticle `json:"articles"`
}

// AddDraft creates one draft holding the given articles and returns its id.
func (c *Client) AddDraft(ctx context.Context, token string, articles ...DraftArticle) (models.DraftResult, error) {
	target, err := endpoint(c.cfg.DraftURL, url.Values{"access_token": {token}})
	if err != nil {
		return models.DraftResult{}, err
	}

	body, err := marshalJSON(draftRequest{Articles: articles})
	if err != nil {
		return models.DraftResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return models.DraftResult{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	c.logger.Debug(fmt.Sprintf("Creating draft with %d article(s)", len(articles)))

	resp, err := c.do(opDraft, req)
	if err != nil {
		return models.DraftResult{}, err
	}

	result, err := decode[models.DraftResult](opDraft, resp)
	if err != nil {
		return models.DraftResult{}, err
	}

	if result.MediaID == "" {
		return models.DraftResult{}, fmt.Errorf("%s: %w: no media_id", opDraft, ErrUnexpectedResponse)
	}

	return result, nil
}
