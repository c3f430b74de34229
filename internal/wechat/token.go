package wechat

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"wxdraft/internal/config"
	"wxdraft/internal/models"
)

const opToken = "get access token"

// FetchAccessToken exchanges the app credentials for a short-lived token.
// Missing credentials fail before any request is sent.
func (c *Client) FetchAccessToken(ctx context.Context) (models.AccessToken, error) {
	if c.cfg.AppID == "" || c.cfg.AppSecret == "" {
		return models.AccessToken{}, config.ErrMissingCredentials
	}

	target, err := endpoint(c.cfg.TokenURL, url.Values{
		"grant_type": {"client_credential"},
		"appid":      {c.cfg.AppID},
		"secret":     {c.cfg.AppSecret},
	})
	if err != nil {
		return models.AccessToken{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return models.AccessToken{}, fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug("Requesting access token")

	body, err := c.do(opToken, req)
	if err != nil {
		return models.AccessToken{}, err
	}

	token, err := decode[models.AccessToken](opToken, body)
	if err != nil {
		return models.AccessToken{}, err
	}

	if token.Value == "" {
		return models.AccessToken{}, fmt.Errorf("%s: %w: no access_token", opToken, ErrUnexpectedResponse)
	}

	c.logger.Debug(fmt.Sprintf("Access token received, expires in %ds", token.ExpiresIn))

	return token, nil
}
