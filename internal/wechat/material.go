package wechat

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"wxdraft/internal/models"
	"wxdraft/pkg/utils"
)

// MaterialImage is the material kind used for inline images and covers.
const MaterialImage = "image"

const opUpload = "upload material"

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// UploadMaterial uploads data as a permanent material of the given kind. The
// returned URL always uses https.
func (c *Client) UploadMaterial(ctx context.Context, kind string, data []byte, filename, token string) (models.UploadedMedia, error) {
	target, err := endpoint(c.cfg.UploadURL, url.Values{
		"access_token": {token},
		"type":         {kind},
	})
	if err != nil {
		return models.UploadedMedia{}, err
	}

	body, contentType, err := multipartBody(data, filename)
	if err != nil {
		return models.UploadedMedia{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, body)
	if err != nil {
		return models.UploadedMedia{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)

	c.logger.Debug(fmt.Sprintf("Uploading %s material %s (%d bytes)", kind, filename, len(data)))

	resp, err := c.do(opUpload, req)
	if err != nil {
		return models.UploadedMedia{}, err
	}

	media, err := decode[models.UploadedMedia](opUpload, resp)
	if err != nil {
		return models.UploadedMedia{}, err
	}

	if media.MediaID == "" {
		return models.UploadedMedia{}, fmt.Errorf("%s: %w: no media_id", opUpload, ErrUnexpectedResponse)
	}

	media.URL = utils.ForceHTTPS(media.URL)

	return media, nil
}

// multipartBody encodes data as the single "media" file part.
func multipartBody(data []byte, filename string) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="media"; filename="%s"`, quoteEscaper.Replace(filename)))
	h.Set("Content-Type", mimetype.Detect(data).String())

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form part: %w", err)
	}

	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("failed to write form part: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}

	return buf, w.FormDataContentType(), nil
}
