// Package wechat provides client functionality for the draft platform's HTTP
// API: access tokens, permanent material uploads and draft creation.
package wechat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"wxdraft/internal/config"
	"wxdraft/internal/logger"
	"wxdraft/internal/models"
	"wxdraft/pkg/utils"
)

// Platform errors.
var (
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrUnexpectedResponse   = errors.New("unexpected platform response")
)

// maxResponseBytes caps how much of a platform response is read.
const maxResponseBytes = 10 * 1024 * 1024

// API defines the operations the publisher needs from the platform.
type API interface {
	FetchAccessToken(ctx context.Context) (models.AccessToken, error)
	UploadMaterial(ctx context.Context, kind string, data []byte, filename, token string) (models.UploadedMedia, error)
	AddDraft(ctx context.Context, token string, articles ...DraftArticle) (models.DraftResult, error)
}

// Ensure Client implements API.
var _ API = (*Client)(nil)

// APIError is a platform response carrying a non-zero errcode.
type APIError struct {
	Op      string
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed: errcode=%d, errmsg=%s", e.Op, e.Code, e.Message)
}

// status is the error envelope shared by every platform response.
type status struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Client talks to the platform over HTTP. It holds no token; callers fetch one
// per publish.
type Client struct {
	httpClient *http.Client
	cfg        config.PlatformConfig
	logger     *logger.Logger
}

// NewClient creates a client with the timeout taken from the configuration.
// A zero timeout leaves requests bounded only by the transport and ctx.
func NewClient(cfg config.PlatformConfig, log *logger.Logger) *Client {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.Timeout()}, log)
}

// NewClientWithHTTP creates a client using the given HTTP client (for testing).
func NewClientWithHTTP(cfg config.PlatformConfig, httpClient *http.Client, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Discard()
	}

	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
		logger:     log,
	}
}

// HTTPClient exposes the underlying HTTP client so image downloads can share
// its transport.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// endpoint appends query parameters to a configured base URL.
func endpoint(base string, params url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", base, err)
	}

	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}

	u.RawQuery = q.Encode()

	return u.String(), nil
}

// do sends the request and returns the body of a 200 response with errcode 0.
func (c *Client) do(op string, req *http.Request) (body []byte, err error) {
	utils.ApplyHeaders(req, nil)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close response body: %w", closeErr)
		}
	}()

	body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", op, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error(fmt.Sprintf("%s failed with status %d: %s", op, resp.StatusCode, utils.Preview(body)))
		return nil, fmt.Errorf("%s: %w: %d", op, ErrUnexpectedStatusCode, resp.StatusCode)
	}

	var st status
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUnexpectedResponse, err)
	}

	if st.ErrCode != 0 {
		return nil, &APIError{Op: op, Code: st.ErrCode, Message: st.ErrMsg}
	}

	return body, nil
}

func decode[T any](op string, body []byte) (T, error) {
	var target T
	if err := json.Unmarshal(body, &target); err != nil {
		return target, fmt.Errorf("%s: %w: %w", op, ErrUnexpectedResponse, err)
	}

	return target, nil
}

func marshalJSON(v any) (*bytes.Buffer, error) {
	buf := &bytes.Buffer{}

	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	return buf, nil
}
