// Package media turns an image reference (remote URL or local path) into a
// platform material.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"wxdraft/internal/logger"
	"wxdraft/internal/models"
	"wxdraft/pkg/utils"
)

// Media errors.
var (
	ErrDownload     = errors.New("image download failed")
	ErrFileNotFound = errors.New("image file not found")
)

const (
	materialKindImage = "image"
	fallbackFilename  = "image.jpg"
	// maxImageBytes matches the platform's limit for image materials.
	maxImageBytes = 10 * 1024 * 1024
)

// MaterialUploader is the platform operation an Uploader feeds.
type MaterialUploader interface {
	UploadMaterial(ctx context.Context, kind string, data []byte, filename, token string) (models.UploadedMedia, error)
}

// Uploader fetches image bytes and hands them to the platform.
type Uploader struct {
	materials  MaterialUploader
	httpClient *http.Client
	baseDir    string
	logger     *logger.Logger
}

// NewUploader creates an uploader. Relative local paths resolve against
// baseDir; a nil httpClient means http.DefaultClient.
func NewUploader(materials MaterialUploader, httpClient *http.Client, baseDir string, log *logger.Logger) *Uploader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if log == nil {
		log = logger.Discard()
	}

	return &Uploader{
		materials:  materials,
		httpClient: httpClient,
		baseDir:    baseDir,
		logger:     log,
	}
}

// UploadImage uploads the image at source. An empty filename is derived from
// the URL path (remote) or the base name (local).
func (u *Uploader) UploadImage(ctx context.Context, source, token, filename string) (models.UploadedMedia, error) {
	var (
		data []byte
		err  error
	)

	if utils.IsRemoteURL(source) {
		data, err = u.Download(ctx, source)
		if filename == "" {
			filename = remoteFilename(source)
		}
	} else {
		data, err = u.ReadLocal(source)
		if filename == "" {
			filename = filepath.Base(source)
		}
	}

	if err != nil {
		return models.UploadedMedia{}, err
	}

	filename = withExtension(filename, data)

	u.logger.Debug(fmt.Sprintf("Uploading image %s as %s", source, filename))

	media, err := u.materials.UploadMaterial(ctx, materialKindImage, data, filename, token)
	if err != nil {
		return models.UploadedMedia{}, fmt.Errorf("upload %s: %w", source, err)
	}

	return media, nil
}

// Download fetches a remote image. Non-2xx answers and empty bodies fail with
// ErrDownload.
func (u *Uploader) Download(ctx context.Context, rawURL string) (data []byte, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDownload, rawURL, err)
	}

	utils.ApplyHeaders(req, map[string]string{"Accept": "image/*,*/*;q=0.8"})

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDownload, rawURL, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close response body: %w", closeErr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: status %d", ErrDownload, rawURL, resp.StatusCode)
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDownload, rawURL, err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s: empty body", ErrDownload, rawURL)
	}

	return data, nil
}

// ReadLocal reads a local image, resolving relative paths against the base
// directory.
func (u *Uploader) ReadLocal(filePath string) ([]byte, error) {
	resolved, err := u.Resolve(filePath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to read local file %s: %w", resolved, err)
	}

	return data, nil
}

// Resolve returns the on-disk path of a local image reference, or
// ErrFileNotFound.
func (u *Uploader) Resolve(filePath string) (string, error) {
	resolved := filePath
	if !filepath.IsAbs(resolved) && u.baseDir != "" {
		resolved = filepath.Join(u.baseDir, resolved)
	}

	candidates := []string{resolved}

	// Markdown renderers percent-encode non-ASCII image paths.
	if unescaped, err := url.PathUnescape(resolved); err == nil && unescaped != resolved {
		candidates = append(candidates, unescaped)
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrFileNotFound, resolved)
}

// remoteFilename is the last path segment of the URL, or a fixed fallback.
func remoteFilename(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fallbackFilename
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return fallbackFilename
	}

	return name
}

// withExtension appends the detected extension when name has none.
func withExtension(name string, data []byte) string {
	if filepath.Ext(name) != "" {
		return name
	}

	return name + mimetype.Detect(data).Extension()
}
