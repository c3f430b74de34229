// Package platformtest runs an in-process imitation of the draft platform:
// token exchange, material upload, draft creation, and a static host for
// "platform-hosted" images. It exists for tests.
package platformtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"wxdraft/internal/config"
)

// Fixed credentials accepted by the fake platform.
const (
	AppID     = "wx-test-app"
	AppSecret = "wx-test-secret"
	Token     = "TEST_ACCESS_TOKEN"
)

// Route paths.
const (
	TokenPath  = "/cgi-bin/token"
	UploadPath = "/cgi-bin/material/add_material"
	DraftPath  = "/cgi-bin/draft/add"
	HostedPath = "/mmbiz"
	FilesPath  = "/files"
)

// PNG is a 1x1 transparent image used as upload payload and served file.
var PNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0d, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// Upload records one material upload received by the server.
type Upload struct {
	Kind        string
	Filename    string
	ContentType string
	Size        int
}

// DraftArticle mirrors one entry of a draft request.
type DraftArticle struct {
	Title        string `json:"title"`
	Content      string `json:"content"`
	ThumbMediaID string `json:"thumb_media_id"`
}

// Server is the fake platform. Override the *Response hooks to inject errors
// or odd payloads; nil hooks use the default, well-behaved responses.
type Server struct {
	*httptest.Server

	// TokenResponse replaces the token endpoint payload.
	TokenResponse func() any
	// UploadResponse replaces the upload payload for the n-th upload (1-based).
	UploadResponse func(n int, upload Upload) any
	// DraftResponse replaces the draft payload.
	DraftResponse func(articles []DraftArticle) any

	mu          sync.Mutex
	tokenCalls  int
	uploads     []Upload
	drafts      [][]DraftArticle
	downloads   int
	uploadCount int
}

// New starts a TLS server; use its Client() to talk to it. The caller must
// Close it.
func New() *Server {
	s := &Server{}
	s.Server = httptest.NewTLSServer(s.router())

	return s
}

// NewHTTP starts a plain-HTTP server reachable with any client. Hosted URLs
// it returns are rewritten to https by the platform client, so they never
// match HostedPrefix.
func NewHTTP() *Server {
	s := &Server{}
	s.Server = httptest.NewServer(s.router())

	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(TokenPath, s.handleToken)
	r.Post(UploadPath, s.handleUpload)
	r.Post(DraftPath, s.handleDraft)
	r.Get(HostedPath+"/{name}", s.handleFile)
	r.Get(FilesPath+"/{name}", s.handleFile)

	return r
}

// Platform returns a platform configuration pointing at this server.
func (s *Server) Platform() config.PlatformConfig {
	return config.PlatformConfig{
		AppID:        AppID,
		AppSecret:    AppSecret,
		TokenURL:     s.URL + TokenPath,
		UploadURL:    s.URL + UploadPath,
		DraftURL:     s.URL + DraftPath,
		HostedPrefix: s.HostedPrefix(),
	}
}

// HostedPrefix is the URL prefix of images the platform considers its own.
func (s *Server) HostedPrefix() string {
	return s.URL + HostedPath
}

// FileURL returns a downloadable, non-hosted image URL. Names starting with
// "missing" answer 404 and names starting with "empty" answer an empty body.
func (s *Server) FileURL(name string) string {
	return s.URL + FilesPath + "/" + name
}

// HostedURL returns a downloadable platform-hosted image URL.
func (s *Server) HostedURL(name string) string {
	return s.HostedPrefix() + "/" + name
}

// TokenCalls returns how many token requests were received.
func (s *Server) TokenCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tokenCalls
}

// Uploads returns a copy of the uploads received so far.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Upload(nil), s.uploads...)
}

// Drafts returns a copy of the draft requests received so far.
func (s *Server) Drafts() [][]DraftArticle {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([][]DraftArticle(nil), s.drafts...)
}

// Downloads returns how many image files were served.
func (s *Server) Downloads() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.downloads
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.tokenCalls++
	s.mu.Unlock()

	if s.TokenResponse != nil {
		writeJSON(w, s.TokenResponse())
		return
	}

	q := r.URL.Query()
	if q.Get("grant_type") != "client_credential" || q.Get("appid") != AppID || q.Get("secret") != AppSecret {
		writeJSON(w, errorBody(40001, "invalid credential"))
		return
	}

	writeJSON(w, map[string]any{"access_token": Token, "expires_in": 7200})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("access_token") != Token {
		writeJSON(w, errorBody(40001, "invalid credential"))
		return
	}

	file, header, err := r.FormFile("media")
	if err != nil {
		writeJSON(w, errorBody(41005, "media data missing"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	upload := Upload{
		Kind:        q.Get("type"),
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        len(data),
	}

	s.mu.Lock()
	s.uploadCount++
	n := s.uploadCount
	s.uploads = append(s.uploads, upload)
	s.mu.Unlock()

	if s.UploadResponse != nil {
		writeJSON(w, s.UploadResponse(n, upload))
		return
	}

	// The real platform hands out plain http URLs.
	insecure := strings.Replace(s.HostedURL(fmt.Sprintf("%d.png", n)), "https://", "http://", 1)
	writeJSON(w, map[string]any{
		"media_id": fmt.Sprintf("media-%d", n),
		"url":      insecure,
	})
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("access_token") != Token {
		writeJSON(w, errorBody(40001, "invalid credential"))
		return
	}

	var payload struct {
		Articles []DraftArticle `json:"articles"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, errorBody(47001, "data format error"))
		return
	}

	s.mu.Lock()
	s.drafts = append(s.drafts, payload.Articles)
	n := len(s.drafts)
	s.mu.Unlock()

	if s.DraftResponse != nil {
		writeJSON(w, s.DraftResponse(payload.Articles))
		return
	}

	writeJSON(w, map[string]any{"media_id": fmt.Sprintf("draft-%d", n)})
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	switch {
	case strings.HasPrefix(name, "missing"):
		http.NotFound(w, r)
		return
	case strings.HasPrefix(name, "empty"):
		w.WriteHeader(http.StatusOK)
		return
	}

	s.mu.Lock()
	s.downloads++
	s.mu.Unlock()

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(PNG)
}

func errorBody(code int, msg string) map[string]any {
	return map[string]any{"errcode": code, "errmsg": msg}
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}
