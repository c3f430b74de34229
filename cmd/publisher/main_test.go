package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wxdraft/internal/config"
	"wxdraft/internal/platformtest"
)

func clearCredentials(t *testing.T) {
	t.Helper()
	t.Setenv(config.EnvAppID, "")
	t.Setenv(config.EnvAppSecret, "")
	t.Setenv(config.EnvArticles, "")
	t.Setenv(config.EnvImagePath, "")
}

func TestRun_List(t *testing.T) {
	clearCredentials(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("---\ntitle: A\n---\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("---\ntitle: B\n---\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.png"), platformtest.PNG, 0644))

	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-env-file", "", "-dir", dir, "-ls"}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "a.md")
	assert.Contains(t, out, "MISSING_IMAGE")
	assert.Contains(t, out, "READY")
}

func TestRun_PublishRequiresCredentials(t *testing.T) {
	clearCredentials(t)

	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-env-file", "", "-dir", t.TempDir(), "-all"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), config.EnvAppID)
}

func TestRun_InitConfig(t *testing.T) {
	clearCredentials(t)

	path := filepath.Join(t.TempDir(), "configs", "publisher.yaml")

	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-init-config", path}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), path)

	cfg, err := config.Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, config.Default().Platform.TokenURL, cfg.Platform.TokenURL)
	assert.Equal(t, config.Default().Articles.ImageExtensions, cfg.Articles.ImageExtensions)

	stdout.Reset()
	stderr.Reset()

	code = run(context.Background(), []string{"-init-config", path}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "already exists")
}

func TestRun_NoMode(t *testing.T) {
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), nil, &stdout, &stderr)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr.String(), "Usage")
}

func TestRun_InvalidConfig(t *testing.T) {
	clearCredentials(t)

	path := filepath.Join(t.TempDir(), "publisher.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch:\n  concurrency: 3\n"), 0644))

	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-config", path, "-env-file", "", "-ls"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "configuration error")
}

// writePlatformConfig writes a config pointing at srv for articleDir and an
// env file with the fake platform's credentials.
func writePlatformConfig(t *testing.T, srv *platformtest.Server, articleDir string) (cfgPath, envPath string) {
	t.Helper()

	p := srv.Platform()
	cfgYAML := fmt.Sprintf(`platform:
  token_url: %s
  upload_url: %s
  draft_url: %s
  hosted_prefix: %s
articles:
  dir: %s
batch:
  delay_ms: 0
  concurrency: 1
`, p.TokenURL, p.UploadURL, p.DraftURL, p.HostedPrefix, articleDir)

	cfgPath = filepath.Join(t.TempDir(), "publisher.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgYAML), 0644))

	envPath = filepath.Join(t.TempDir(), "env.local")
	envBody := fmt.Sprintf("%s=%s\n%s=%s\n", config.EnvAppID, platformtest.AppID, config.EnvAppSecret, platformtest.AppSecret)
	require.NoError(t, os.WriteFile(envPath, []byte(envBody), 0644))

	return cfgPath, envPath
}

func writeArticle(t *testing.T, dir string) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "post.md"), []byte("---\ntitle: Post\n---\nHello\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "post.png"), platformtest.PNG, 0644))
}

func TestRun_PublishNamedFile(t *testing.T) {
	clearCredentials(t)

	srv := platformtest.NewHTTP()
	defer srv.Close()

	dir := t.TempDir()
	writeArticle(t, dir)

	cfgPath, envPath := writePlatformConfig(t, srv, dir)

	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-config", cfgPath, "-env-file", envPath, "post.md"}, &stdout, &stderr)
	require.Equal(t, 0, code, "stdout: %s\nstderr: %s", stdout.String(), stderr.String())

	assert.Contains(t, stdout.String(), "Published: 1")
	assert.Contains(t, stdout.String(), "draft-1")

	drafts := srv.Drafts()
	require.Len(t, drafts, 1)
	assert.Equal(t, "Post", drafts[0][0].Title)
	assert.Equal(t, "media-1", drafts[0][0].ThumbMediaID)

	assert.NoFileExists(t, filepath.Join(dir, "post.md"))
	assert.FileExists(t, filepath.Join(dir, "processed", "post.md"))
}

func TestRun_PublishFromRelativeDir(t *testing.T) {
	clearCredentials(t)

	srv := platformtest.NewHTTP()
	defer srv.Close()

	root := t.TempDir()
	t.Chdir(root)

	require.NoError(t, os.Mkdir("articles", 0755))
	writeArticle(t, "articles")

	cfgPath, envPath := writePlatformConfig(t, srv, "articles")

	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"-config", cfgPath, "-env-file", envPath, "post.md"}, &stdout, &stderr)
	require.Equal(t, 0, code, "stdout: %s\nstderr: %s", stdout.String(), stderr.String())

	assert.Contains(t, stdout.String(), "Published: 1")
	require.Len(t, srv.Uploads(), 1)
	assert.Equal(t, "post.png", srv.Uploads()[0].Filename)
	assert.FileExists(t, filepath.Join(root, "articles", "processed", "post.md"))
}
