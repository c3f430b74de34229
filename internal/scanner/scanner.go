// Package scanner finds articles in the watched directory, pairs them with a
// same-named image, parses their front matter and archives them once
// published.
package scanner

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"

	"wxdraft/internal/logger"
	"wxdraft/internal/models"
	"wxdraft/pkg/metadata"
	"wxdraft/pkg/utils"
)

// Article statuses.
const (
	StatusReady        = "READY"
	StatusMissingImage = "MISSING_IMAGE"
)

const articleExt = ".md"

// Scanner errors.
var (
	ErrFormat          = errors.New("invalid front matter")
	ErrMissingImage    = errors.New("no matching image")
	ErrArticleNotFound = errors.New("article not found")
)

const frontMatterDelim = "---"

var frontMatterFormat = frontmatter.NewFormat(frontMatterDelim, frontMatterDelim, metadata.Unmarshal)

// Entry is one article file and its matched image.
type Entry struct {
	Name      string
	Path      string
	ImagePath string
	Status    string
}

// Ready reports whether the entry can be published.
func (e Entry) Ready() bool {
	return e.Status == StatusReady
}

// Scanner works on one article directory.
type Scanner struct {
	dir          string
	processedDir string
	extensions   []string
	logger       *logger.Logger
}

// New creates a scanner. Images are matched by trying extensions in order.
// Relative directories are made absolute against the working directory, so
// every path the scanner hands out is absolute.
func New(dir, processedDir string, extensions []string, log *logger.Logger) *Scanner {
	if log == nil {
		log = logger.Discard()
	}

	return &Scanner{
		dir:          absPath(dir),
		processedDir: absPath(processedDir),
		extensions:   extensions,
		logger:       log,
	}
}

func absPath(dir string) string {
	if dir == "" {
		return dir
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}

	return abs
}

// Dir returns the watched directory.
func (s *Scanner) Dir() string {
	return s.dir
}

// Scan lists the articles of the directory, sorted by name.
func (s *Scanner) Scan() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read article directory %s: %w", s.dir, err)
	}

	var entries []Entry

	for _, de := range dirEntries {
		if de.IsDir() || !strings.EqualFold(filepath.Ext(de.Name()), articleExt) {
			continue
		}

		entries = append(entries, s.entryFor(de.Name()))
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	s.logger.Debug(fmt.Sprintf("Scanned %s: %d article(s)", s.dir, len(entries)))

	return entries, nil
}

// Entry looks up one article by file name or path. A name without the .md
// suffix gets it appended.
func (s *Scanner) Entry(name string) (Entry, error) {
	base := filepath.Base(name)
	if !strings.EqualFold(filepath.Ext(base), articleExt) {
		base += articleExt
	}

	info, err := os.Stat(filepath.Join(s.dir, base))
	if err != nil || info.IsDir() {
		return Entry{}, fmt.Errorf("%w: %s", ErrArticleNotFound, base)
	}

	return s.entryFor(base), nil
}

func (s *Scanner) entryFor(name string) Entry {
	entry := Entry{
		Name:   name,
		Path:   filepath.Join(s.dir, name),
		Status: StatusMissingImage,
	}

	if img := s.FindImage(strings.TrimSuffix(name, filepath.Ext(name))); img != "" {
		entry.ImagePath = img
		entry.Status = StatusReady
	}

	return entry
}

// FindImage returns the path of the first existing base+extension file, or "".
func (s *Scanner) FindImage(base string) string {
	for _, ext := range s.extensions {
		candidate := filepath.Join(s.dir, base+ext)

		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}

	return ""
}

// Load reads and parses the entry's article. The cover is the front-matter
// cover when given, otherwise the matched image.
func (s *Scanner) Load(entry Entry) (*models.Article, error) {
	if !entry.Ready() {
		return nil, fmt.Errorf("%w: %s", ErrMissingImage, entry.Name)
	}

	source, err := os.ReadFile(entry.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read article %s: %w", entry.Path, err)
	}

	article, err := ParseArticle(source, strings.TrimSuffix(entry.Name, filepath.Ext(entry.Name)))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", entry.Name, err)
	}

	switch {
	case article.CoverPath == "":
		article.CoverPath = entry.ImagePath
	case !utils.IsRemoteURL(article.CoverPath) && !filepath.IsAbs(article.CoverPath):
		article.CoverPath = filepath.Join(s.dir, article.CoverPath)
	}

	article.SourcePath = entry.Path
	article.ImagePath = entry.ImagePath

	return article, nil
}

// ParseArticle splits source into front matter and body. The front matter
// must be delimited by `---` lines; a missing title falls back to
// fallbackTitle.
func ParseArticle(source []byte, fallbackTitle string) (*models.Article, error) {
	if !hasClosingDelimiter(source) {
		return nil, fmt.Errorf("%w: front matter must be enclosed in %s lines", ErrFormat, frontMatterDelim)
	}

	var fields metadata.Fields

	body, err := frontmatter.MustParse(bytes.NewReader(source), &fields, frontMatterFormat)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	title := fields.Title()
	if title == "" {
		title = fallbackTitle
	}

	return &models.Article{
		Title:     title,
		Body:      strings.TrimSpace(string(body)),
		CoverPath: fields.Cover(),
	}, nil
}

func hasClosingDelimiter(source []byte) bool {
	lines := strings.Split(strings.ReplaceAll(string(source), "\r\n", "\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontMatterDelim {
		return false
	}

	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == frontMatterDelim {
			return true
		}
	}

	return false
}

// Archive moves the article and its matched image into the processed
// directory, keeping file names.
func (s *Scanner) Archive(entry Entry) error {
	if err := os.MkdirAll(s.processedDir, 0755); err != nil {
		return fmt.Errorf("failed to create processed directory: %w", err)
	}

	if err := os.Rename(entry.Path, filepath.Join(s.processedDir, filepath.Base(entry.Path))); err != nil {
		return fmt.Errorf("failed to archive %s: %w", entry.Name, err)
	}

	if entry.ImagePath != "" {
		if err := os.Rename(entry.ImagePath, filepath.Join(s.processedDir, filepath.Base(entry.ImagePath))); err != nil {
			return fmt.Errorf("failed to archive image of %s: %w", entry.Name, err)
		}
	}

	s.logger.Debug(fmt.Sprintf("Archived %s to %s", entry.Name, s.processedDir))

	return nil
}
