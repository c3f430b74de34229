// Package validator checks an article before anything is sent to the
// platform.
package validator

import (
	"errors"
	"fmt"
	"strings"

	"wxdraft/internal/htmldoc"
	"wxdraft/internal/models"
	"wxdraft/pkg/utils"
)

// Validation errors.
var (
	ErrTitleRequired = errors.New("title is required")
	ErrBodyRequired  = errors.New("body is required")
)

// ValidationError represents a validation error with context.
type ValidationError struct {
	Field string
	Value string
	Err   error
}

func (e ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}

	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e ValidationError) Unwrap() error {
	return e.Err
}

// ValidationResult contains validation results.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []string
	Images   int
	IsValid  bool
}

// Err joins all errors, or returns nil for a valid article.
func (r *ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}

	errs := make([]error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, e)
	}

	return errors.Join(errs...)
}

func (r *ValidationResult) addError(field, value string, err error) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Value: value, Err: err})
	r.IsValid = false
}

// LocalResolver locates local image files.
type LocalResolver interface {
	Resolve(filePath string) (string, error)
}

// ArticleValidator validates rendered articles.
type ArticleValidator struct {
	parser   htmldoc.Parser
	resolver LocalResolver
}

// NewArticleValidator creates a validator. A nil parser uses the default.
func NewArticleValidator(parser htmldoc.Parser, resolver LocalResolver) *ArticleValidator {
	if parser == nil {
		parser = htmldoc.NewParser()
	}

	return &ArticleValidator{parser: parser, resolver: resolver}
}

// Validate checks title and body, and that every local file the article
// references (inline images and cover) exists. Remote references are not
// fetched.
func (v *ArticleValidator) Validate(article *models.Article, html string) *ValidationResult {
	result := &ValidationResult{IsValid: true}

	if strings.TrimSpace(article.Title) == "" {
		result.addError("title", "", ErrTitleRequired)
	}

	if strings.TrimSpace(html) == "" {
		result.addError("body", "", ErrBodyRequired)
		return result
	}

	if article.HasCover() {
		v.checkLocal(result, "cover", article.CoverPath)
	}

	if !strings.Contains(strings.ToLower(html), "<img") {
		return result
	}

	doc, err := v.parser.Parse(html)
	if err != nil {
		result.addError("body", "", err)
		return result
	}

	for i, img := range doc.Images() {
		result.Images++

		src, ok := img.Src()
		if !ok || strings.TrimSpace(src) == "" {
			result.Warnings = append(result.Warnings, fmt.Sprintf("image %d has no src and is ignored", i+1))
			continue
		}

		v.checkLocal(result, "img", src)
	}

	return result
}

func (v *ArticleValidator) checkLocal(result *ValidationResult, field, ref string) {
	if v.resolver == nil || utils.IsRemoteURL(ref) {
		return
	}

	if _, err := v.resolver.Resolve(ref); err != nil {
		result.addError(field, ref, err)
	}
}
