package validator

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"wxdraft/internal/models"
)

var errNotFound = errors.New("not found")

// MockResolver implements LocalResolver for testing.
type MockResolver struct {
	Existing map[string]bool
}

func (m *MockResolver) Resolve(filePath string) (string, error) {
	if m.Existing[filePath] {
		return "/abs/" + filePath, nil
	}

	return "", fmt.Errorf("%w: %s", errNotFound, filePath)
}

func TestValidate(t *testing.T) {
	resolver := &MockResolver{Existing: map[string]bool{"ok.png": true, "cover.png": true}}

	tests := []struct {
		name         string
		article      models.Article
		html         string
		wantValid    bool
		wantErrors   int
		wantWarnings int
		wantIs       error
	}{
		{
			name:      "valid with local and remote images",
			article:   models.Article{Title: "T", CoverPath: "cover.png"},
			html:      `<p><img src="ok.png"><img src="https://example.com/x.png"></p>`,
			wantValid: true,
		},
		{
			name:       "missing title",
			article:    models.Article{},
			html:       "<p>x</p>",
			wantErrors: 1,
			wantIs:     ErrTitleRequired,
		},
		{
			name:       "empty body",
			article:    models.Article{Title: "T"},
			html:       "  \n",
			wantErrors: 1,
			wantIs:     ErrBodyRequired,
		},
		{
			name:       "missing inline image and cover",
			article:    models.Article{Title: "T", CoverPath: "gone.png"},
			html:       `<img src="ok.png"><img src="missing.jpg">`,
			wantErrors: 2,
			wantIs:     errNotFound,
		},
		{
			name:         "image without src",
			article:      models.Article{Title: "T"},
			html:         `<img alt="x">`,
			wantValid:    true,
			wantWarnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewArticleValidator(nil, resolver)
			result := v.Validate(&tt.article, tt.html)

			if result.IsValid != tt.wantValid {
				t.Fatalf("IsValid = %v, want %v (errors: %v)", result.IsValid, tt.wantValid, result.Errors)
			}

			if len(result.Errors) != tt.wantErrors {
				t.Errorf("Expected %d errors, got %d: %v", tt.wantErrors, len(result.Errors), result.Errors)
			}

			if len(result.Warnings) != tt.wantWarnings {
				t.Errorf("Expected %d warnings, got %d", tt.wantWarnings, len(result.Warnings))
			}

			err := result.Err()
			if tt.wantValid && err != nil {
				t.Errorf("Expected nil Err(), got %v", err)
			}

			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("Expected Err() to wrap %v, got %v", tt.wantIs, err)
			}
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := ValidationError{Field: "img", Value: "a.png", Err: errNotFound}

	if !strings.Contains(err.Error(), `img "a.png"`) {
		t.Errorf("Unexpected message: %s", err.Error())
	}

	if !errors.Is(err, errNotFound) {
		t.Error("Expected ValidationError to unwrap")
	}
}

func TestValidate_NoResolverSkipsFileChecks(t *testing.T) {
	v := NewArticleValidator(nil, nil)

	result := v.Validate(&models.Article{Title: "T", CoverPath: "nowhere.png"}, `<img src="nowhere.png">`)
	if !result.IsValid {
		t.Errorf("Expected valid result without resolver, got %v", result.Errors)
	}

	if result.Images != 1 {
		t.Errorf("Expected 1 image counted, got %d", result.Images)
	}
}
