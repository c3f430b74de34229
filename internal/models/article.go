// Package models defines the data passed between the scanner, the publisher
// and the platform client.
package models

// Article is one parsed source file, ready to be published.
type Article struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	CoverPath string `json:"coverPath,omitempty"`

	// Bookkeeping filled in by the scanner.
	SourcePath string `json:"sourcePath,omitempty"`
	ImagePath  string `json:"imagePath,omitempty"`
}

// HasCover reports whether an explicit cover was supplied.
func (a *Article) HasCover() bool {
	return a.CoverPath != ""
}
