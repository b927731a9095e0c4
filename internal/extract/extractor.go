// Package extract provides text extraction from various document formats.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kioku/internal/models"
)

// File type names reported in document metadata.
const (
	FileTypePDF         = "PDF"
	FileTypeWord        = "Word"
	FileTypeSpreadsheet = "Spreadsheet"
	FileTypeImage       = "Image"
	FileTypeText        = "Text"
	FileTypeUnknown     = "Unknown"
)

// Extracted is the text of a file plus its classified type.
type Extracted struct {
	Text     string
	FileType string
	Size     int64
}

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// FileType classifies a file by its extension.
func FileType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FileTypePDF
	case ".doc", ".docx", ".odt", ".rtf":
		return FileTypeWord
	case ".xlsx":
		return FileTypeSpreadsheet
	case ".jpg", ".jpeg", ".png":
		return FileTypeImage
	case ".txt", ".md", ".markdown", ".rst", ".html", ".htm":
		return FileTypeText
	default:
		return FileTypeUnknown
	}
}

// Extract reads the file at path and returns its text content and file type.
func (e *Extractor) Extract(path string) (*Extracted, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	text, err := e.ExtractBytes(content, ext)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return &Extracted{Text: text, FileType: FileType(path), Size: int64(len(content))}, nil
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf"). Unknown extensions are read as plain text.
// Images are rejected with models.ErrInvalidArgument since there is no OCR.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".doc", ".odt", ".rtf":
		return extractWithCat(content)
	case ".xlsx":
		return extractExcel(content)
	case ".md", ".markdown":
		return extractMarkdown(content)
	case ".html", ".htm":
		return extractHTML(content)
	case ".jpg", ".jpeg", ".png":
		return "", fmt.Errorf("%w: image files have no extractable text", models.ErrInvalidArgument)
	default:
		return extractPlain(content)
	}
}
