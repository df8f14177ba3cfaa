// Package document loads raw document content for ingestion. Format is
// detected from the file extension; each supported format has its own
// extraction path (plain text, Markdown, PDF, Word). A Document is immutable
// once loaded — it exists only long enough to be chunked.
package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat marks a file whose extension docq cannot ingest.
// Ingestion skips such files with a warning rather than failing the batch.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Format tags the source format of a loaded document.
type Format string

const (
	// FormatPlain is a .txt file.
	FormatPlain Format = "plain"
	// FormatMarkdown is a .md file.
	FormatMarkdown Format = "markdown"
	// FormatPDF is a .pdf file.
	FormatPDF Format = "pdf"
	// FormatWord is a .docx (WordprocessingML) file.
	FormatWord Format = "word"
	// FormatUnknown is any extension docq does not ingest.
	FormatUnknown Format = ""
)

// Document is a loaded source document: its identifier (path), full raw
// content, and format tag. Created at ingestion time, discarded after
// chunking.
type Document struct {
	// Path is the file path the document was loaded from. Used as the
	// source identifier on every chunk derived from it.
	Path string

	// Content is the full extracted text.
	Content string

	// Format is the detected source format.
	Format Format
}

// DetectFormat maps a file path to its Format by extension.
// Returns FormatUnknown for anything docq cannot ingest.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return FormatPlain
	case ".md":
		return FormatMarkdown
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatWord
	default:
		return FormatUnknown
	}
}

// Load reads the file at path and extracts its text using the extraction
// path for its detected format. An unrecognized extension fails with
// ErrUnsupportedFormat; a recognized format that fails to parse returns the
// parse error — both are per-document failures, never batch-fatal.
func Load(path string) (Document, error) {
	format := DetectFormat(path)

	var (
		content string
		err     error
	)
	switch format {
	case FormatPlain, FormatMarkdown:
		content, err = loadText(path)
	case FormatPDF:
		content, err = loadPDF(path)
	case FormatWord:
		content, err = loadWord(path)
	default:
		return Document{}, fmt.Errorf("document: %s: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return Document{}, fmt.Errorf("document: load %s: %w", path, err)
	}

	return Document{Path: path, Content: content, Format: format}, nil
}

// loadText reads a plain text or Markdown file as UTF-8.
func loadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
