package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Errors returned by Convert
var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrConversionFailed  = errors.New("document conversion failed")
)

// Format identifies a supported source document type by extension
type Format string

const (
	FormatPDF      Format = ".pdf"
	FormatDOCX     Format = ".docx"
	FormatMarkdown Format = ".md"
	FormatXLSX     Format = ".xlsx"
	FormatText     Format = ".txt"
)

// Converter turns a source document into normalized plain text
type Converter interface {
	Convert(ctx context.Context, path string) (string, error)
}

type extractFunc func(path string) (string, error)

// FileConverter dispatches on file extension to the matching extractor
type FileConverter struct {
	extractors map[Format]extractFunc
}

// New creates a converter for every supported format
func New() *FileConverter {
	return &FileConverter{
		extractors: map[Format]extractFunc{
			FormatPDF:      extractPDF,
			FormatDOCX:     extractDOCX,
			FormatMarkdown: extractMarkdown,
			FormatXLSX:     extractXLSX,
			FormatText:     extractText,
		},
	}
}

// Convert is shorthand for New().Convert
func Convert(ctx context.Context, path string) (string, error) {
	return New().Convert(ctx, path)
}

// FormatOf returns the lower-cased extension of path as a Format
func FormatOf(path string) Format {
	return Format(strings.ToLower(filepath.Ext(path)))
}

// Supported reports whether path has an allow-listed extension
func Supported(path string) bool {
	switch FormatOf(path) {
	case FormatPDF, FormatDOCX, FormatMarkdown, FormatXLSX, FormatText:
		return true
	}
	return false
}

// SupportedFormats returns the allow-listed extensions in sorted order
func SupportedFormats() []Format {
	formats := []Format{FormatPDF, FormatDOCX, FormatMarkdown, FormatXLSX, FormatText}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

// Convert reads path and returns its normalized text.
// Unsupported extensions return ErrUnsupportedFormat; unreadable or
// malformed files return an error wrapping ErrConversionFailed.
func (c *FileConverter) Convert(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	format := FormatOf(path)
	extract, ok := c.extractors[format]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	text, err := extract(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrConversionFailed, path, err)
	}
	return normalizeWhitespace(text), nil
}

func extractText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func extractMarkdown(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return stripMarkdown(string(data)), nil
}

func extractPDF(path string) (text string, err error) {
	// The pdf reader panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	b, err := rdr.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, b); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// normalizeWhitespace trims each line, drops blank lines and joins the rest
// with single newlines.
func normalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
