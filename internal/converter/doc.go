// Package converter extracts normalized plain text from source documents.
//
// Supported formats are selected by extension: .pdf, .docx, .md, .xlsx and
// .txt. Office formats are read straight from their zip containers; PDF text
// comes from github.com/ledongthuc/pdf. Anything else yields
// ErrUnsupportedFormat.
package converter
