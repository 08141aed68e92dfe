// Package export renders documents to HTML and PDF.
package export

import "errors"

// Result is a rendered export ready to stream to the client.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	ErrUnsupportedFormat    = errors.New("unsupported export format")
	ErrPDFDependencyMissing = errors.New("pdf export unavailable")
)
