package export

import (
	"fmt"
	"time"
)

// Request carries everything needed to export one document.
type Request struct {
	Title     string
	Content   []byte
	Author    string
	UpdatedAt time.Time
	Format    string
}

// Export renders the document in the requested format.
func Export(req Request) (*Result, error) {
	page, err := renderDocumentPage(TemplateData{
		Title:       req.Title,
		ContentHTML: RenderBlocksHTML(req.Content),
		Author:      req.Author,
		UpdatedAt:   req.UpdatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("render document page: %w", err)
	}

	switch req.Format {
	case "html", "":
		return &Result{
			Data:     []byte(page),
			Filename: sanitizeFilename(req.Title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case "pdf":
		return renderPDF(page, req.Title)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
}
