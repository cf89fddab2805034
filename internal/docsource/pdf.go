package docsource

import (
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// pdfPageBreak separates extracted pages so the chunker can recover page
// numbers from text order. Must match the chunker's page break marker.
const pdfPageBreak = "\n\n"

// extractPDF pulls the plain text out of a PDF, one entry per page, joined
// with the page break marker. Pages that yield no text still occupy a slot so
// page numbering stays aligned with the document.
func extractPDF(r io.ReaderAt, size int64) (string, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("failed to parse pdf: %w", err)
	}

	total := reader.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to extract page %d: %w", i, err)
		}
		pages = append(pages, strings.TrimSpace(text))
	}

	return strings.Join(pages, pdfPageBreak), nil
}
