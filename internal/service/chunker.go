package service

import "strings"

const (
	// DefaultSentenceDelimiter is the boundary heuristic used to split
	// extracted document text into candidate chunks.
	DefaultSentenceDelimiter = ". "
	// DefaultPageBreak is the literal marker separating pages in extracted
	// text. Text extractors emit it between page boundaries.
	DefaultPageBreak = "\n\n"
)

// PageChunk is one ordered, page-tagged unit of document text.
type PageChunk struct {
	Text       string
	PageNumber int
}

// Chunker splits extracted document text into ordered, page-tagged chunks.
// Any segmentation strategy satisfying the ordered, monotonically
// non-decreasing page contract is substitutable.
type Chunker interface {
	Chunk(documentText string) []PageChunk
}

// SentenceChunker splits on a literal sentence delimiter and tracks page
// numbers from page-break markers embedded in the text.
type SentenceChunker struct {
	Delimiter string
	PageBreak string
}

// NewSentenceChunker returns a chunker with the default ". " delimiter and
// "\n\n" page break.
func NewSentenceChunker() *SentenceChunker {
	return &SentenceChunker{
		Delimiter: DefaultSentenceDelimiter,
		PageBreak: DefaultPageBreak,
	}
}

// Chunk splits documentText on the sentence delimiter. The page counter
// starts at 1. Page breaks in the whitespace preceding a chunk's text count
// toward that chunk's page; page breaks inside or after its text count
// toward the chunks that follow, so page numbers are non-decreasing in
// output order and a sentence that opens a new page is tagged with it.
//
// Whitespace-only segments are skipped rather than emitted as degenerate
// empty chunks, but any page breaks they carry still advance the counter.
// Empty input yields an empty result, not an error.
func (c *SentenceChunker) Chunk(documentText string) []PageChunk {
	if strings.TrimSpace(documentText) == "" {
		return nil
	}

	delimiter := c.Delimiter
	if delimiter == "" {
		delimiter = DefaultSentenceDelimiter
	}
	pageBreak := c.PageBreak
	if pageBreak == "" {
		pageBreak = DefaultPageBreak
	}

	segments := strings.Split(documentText, delimiter)
	chunks := make([]PageChunk, 0, len(segments))
	page := 1

	for _, segment := range segments {
		trimmed := strings.TrimLeft(segment, " \t\r\n")
		lead := segment[:len(segment)-len(trimmed)]
		page += strings.Count(lead, pageBreak)

		text := strings.TrimSpace(trimmed)
		if text != "" {
			chunks = append(chunks, PageChunk{Text: text, PageNumber: page})
		}

		page += strings.Count(trimmed, pageBreak)
	}

	return chunks
}
