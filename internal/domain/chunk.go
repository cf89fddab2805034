package domain

import (
	"fmt"
	"strings"
	"time"
)

// Chunk is one retrievable unit of source text. Chunks are created during
// ingestion and never updated afterwards; re-ingesting a document appends
// new chunks.
type Chunk struct {
	ID         string
	SourceID   string
	PageNumber int
	Text       string
	Embedding  []float32
	CreatedAt  time.Time
}

// ScoredChunk pairs a chunk with its similarity score for a query vector.
type ScoredChunk struct {
	Chunk *Chunk
	Score float32
}

// ValidateChunk validates a Chunk before persistence. A dimensions value of
// zero skips the dimension check (the store enforces it on first insert).
func ValidateChunk(c *Chunk, dimensions int) error {
	if c == nil {
		return fmt.Errorf("chunk cannot be nil")
	}

	if c.SourceID == "" {
		return &DomainError{Code: ErrCodeValidation, Message: "chunk SourceID is required"}
	}

	if c.PageNumber < 1 {
		return &DomainError{Code: ErrCodeValidation, Message: fmt.Sprintf("chunk PageNumber must be >= 1, got %d", c.PageNumber)}
	}

	if strings.TrimSpace(c.Text) == "" {
		return &DomainError{Code: ErrCodeValidation, Message: "chunk Text cannot be empty"}
	}

	if len(c.Embedding) == 0 {
		return &DomainError{Code: ErrCodeValidation, Message: "chunk Embedding is required"}
	}

	if dimensions > 0 && len(c.Embedding) != dimensions {
		return &DomainError{
			Code:    ErrCodeValidation,
			Message: fmt.Sprintf("chunk Embedding has %d dimensions, store expects %d", len(c.Embedding), dimensions),
		}
	}

	return nil
}
