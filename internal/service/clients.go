package service

import (
	"context"

	"github.com/citeline/citeline/internal/domain"
)

// EmbeddingClient converts text into a fixed-dimension vector. The same
// client serves ingestion and query time so both sets of vectors live in the
// same embedding space.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GenerationClient produces an answer for a prompt. Sampling parameters are
// provider configuration, not part of the call.
type GenerationClient interface {
	Generate(ctx context.Context, prompt domain.Prompt) (string, error)
}

// ChunkStore persists chunks and answers nearest-neighbor queries.
// Insert is append-only and safe for concurrent callers; idempotency is not
// assumed; callers wanting idempotent re-ingestion use DeleteBySource first.
type ChunkStore interface {
	Insert(ctx context.Context, chunk *domain.Chunk) error

	// Search returns up to limit chunks ranked by cosine similarity,
	// highest first, ties broken by insertion order. An empty store yields
	// an empty result, not an error.
	Search(ctx context.Context, embedding []float32, limit int) ([]domain.ScoredChunk, error)

	// DeleteBySource removes all chunks ingested from one source document
	// and reports how many were deleted.
	DeleteBySource(ctx context.Context, sourceID string) (int64, error)
}
