package repository

import (
	"context"
	"time"

	"github.com/citeline/citeline/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository persists chunks with their embeddings in Postgres and
// answers similarity queries through pgvector's cosine distance operator.
type ChunkRepository struct {
	pool *pgxpool.Pool
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{pool: pool}
}

// Insert appends one chunk. Inserts are append-only; the seq identity column
// fixes insertion order for stable tie-breaking in Search. Concurrent
// inserts are safe; there is no cross-chunk invariant beyond the page
// ordering already fixed by the chunker.
func (r *ChunkRepository) Insert(ctx context.Context, c *domain.Chunk) error {
	id := c.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO chunks (id, source_id, page_number, content, embedding, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id,
		c.SourceID,
		c.PageNumber,
		c.Text,
		pgvector.NewVector(c.Embedding),
		createdAt,
	)
	return err
}

// Search returns up to limit chunks ranked by cosine similarity to the query
// vector, highest first. Ties rank by insertion order. An empty table yields
// an empty slice.
func (r *ChunkRepository) Search(ctx context.Context, embedding []float32, limit int) ([]domain.ScoredChunk, error) {
	if limit <= 0 {
		limit = 1
	}

	vec := pgvector.NewVector(embedding)

	rows, err := r.pool.Query(ctx,
		`SELECT id, source_id, page_number, content, embedding, created_at,
		        1 - (embedding <=> $1) AS score
		 FROM chunks
		 ORDER BY embedding <=> $1 ASC, seq ASC
		 LIMIT $2`,
		vec, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ScoredChunk, 0, limit)
	for rows.Next() {
		var (
			chunk domain.Chunk
			vec   pgvector.Vector
			score float32
		)
		if err := rows.Scan(&chunk.ID, &chunk.SourceID, &chunk.PageNumber, &chunk.Text, &vec, &chunk.CreatedAt, &score); err != nil {
			return nil, err
		}
		chunk.Embedding = vec.Slice()
		results = append(results, domain.ScoredChunk{Chunk: &chunk, Score: score})
	}

	return results, rows.Err()
}

// DeleteBySource removes every chunk ingested from one source document,
// enabling idempotent re-ingestion for callers that want it.
func (r *ChunkRepository) DeleteBySource(ctx context.Context, sourceID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM chunks WHERE source_id = $1`, sourceID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Count reports how many chunks are stored.
func (r *ChunkRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	return n, err
}
