package repository

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/citeline/citeline/internal/domain"
	"github.com/google/uuid"
)

// MemoryChunkStore is an exact in-memory chunk store with cosine similarity
// search. It backs deployments without a database and most tests. The first
// inserted chunk fixes the store's dimension; later inserts must match.
type MemoryChunkStore struct {
	mu         sync.RWMutex
	chunks     []*domain.Chunk
	dimensions int
}

func NewMemoryChunkStore() *MemoryChunkStore {
	return &MemoryChunkStore{}
}

// Insert appends one chunk.
func (s *MemoryChunkStore) Insert(_ context.Context, c *domain.Chunk) error {
	if c == nil || len(c.Embedding) == 0 {
		return domain.ErrEmptyEmbedding
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimensions == 0 {
		s.dimensions = len(c.Embedding)
	} else if len(c.Embedding) != s.dimensions {
		return fmt.Errorf("embedding has %d dimensions, store expects %d", len(c.Embedding), s.dimensions)
	}

	stored := *c
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	stored.Embedding = append([]float32(nil), c.Embedding...)

	s.chunks = append(s.chunks, &stored)
	return nil
}

// Search ranks all chunks by cosine similarity, highest first. The stable
// sort keeps insertion order for tied scores. Searching an empty store
// returns an empty slice.
func (s *MemoryChunkStore) Search(_ context.Context, embedding []float32, limit int) ([]domain.ScoredChunk, error) {
	if len(embedding) == 0 {
		return nil, domain.ErrEmptyEmbedding
	}
	if limit <= 0 {
		limit = 1
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.chunks) == 0 {
		return []domain.ScoredChunk{}, nil
	}
	if len(embedding) != s.dimensions {
		return nil, fmt.Errorf("query vector has %d dimensions, store expects %d", len(embedding), s.dimensions)
	}

	results := make([]domain.ScoredChunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		results = append(results, domain.ScoredChunk{
			Chunk: c,
			Score: cosineSimilarity(embedding, c.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}

// DeleteBySource removes every chunk with the given source ID.
func (s *MemoryChunkStore) DeleteBySource(_ context.Context, sourceID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.chunks[:0]
	var deleted int64
	for _, c := range s.chunks {
		if c.SourceID == sourceID {
			deleted++
			continue
		}
		kept = append(kept, c)
	}
	s.chunks = kept
	return deleted, nil
}

// Len reports how many chunks are stored.
func (s *MemoryChunkStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func cosineSimilarity(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
