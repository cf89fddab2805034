package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/citeline/citeline/internal/domain"
	"github.com/google/uuid"
)

// Document is one source document handed to the ingestion pipeline. SourceID
// is the stable identifier (file or object name) used verbatim in citations.
type Document struct {
	SourceID string
	Text     string
}

// ChunkFailure records one chunk that could not be embedded or stored.
type ChunkFailure struct {
	SourceID   string
	PageNumber int
	Err        error
}

// IngestReport summarizes one ingestion run. Whether any failure is fatal is
// the caller's decision; the pipeline itself never aborts the corpus.
type IngestReport struct {
	Documents      int
	ChunksInserted int
	Failures       []ChunkFailure
}

// IngestConfig controls pipeline behavior.
type IngestConfig struct {
	// Concurrency bounds how many documents are processed in parallel.
	Concurrency int
	// EmbedTimeout is the per-chunk deadline on the embedding call.
	EmbedTimeout time.Duration
	// Dimensions, when positive, validates every embedding against the
	// store's configured dimension before insert.
	Dimensions int
}

// IngestPipeline drives Chunker, EmbeddingClient and ChunkStore over a batch
// of documents.
type IngestPipeline struct {
	chunker  Chunker
	embedder EmbeddingClient
	store    ChunkStore
	cfg      IngestConfig
}

// NewIngestPipeline creates a pipeline. A zero Concurrency means sequential
// document processing.
func NewIngestPipeline(chunker Chunker, embedder EmbeddingClient, store ChunkStore, cfg IngestConfig) *IngestPipeline {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &IngestPipeline{
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		cfg:      cfg,
	}
}

// Ingest processes documents in order of submission, up to Concurrency of
// them in parallel. Within a document, page numbers are assigned by the
// chunker from text order before any embedding call, then chunks are
// embedded and inserted one by one. A failing chunk is recorded in the
// report and processing continues with the next chunk and the next document.
func (p *IngestPipeline) Ingest(ctx context.Context, docs []Document) (*IngestReport, error) {
	report := &IngestReport{Documents: len(docs)}
	if len(docs) == 0 {
		return report, nil
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, p.cfg.Concurrency)
	)

	for _, doc := range docs {
		wg.Add(1)
		sem <- struct{}{}
		go func(doc Document) {
			defer wg.Done()
			defer func() { <-sem }()

			inserted, failures := p.ingestDocument(ctx, doc)

			mu.Lock()
			report.ChunksInserted += inserted
			report.Failures = append(report.Failures, failures...)
			mu.Unlock()
		}(doc)
	}

	wg.Wait()
	return report, ctx.Err()
}

func (p *IngestPipeline) ingestDocument(ctx context.Context, doc Document) (int, []ChunkFailure) {
	chunks := p.chunker.Chunk(doc.Text)
	if len(chunks) == 0 {
		log.Printf("ingest: %s produced no chunks", doc.SourceID)
		return 0, nil
	}

	inserted := 0
	var failures []ChunkFailure

	for _, pc := range chunks {
		if ctx.Err() != nil {
			failures = append(failures, ChunkFailure{SourceID: doc.SourceID, PageNumber: pc.PageNumber, Err: ctx.Err()})
			continue
		}

		chunk, err := p.buildChunk(ctx, doc.SourceID, pc)
		if err == nil {
			err = p.insertChunk(ctx, chunk)
		}
		if err != nil {
			log.Printf("ingest: %s page %d: %v", doc.SourceID, pc.PageNumber, err)
			failures = append(failures, ChunkFailure{SourceID: doc.SourceID, PageNumber: pc.PageNumber, Err: err})
			continue
		}
		inserted++
	}

	return inserted, failures
}

func (p *IngestPipeline) buildChunk(ctx context.Context, sourceID string, pc PageChunk) (*domain.Chunk, error) {
	embedCtx := ctx
	if p.cfg.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		embedCtx, cancel = context.WithTimeout(ctx, p.cfg.EmbedTimeout)
		defer cancel()
	}

	embedding, err := p.embedder.Embed(embedCtx, pc.Text)
	if err != nil {
		return nil, domain.NewEmbeddingFailure(err)
	}

	chunk := &domain.Chunk{
		ID:         uuid.NewString(),
		SourceID:   sourceID,
		PageNumber: pc.PageNumber,
		Text:       pc.Text,
		Embedding:  embedding,
		CreatedAt:  time.Now().UTC(),
	}

	if err := domain.ValidateChunk(chunk, p.cfg.Dimensions); err != nil {
		return nil, err
	}

	return chunk, nil
}

func (p *IngestPipeline) insertChunk(ctx context.Context, chunk *domain.Chunk) error {
	if err := p.store.Insert(ctx, chunk); err != nil {
		return domain.NewStoreFailure(err)
	}
	return nil
}
