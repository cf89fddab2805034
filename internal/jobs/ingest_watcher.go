package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/citeline/citeline/internal/service"
)

// DocumentSource enumerates ingestable documents.
type DocumentSource interface {
	Load(ctx context.Context) ([]service.Document, error)
}

// Ingestor runs the ingestion pipeline over a batch of documents.
type Ingestor interface {
	Ingest(ctx context.Context, docs []service.Document) (*service.IngestReport, error)
}

// IngestWatcher polls a document source and ingests documents it has not
// seen before. Seen source IDs are tracked in memory only, so a restart
// re-ingests everything; the store grows additively either way.
type IngestWatcher struct {
	source   DocumentSource
	pipeline Ingestor
	seen     map[string]struct{}
}

// NewIngestWatcher creates a new IngestWatcher instance
func NewIngestWatcher(source DocumentSource, pipeline Ingestor) *IngestWatcher {
	return &IngestWatcher{
		source:   source,
		pipeline: pipeline,
		seen:     make(map[string]struct{}),
	}
}

// Process implements the Processor interface. Called from a single Worker
// goroutine, never concurrently.
func (w *IngestWatcher) Process(ctx context.Context) error {
	docs, err := w.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load documents: %w", err)
	}

	var fresh []service.Document
	for _, doc := range docs {
		if _, ok := w.seen[doc.SourceID]; ok {
			continue
		}
		fresh = append(fresh, doc)
	}

	if len(fresh) == 0 {
		return nil
	}

	log.Printf("ingest watcher: found %d new documents", len(fresh))

	report, err := w.pipeline.Ingest(ctx, fresh)
	if err != nil {
		return fmt.Errorf("ingestion aborted: %w", err)
	}

	// Every attempted document is marked seen, failures included. Retrying a
	// partially ingested document would duplicate its successful chunks; a
	// failed document needs an explicit re-ingest after the cause is fixed.
	for _, f := range report.Failures {
		log.Printf("ingest watcher: %s page %d: %v", f.SourceID, f.PageNumber, f.Err)
	}
	for _, doc := range fresh {
		w.seen[doc.SourceID] = struct{}{}
	}

	log.Printf("ingest watcher: inserted %d chunks from %d documents (%d failures)",
		report.ChunksInserted, report.Documents, len(report.Failures))
	return nil
}
