// Package docsource loads raw documents for ingestion. A source yields each
// document's text with form-feed page boundaries already normalized to the
// chunker's page break marker, and the document's name as its source ID.
package docsource

import (
	"context"

	"github.com/citeline/citeline/internal/service"
)

// Source enumerates and reads ingestable documents.
type Source interface {
	Load(ctx context.Context) ([]service.Document, error)
}
