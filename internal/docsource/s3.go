package docsource

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/citeline/citeline/internal/service"
)

// ObjectStore is the subset of the storage client the S3 source needs.
type ObjectStore interface {
	ListObjects(ctx context.Context, prefix string) ([]string, error)
	GetObject(ctx context.Context, key string) ([]byte, error)
}

// S3Source loads documents from an S3-compatible bucket. Object keys become
// source IDs verbatim.
type S3Source struct {
	store  ObjectStore
	prefix string
}

func NewS3Source(store ObjectStore, prefix string) *S3Source {
	return &S3Source{store: store, prefix: prefix}
}

// Load reads every supported object under the prefix. Unsupported extensions
// are skipped.
func (s *S3Source) Load(ctx context.Context) ([]service.Document, error) {
	keys, err := s.store.ListObjects(ctx, s.prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	docs := make([]service.Document, 0, len(keys))
	for _, key := range keys {
		if !supportedExtension(key) {
			continue
		}

		data, err := s.store.GetObject(ctx, key)
		if err != nil {
			return nil, err
		}

		text := string(data)
		if strings.EqualFold(path.Ext(key), ".pdf") {
			text, err = extractPDF(bytes.NewReader(data), int64(len(data)))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
		}

		docs = append(docs, service.Document{SourceID: key, Text: text})
	}

	return docs, nil
}
