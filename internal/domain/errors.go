package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Common domain error codes. Embedding, generation, grounding and store
// codes are distinguishable at the API boundary so callers can tell a
// malformed request from a missing grounding from an upstream model failure.
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeEmbeddingFailure = "EMBEDDING_FAILURE"
	ErrCodeGenerationFailed = "GENERATION_FAILURE"
	ErrCodeNoGrounding      = "NO_GROUNDING"
	ErrCodeStoreFailure     = "STORE_FAILURE"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// NewEmbeddingFailure wraps a transport or parse error from the embedding
// provider. The enclosing chunk (ingestion) or turn (query) is aborted; the
// core never retries.
func NewEmbeddingFailure(err error) *DomainError {
	return &DomainError{Code: ErrCodeEmbeddingFailure, Message: "embedding provider call failed", Err: err}
}

// NewGenerationFailure wraps a transport or parse error from the generative
// provider. The turn is aborted with the user message recorded but no
// assistant reply.
func NewGenerationFailure(err error) *DomainError {
	return &DomainError{Code: ErrCodeGenerationFailed, Message: "generation provider call failed", Err: err}
}

// NewStoreFailure wraps a persistence error from the chunk store.
func NewStoreFailure(err error) *DomainError {
	return &DomainError{Code: ErrCodeStoreFailure, Message: "chunk store operation failed", Err: err}
}

// Validation errors
var (
	ErrEmptyMessage   = &DomainError{Code: ErrCodeValidation, Message: "message cannot be empty"}
	ErrEmptyText      = &DomainError{Code: ErrCodeValidation, Message: "text cannot be empty"}
	ErrEmptyEmbedding = &DomainError{Code: ErrCodeValidation, Message: "embedding cannot be empty"}
)

// ErrNoGrounding is the defined outcome when RAG is enabled but similarity
// search returned nothing. It is a business outcome, not a provider failure:
// the engine refuses to generate an ungrounded answer while claiming RAG.
var ErrNoGrounding = &DomainError{Code: ErrCodeNoGrounding, Message: "no relevant context found for query"}
