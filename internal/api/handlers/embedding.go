package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/citeline/citeline/internal/api"
	"github.com/citeline/citeline/internal/domain"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type EmbeddingHandler struct {
	embedder Embedder
}

func NewEmbeddingHandler(embedder Embedder) *EmbeddingHandler {
	return &EmbeddingHandler{embedder: embedder}
}

type EmbeddingRequest struct {
	Text string `json:"text"`
}

type EmbeddingResponse struct {
	Embeddings []float32 `json:"embeddings"`
}

// Post embeds a single text and returns the raw vector. Exposed for
// inspection and tooling; ingestion does not go through this endpoint.
func (h *EmbeddingHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req EmbeddingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Text == "" {
		api.Error(w, http.StatusBadRequest, "text is required")
		return
	}

	embedding, err := h.embedder.Embed(r.Context(), req.Text)
	if err != nil {
		api.HandleError(w, domain.NewEmbeddingFailure(err))
		return
	}

	api.JSON(w, http.StatusOK, EmbeddingResponse{Embeddings: embedding})
}
