package handlers

import (
	"context"
	"net/http"

	"github.com/citeline/citeline/internal/api"
	"github.com/citeline/citeline/internal/service"
)

type DocumentSource interface {
	Load(ctx context.Context) ([]service.Document, error)
}

type Ingestor interface {
	Ingest(ctx context.Context, docs []service.Document) (*service.IngestReport, error)
}

type IngestHandler struct {
	source   DocumentSource
	pipeline Ingestor
}

func NewIngestHandler(source DocumentSource, pipeline Ingestor) *IngestHandler {
	return &IngestHandler{source: source, pipeline: pipeline}
}

type IngestFailure struct {
	SourceID   string `json:"source_id"`
	PageNumber int    `json:"page_number"`
	Error      string `json:"error"`
}

type IngestResponse struct {
	Documents      int             `json:"documents"`
	ChunksInserted int             `json:"chunks_inserted"`
	Failures       []IngestFailure `json:"failures"`
}

// Post loads every document from the configured source and runs the
// ingestion pipeline over them. Per-chunk failures are reported in the
// response body, not as an HTTP error; the run itself still succeeded.
func (h *IngestHandler) Post(w http.ResponseWriter, r *http.Request) {
	docs, err := h.source.Load(r.Context())
	if err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to load documents: "+err.Error())
		return
	}

	report, err := h.pipeline.Ingest(r.Context(), docs)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := IngestResponse{
		Documents:      report.Documents,
		ChunksInserted: report.ChunksInserted,
		Failures:       make([]IngestFailure, 0, len(report.Failures)),
	}
	for _, f := range report.Failures {
		resp.Failures = append(resp.Failures, IngestFailure{
			SourceID:   f.SourceID,
			PageNumber: f.PageNumber,
			Error:      f.Err.Error(),
		})
	}

	api.JSON(w, http.StatusOK, resp)
}
