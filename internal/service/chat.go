package service

import (
	"context"
	"fmt"
	"time"

	"github.com/citeline/citeline/internal/domain"
	"github.com/citeline/citeline/internal/telemetry"
)

// ungroundedContext is the fixed system context when RAG is off: the model
// answers from general knowledge only and admits uncertainty.
const ungroundedContext = `You are a helpful chatbot, you are not allowed to lie or make stuff up. RAG is off. If you can't find the information the user is looking for say "I don't know".`

// ChatConfig holds the query engine's deadlines and retrieval depth.
type ChatConfig struct {
	EmbedTimeout    time.Duration
	SearchTimeout   time.Duration
	GenerateTimeout time.Duration
	// RetrievalLimit is how many chunks to retrieve; the top result grounds
	// the answer.
	RetrievalLimit int
}

// ChatService is the retrieval-augmented query engine. It orchestrates query
// embedding, similarity search, prompt assembly, the generation call and the
// session history update.
type ChatService struct {
	embedder  EmbeddingClient
	generator GenerationClient
	store     ChunkStore
	cfg       ChatConfig
}

func NewChatService(embedder EmbeddingClient, generator GenerationClient, store ChunkStore, cfg ChatConfig) *ChatService {
	if cfg.RetrievalLimit <= 0 {
		cfg.RetrievalLimit = 1
	}
	return &ChatService{
		embedder:  embedder,
		generator: generator,
		store:     store,
		cfg:       cfg,
	}
}

// Answer runs one conversation turn. The user message is appended to the
// session on entry; the assistant message is appended only after a
// successful generation, so a failed turn leaves the user message recorded
// with no reply. Callers detect this partial state via the returned error.
func (s *ChatService) Answer(ctx context.Context, session *domain.Session, userMessage string, rag bool) (string, error) {
	if userMessage == "" {
		return "", domain.ErrEmptyMessage
	}

	// One turn at a time per session; history append order matches arrival
	// order. Other sessions are unaffected.
	session.Lock()
	defer session.Unlock()

	session.SetMode(rag)
	session.AppendUser(userMessage)

	var promptContext string
	if rag {
		grounded, err := s.groundedContext(ctx, userMessage)
		if err != nil {
			return "", err
		}
		promptContext = grounded
	} else {
		promptContext = ungroundedContext
	}

	prompt := domain.Prompt{
		Context:  promptContext,
		Examples: []domain.Example{},
		Messages: session.History(),
	}

	genCtx, cancel := s.deadline(ctx, s.cfg.GenerateTimeout)
	defer cancel()

	ctxSpan, span := telemetry.StartSpan(genCtx, "chat.generate", telemetry.SpanAttributes{Operation: "generate"})
	answer, err := s.generator.Generate(ctxSpan, prompt)
	if err != nil {
		span.SetError(err)
		span.End()
		return "", domain.NewGenerationFailure(err)
	}
	span.End()

	session.AppendAssistant(answer)
	return answer, nil
}

// groundedContext embeds the user message, retrieves the best-matching
// chunk and builds a system context that names the chunk's source document
// and page number and quotes its text. When the store has no match, the turn
// surfaces ErrNoGrounding instead of generating an ungrounded answer.
func (s *ChatService) groundedContext(ctx context.Context, userMessage string) (string, error) {
	embedCtx, cancel := s.deadline(ctx, s.cfg.EmbedTimeout)
	defer cancel()

	ctxSpan, span := telemetry.StartSpan(embedCtx, "chat.embed", telemetry.SpanAttributes{Operation: "embed"})
	vector, err := s.embedder.Embed(ctxSpan, userMessage)
	if err != nil {
		span.SetError(err)
		span.End()
		return "", domain.NewEmbeddingFailure(err)
	}
	span.End()

	searchCtx, cancel := s.deadline(ctx, s.cfg.SearchTimeout)
	defer cancel()

	ctxSpan, span = telemetry.StartSpan(searchCtx, "chat.search", telemetry.SpanAttributes{Operation: "search"})
	results, err := s.store.Search(ctxSpan, vector, s.cfg.RetrievalLimit)
	if err != nil {
		span.SetError(err)
		span.End()
		return "", domain.NewStoreFailure(err)
	}
	span.End()

	if len(results) == 0 {
		return "", domain.ErrNoGrounding
	}

	top := results[0].Chunk
	return fmt.Sprintf(
		`Answer the user based on the relevant context, always tell the user the name of the source document and the page number as part of your answer: %q from %s, page %d.`,
		top.Text, top.SourceID, top.PageNumber,
	), nil
}

func (s *ChatService) deadline(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
