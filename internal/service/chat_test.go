package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/citeline/citeline/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockGenerationClient is a mock implementation of GenerationClient
type MockGenerationClient struct {
	mock.Mock
}

func (m *MockGenerationClient) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

// MockChunkStore is a mock implementation of ChunkStore
type MockChunkStore struct {
	mock.Mock
}

func (m *MockChunkStore) Insert(ctx context.Context, c *domain.Chunk) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockChunkStore) Search(ctx context.Context, embedding []float32, limit int) ([]domain.ScoredChunk, error) {
	args := m.Called(ctx, embedding, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredChunk), args.Error(1)
}

func (m *MockChunkStore) DeleteBySource(ctx context.Context, sourceID string) (int64, error) {
	args := m.Called(ctx, sourceID)
	return args.Get(0).(int64), args.Error(1)
}

func newChatService(embedder EmbeddingClient, generator GenerationClient, store ChunkStore) *ChatService {
	return NewChatService(embedder, generator, store, ChatConfig{
		EmbedTimeout:    time.Second,
		SearchTimeout:   time.Second,
		GenerateTimeout: time.Second,
		RetrievalLimit:  1,
	})
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	return de.Code
}

func TestChatService_Answer(t *testing.T) {
	ctx := context.Background()

	t.Run("grounded turn cites source document and page", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		generator := new(MockGenerationClient)
		store := new(MockChunkStore)
		svc := newChatService(embedder, generator, store)

		vector := []float32{0.1, 0.2, 0.3}
		embedder.On("Embed", mock.Anything, "What is the capital of France?").Return(vector, nil)
		store.On("Search", mock.Anything, vector, 1).Return([]domain.ScoredChunk{
			{Chunk: &domain.Chunk{SourceID: "geography.pdf", PageNumber: 3, Text: "Paris is the capital of France"}, Score: 0.93},
		}, nil)
		generator.On("Generate", mock.Anything, mock.MatchedBy(func(p domain.Prompt) bool {
			return assert.ObjectsAreEqual([]domain.Message{{Role: domain.RoleUser, Content: "What is the capital of France?"}}, p.Messages) &&
				len(p.Examples) == 0 &&
				contains(p.Context, "geography.pdf") &&
				contains(p.Context, "page 3") &&
				contains(p.Context, "Paris is the capital of France")
		})).Return("Paris, per geography.pdf page 3.", nil)

		session := domain.NewSession("s1")
		answer, err := svc.Answer(ctx, session, "What is the capital of France?", true)

		require.NoError(t, err)
		assert.Equal(t, "Paris, per geography.pdf page 3.", answer)

		history := session.History()
		require.Len(t, history, 2)
		assert.Equal(t, domain.RoleUser, history[0].Role)
		assert.Equal(t, domain.RoleAssistant, history[1].Role)
		assert.Equal(t, answer, history[1].Content)

		embedder.AssertExpectations(t)
		store.AssertExpectations(t)
		generator.AssertExpectations(t)
	})

	t.Run("ungrounded turn skips retrieval entirely", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		generator := new(MockGenerationClient)
		store := new(MockChunkStore)
		svc := newChatService(embedder, generator, store)

		generator.On("Generate", mock.Anything, mock.MatchedBy(func(p domain.Prompt) bool {
			return contains(p.Context, "RAG is off") && contains(p.Context, "I don't know")
		})).Return("I don't know", nil)

		session := domain.NewSession("s1")
		answer, err := svc.Answer(ctx, session, "hello", false)

		require.NoError(t, err)
		assert.Equal(t, "I don't know", answer)

		embedder.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty store refuses to answer in RAG mode", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		generator := new(MockGenerationClient)
		store := new(MockChunkStore)
		svc := newChatService(embedder, generator, store)

		embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.5}, nil)
		store.On("Search", mock.Anything, mock.Anything, 1).Return([]domain.ScoredChunk{}, nil)

		session := domain.NewSession("s1")
		_, err := svc.Answer(ctx, session, "anything", true)

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNoGrounding)
		generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)

		// The user message stays recorded with no reply.
		history := session.History()
		require.Len(t, history, 1)
		assert.Equal(t, domain.RoleUser, history[0].Role)
	})

	t.Run("embedding failure aborts the turn with a typed error", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		generator := new(MockGenerationClient)
		store := new(MockChunkStore)
		svc := newChatService(embedder, generator, store)

		embedder.On("Embed", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

		session := domain.NewSession("s1")
		_, err := svc.Answer(ctx, session, "anything", true)

		require.Error(t, err)
		assert.Equal(t, domain.ErrCodeEmbeddingFailure, domainCode(t, err))
		store.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
		generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	})

	t.Run("search failure aborts the turn with a store error", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		generator := new(MockGenerationClient)
		store := new(MockChunkStore)
		svc := newChatService(embedder, generator, store)

		embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.5}, nil)
		store.On("Search", mock.Anything, mock.Anything, 1).Return(nil, errors.New("db down"))

		session := domain.NewSession("s1")
		_, err := svc.Answer(ctx, session, "anything", true)

		require.Error(t, err)
		assert.Equal(t, domain.ErrCodeStoreFailure, domainCode(t, err))
	})

	t.Run("generation failure leaves the user message with no reply", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		generator := new(MockGenerationClient)
		store := new(MockChunkStore)
		svc := newChatService(embedder, generator, store)

		generator.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("model unavailable"))

		session := domain.NewSession("s1")
		_, err := svc.Answer(ctx, session, "hello", false)

		require.Error(t, err)
		assert.Equal(t, domain.ErrCodeGenerationFailed, domainCode(t, err))

		history := session.History()
		require.Len(t, history, 1)
		assert.Equal(t, domain.RoleUser, history[0].Role)
		assert.Equal(t, "hello", history[0].Content)
	})

	t.Run("empty message is rejected before touching the session", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		generator := new(MockGenerationClient)
		store := new(MockChunkStore)
		svc := newChatService(embedder, generator, store)

		session := domain.NewSession("s1")
		_, err := svc.Answer(ctx, session, "", true)

		require.Error(t, err)
		assert.Equal(t, domain.ErrCodeValidation, domainCode(t, err))
		assert.Empty(t, session.History())
	})

	t.Run("switching modes starts a fresh conversation", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		generator := new(MockGenerationClient)
		store := new(MockChunkStore)
		svc := newChatService(embedder, generator, store)

		generator.On("Generate", mock.Anything, mock.Anything).Return("ok", nil)
		embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.5}, nil)
		store.On("Search", mock.Anything, mock.Anything, 1).Return([]domain.ScoredChunk{
			{Chunk: &domain.Chunk{SourceID: "doc.pdf", PageNumber: 1, Text: "text"}, Score: 0.8},
		}, nil)

		session := domain.NewSession("s1")

		_, err := svc.Answer(ctx, session, "first", false)
		require.NoError(t, err)
		require.Len(t, session.History(), 2)

		_, err = svc.Answer(ctx, session, "second", true)
		require.NoError(t, err)

		// The earlier ungrounded exchange is gone; only the new turn remains.
		history := session.History()
		require.Len(t, history, 2)
		assert.Equal(t, "second", history[0].Content)
	})

	t.Run("repeating the same mode keeps history", func(t *testing.T) {
		embedder := new(MockEmbeddingClient)
		generator := new(MockGenerationClient)
		store := new(MockChunkStore)
		svc := newChatService(embedder, generator, store)

		generator.On("Generate", mock.Anything, mock.Anything).Return("ok", nil)

		session := domain.NewSession("s1")

		_, err := svc.Answer(ctx, session, "first", false)
		require.NoError(t, err)
		_, err = svc.Answer(ctx, session, "second", false)
		require.NoError(t, err)

		assert.Len(t, session.History(), 4)
	})
}

func contains(s, substr string) bool {
	return strings.Contains(s, substr)
}
