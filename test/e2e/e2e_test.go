//go:build e2e

// End-to-end tests over the full in-process stack: HTTP router, handlers,
// chat engine, ingestion pipeline and the in-memory chunk store, with the
// prediction backend replaced by a local stub. The stub echoes the system
// context it received back as the generated answer, so assertions can see
// exactly what grounding reached the model.
package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/citeline/citeline/internal/api/handlers"
	"github.com/citeline/citeline/internal/docsource"
	"github.com/citeline/citeline/internal/repository"
	"github.com/citeline/citeline/internal/server"
	"github.com/citeline/citeline/internal/service"
	"github.com/citeline/citeline/internal/vertex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	embeddingModel = "embed-model"
	chatModel      = "chat-model"
)

// predictionStub mimics the prediction API. Embeddings are keyword scores so
// that related texts land close together under cosine distance; chat answers
// echo the instance context prefixed with "echo:".
type predictionStub struct {
	mu        sync.Mutex
	failEmbed bool
	chatCalls []chatCall
}

type chatCall struct {
	Context  string
	Messages []string
}

func (s *predictionStub) setFailEmbed(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failEmbed = fail
}

func (s *predictionStub) lastChat(t *testing.T) chatCall {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.chatCalls)
	return s.chatCalls[len(s.chatCalls)-1]
}

// vectorFor scores the text against fixed topics. The exact values do not
// matter, only that texts about the same topic are nearest neighbours.
func vectorFor(text string) []float32 {
	lower := strings.ToLower(text)
	score := func(words ...string) float32 {
		var n float32
		for _, w := range words {
			n += float32(strings.Count(lower, w))
		}
		return n
	}
	return []float32{
		score("paris", "france") + 0.01,
		score("berlin", "germany") + 0.01,
		score("tide", "moon") + 0.01,
	}
}

func (s *predictionStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.Contains(r.URL.Path, embeddingModel):
		s.mu.Lock()
		fail := s.failEmbed
		s.mu.Unlock()
		if fail {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
			return
		}

		var req struct {
			Instances []struct {
				Content string `json:"content"`
			} `json:"instances"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Instances) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"predictions": []map[string]any{
				{"embeddings": map[string]any{"values": vectorFor(req.Instances[0].Content)}},
			},
		})

	case strings.Contains(r.URL.Path, chatModel):
		var req struct {
			Instances []struct {
				Context  string `json:"context"`
				Messages []struct {
					Content string `json:"content"`
				} `json:"messages"`
			} `json:"instances"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Instances) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		call := chatCall{Context: req.Instances[0].Context}
		for _, m := range req.Instances[0].Messages {
			call.Messages = append(call.Messages, m.Content)
		}
		s.mu.Lock()
		s.chatCalls = append(s.chatCalls, call)
		s.mu.Unlock()

		_ = json.NewEncoder(w).Encode(map[string]any{
			"predictions": []map[string]any{
				{"candidates": []map[string]any{
					{"author": "bot", "content": "echo: " + call.Context},
				}},
			},
		})

	default:
		http.Error(w, "unknown model", http.StatusNotFound)
	}
}

type stack struct {
	api  *httptest.Server
	stub *predictionStub
}

func newStack(t *testing.T, docsDir string) *stack {
	t.Helper()

	stub := &predictionStub{}
	backend := httptest.NewServer(stub)
	t.Cleanup(backend.Close)

	provider := vertex.NewClient(vertex.Config{
		Endpoint:       backend.URL,
		Project:        "e2e",
		Location:       "local",
		EmbeddingModel: embeddingModel,
		ChatModel:      chatModel,
		AccessToken:    "test-token",
	})

	store := repository.NewMemoryChunkStore()
	chunker := service.NewSentenceChunker()
	pipeline := service.NewIngestPipeline(chunker, provider, store, service.IngestConfig{
		Concurrency: 2,
		Dimensions:  3,
	})
	sessions := service.NewSessionManager()
	engine := service.NewChatService(provider, provider, store, service.ChatConfig{RetrievalLimit: 1})

	router := server.NewRouter(server.RouterConfig{
		ChatHandler:      handlers.NewChatHandler(engine, sessions),
		EmbeddingHandler: handlers.NewEmbeddingHandler(provider),
		IngestHandler:    handlers.NewIngestHandler(docsource.NewFSSource(docsDir), pipeline),
	})

	api := httptest.NewServer(router)
	t.Cleanup(api.Close)

	return &stack{api: api, stub: stub}
}

func (s *stack) post(t *testing.T, path string, body any, out any) (int, string) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	resp, err := http.Post(s.api.URL+path, "application/json", &buf)
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw bytes.Buffer
	_, err = raw.ReadFrom(resp.Body)
	require.NoError(t, err)

	if out != nil && resp.StatusCode < 400 {
		require.NoError(t, json.Unmarshal(raw.Bytes(), out))
	}
	return resp.StatusCode, raw.String()
}

type chatRequest struct {
	Message   string `json:"message"`
	RAG       bool   `json:"rag"`
	SessionID string `json:"session_id,omitempty"`
}

type chatResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

func writeDocs(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	text := "Paris is the capital of France. \n\nBerlin is the capital of Germany."
	require.NoError(t, os.WriteFile(filepath.Join(dir, "geography.txt"), []byte(text), 0o644))
	return dir
}

func TestGroundedChatCitesSourceAndPage(t *testing.T) {
	s := newStack(t, writeDocs(t))

	status, body := s.post(t, "/ingest", nil, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Contains(t, body, `"chunks_inserted":2`)

	var resp chatResponse
	status, _ = s.post(t, "/chat", chatRequest{Message: "What is the capital of Germany?", RAG: true}, &resp)
	require.Equal(t, http.StatusOK, status)

	// The stub echoes the grounding context, which must quote the matching
	// chunk and name its source document and page.
	assert.Contains(t, resp.Message, "Berlin is the capital of Germany")
	assert.Contains(t, resp.Message, "geography.txt")
	assert.Contains(t, resp.Message, "page 2")
	assert.NotEmpty(t, resp.SessionID)
}

func TestUngroundedChatSkipsRetrieval(t *testing.T) {
	s := newStack(t, writeDocs(t))

	var resp chatResponse
	status, _ := s.post(t, "/chat", chatRequest{Message: "Tell me a joke", RAG: false}, &resp)
	require.Equal(t, http.StatusOK, status)

	assert.Contains(t, resp.Message, "RAG is off")
	assert.Contains(t, resp.Message, "I don't know")
}

func TestEmptyStoreRefusesGroundedAnswer(t *testing.T) {
	s := newStack(t, t.TempDir())

	status, body := s.post(t, "/chat", chatRequest{Message: "What is the capital of France?", RAG: true}, nil)

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Contains(t, body, "NO_GROUNDING")
}

func TestEmbeddingProviderFailureIsBadGateway(t *testing.T) {
	s := newStack(t, writeDocs(t))

	status, _ := s.post(t, "/ingest", nil, nil)
	require.Equal(t, http.StatusOK, status)

	s.stub.setFailEmbed(true)
	status, body := s.post(t, "/chat", chatRequest{Message: "What is the capital of France?", RAG: true}, nil)

	assert.Equal(t, http.StatusBadGateway, status)
	assert.Contains(t, body, "EMBEDDING_FAILURE")
}

func TestIngestFailuresAreReportedPerChunk(t *testing.T) {
	s := newStack(t, writeDocs(t))

	s.stub.setFailEmbed(true)
	status, body := s.post(t, "/ingest", nil, nil)

	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"chunks_inserted":0`)
	assert.Contains(t, body, "geography.txt")
}

func TestSessionHistoryAccumulatesAcrossTurns(t *testing.T) {
	s := newStack(t, writeDocs(t))

	status, _ := s.post(t, "/ingest", nil, nil)
	require.Equal(t, http.StatusOK, status)

	var first chatResponse
	status, _ = s.post(t, "/chat", chatRequest{Message: "What is the capital of France?", RAG: true}, &first)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, first.SessionID)

	var second chatResponse
	status, _ = s.post(t, "/chat", chatRequest{
		Message:   "And the capital of Germany?",
		RAG:       true,
		SessionID: first.SessionID,
	}, &second)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, first.SessionID, second.SessionID)

	// Second turn carries user, assistant, user.
	call := s.stub.lastChat(t)
	require.Len(t, call.Messages, 3)
	assert.Equal(t, "And the capital of Germany?", call.Messages[2])
}

func TestSwitchingModeClearsHistory(t *testing.T) {
	s := newStack(t, writeDocs(t))

	status, _ := s.post(t, "/ingest", nil, nil)
	require.Equal(t, http.StatusOK, status)

	var first chatResponse
	status, _ = s.post(t, "/chat", chatRequest{Message: "first question", RAG: false}, &first)
	require.Equal(t, http.StatusOK, status)

	var second chatResponse
	status, _ = s.post(t, "/chat", chatRequest{
		Message:   "What is the capital of France?",
		RAG:       true,
		SessionID: first.SessionID,
	}, &second)
	require.Equal(t, http.StatusOK, status)

	call := s.stub.lastChat(t)
	require.Len(t, call.Messages, 1)
	assert.Equal(t, "What is the capital of France?", call.Messages[0])
}

func TestEmbeddingEndpointReturnsVector(t *testing.T) {
	s := newStack(t, t.TempDir())

	var resp struct {
		Embeddings []float32 `json:"embeddings"`
	}
	status, _ := s.post(t, "/embedding", map[string]string{"text": "the moon pulls the tide"}, &resp)

	require.Equal(t, http.StatusOK, status)
	require.Len(t, resp.Embeddings, 3)
	assert.Greater(t, resp.Embeddings[2], float32(1))
}

func TestHealth(t *testing.T) {
	s := newStack(t, t.TempDir())

	resp, err := http.Get(s.api.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
