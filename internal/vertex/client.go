// Package vertex is a thin REST client for the Google Cloud prediction API,
// covering the text embedding and chat models the service runs against.
package vertex

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/citeline/citeline/internal/domain"
)

var (
	// ErrMalformedResponse is returned when a provider response does not
	// carry the expected fields. The caller must treat the whole call as
	// failed; a partial vector or answer is never returned.
	ErrMalformedResponse = errors.New("malformed prediction response")
	// ErrEmptyText is returned when text to embed is empty
	ErrEmptyText = errors.New("text cannot be empty")
)

// SamplingParams are the fixed generation settings for chat predictions.
// They are deployment configuration, not part of the per-call contract.
type SamplingParams struct {
	Temperature     float32
	MaxOutputTokens int
	TopP            float32
	TopK            int
}

// DefaultSamplingParams mirror the production chat deployment.
func DefaultSamplingParams() SamplingParams {
	return SamplingParams{
		Temperature:     0.2,
		MaxOutputTokens: 300,
		TopP:            0.95,
		TopK:            40,
	}
}

// Config holds the connection and model settings for a Client.
type Config struct {
	Endpoint       string // e.g. https://us-central1-aiplatform.googleapis.com
	Project        string
	Location       string
	Publisher      string
	EmbeddingModel string
	ChatModel      string
	AccessToken    string
	Sampling       SamplingParams
	HTTPClient     *http.Client
}

// Client calls the prediction endpoint for embeddings and chat generation.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Publisher == "" {
		cfg.Publisher = "google"
	}
	if cfg.Sampling == (SamplingParams{}) {
		cfg.Sampling = DefaultSamplingParams()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
	}
}

func (c *Client) modelURL(model string) string {
	return fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/%s/models/%s:predict",
		strings.TrimRight(c.cfg.Endpoint, "/"),
		c.cfg.Project,
		c.cfg.Location,
		c.cfg.Publisher,
		model,
	)
}

type embedInstance struct {
	Content string `json:"content"`
}

type embedRequest struct {
	Instances []embedInstance `json:"instances"`
}

// embedPrediction is the nested shape the embedding model answers with. The
// statistics block and any other metadata fields are ignored; only the
// values array defines the vector, in provider order.
type embedPrediction struct {
	Embeddings struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

type embedResponse struct {
	Predictions []embedPrediction `json:"predictions"`
}

// Embed returns the embedding vector for text. Transport failures, non-2xx
// statuses and responses missing the embeddings.values leaves all fail the
// call; the vector ordering is the provider's and is never permuted.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	req := embedRequest{Instances: []embedInstance{{Content: text}}}

	var resp embedResponse
	if err := c.postJSON(ctx, c.modelURL(c.cfg.EmbeddingModel), req, &resp, "embed"); err != nil {
		return nil, err
	}

	if len(resp.Predictions) == 0 {
		return nil, fmt.Errorf("%w: no predictions", ErrMalformedResponse)
	}

	values := resp.Predictions[0].Embeddings.Values
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: missing embeddings.values", ErrMalformedResponse)
	}

	return values, nil
}

type chatMessage struct {
	Author  string `json:"author"`
	Content string `json:"content"`
}

type chatExample struct {
	Input  struct {
		Content string `json:"content"`
	} `json:"input"`
	Output struct {
		Content string `json:"content"`
	} `json:"output"`
}

type chatInstance struct {
	Context  string        `json:"context"`
	Examples []chatExample `json:"examples"`
	Messages []chatMessage `json:"messages"`
}

type chatParameters struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	TopP            float32 `json:"topP"`
	TopK            int     `json:"topK"`
}

type chatRequest struct {
	Instances  []chatInstance `json:"instances"`
	Parameters chatParameters `json:"parameters"`
}

// chatPrediction carries the answer at candidates[0].content; everything
// else in the prediction is metadata.
type chatPrediction struct {
	Candidates []struct {
		Author  string `json:"author"`
		Content string `json:"content"`
	} `json:"candidates"`
}

type chatResponse struct {
	Predictions []chatPrediction `json:"predictions"`
}

// Generate sends the prompt's context, examples and history to the chat
// model and returns the literal answer text. Any deviation from the expected
// response shape fails the call.
func (c *Client) Generate(ctx context.Context, prompt domain.Prompt) (string, error) {
	instance := chatInstance{
		Context:  prompt.Context,
		Examples: make([]chatExample, 0, len(prompt.Examples)),
		Messages: make([]chatMessage, 0, len(prompt.Messages)),
	}

	for _, ex := range prompt.Examples {
		var ce chatExample
		ce.Input.Content = ex.Input
		ce.Output.Content = ex.Output
		instance.Examples = append(instance.Examples, ce)
	}

	for _, m := range prompt.Messages {
		instance.Messages = append(instance.Messages, chatMessage{
			Author:  authorFor(m.Role),
			Content: m.Content,
		})
	}

	req := chatRequest{
		Instances: []chatInstance{instance},
		Parameters: chatParameters{
			Temperature:     c.cfg.Sampling.Temperature,
			MaxOutputTokens: c.cfg.Sampling.MaxOutputTokens,
			TopP:            c.cfg.Sampling.TopP,
			TopK:            c.cfg.Sampling.TopK,
		},
	}

	var resp chatResponse
	if err := c.postJSON(ctx, c.modelURL(c.cfg.ChatModel), req, &resp, "chat"); err != nil {
		return "", err
	}

	if len(resp.Predictions) == 0 || len(resp.Predictions[0].Candidates) == 0 {
		return "", fmt.Errorf("%w: missing candidates", ErrMalformedResponse)
	}

	answer := resp.Predictions[0].Candidates[0].Content
	if answer == "" {
		return "", fmt.Errorf("%w: empty candidate content", ErrMalformedResponse)
	}

	return answer, nil
}

func authorFor(role domain.Role) string {
	if role == domain.RoleAssistant {
		return "bot"
	}
	return "user"
}
