package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	// Empty DATABASE_URL falls back to the in-memory chunk store.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Provider selects the embedding/generation backend: "vertex" or "openai".
	Provider string `envconfig:"PROVIDER" default:"vertex"`

	GoogleAPIEndpoint string `envconfig:"GOOGLE_API_ENDPOINT" default:"https://us-central1-aiplatform.googleapis.com"`
	GoogleProject     string `envconfig:"GOOGLE_PROJECT"`
	GoogleLocation    string `envconfig:"GOOGLE_LOCATION" default:"us-central1"`
	GooglePublisher   string `envconfig:"GOOGLE_PUBLISHER" default:"google"`
	GoogleAccessToken string `envconfig:"GOOGLE_ACCESS_TOKEN"`
	EmbeddingModel    string `envconfig:"EMBEDDING_MODEL" default:"textembedding-gecko@003"`
	ChatModel         string `envconfig:"CHAT_MODEL" default:"chat-bison@002"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// EmbeddingDimensions must match the vector column in the chunks table.
	EmbeddingDimensions int `envconfig:"EMBEDDING_DIMENSIONS" default:"768"`

	// Document source: a local directory and/or an S3-compatible bucket.
	DocsDir       string        `envconfig:"DOCS_DIR" default:"./docs"`
	IngestWatch   bool          `envconfig:"INGEST_WATCH" default:"false"`
	WatchInterval time.Duration `envconfig:"WATCH_INTERVAL" default:"30s"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"citeline-docs"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Prefix    string `envconfig:"S3_PREFIX"`

	// Per-call deadlines on external operations. Exceeding one produces a
	// typed failure instead of hanging the calling session.
	EmbedTimeout    time.Duration `envconfig:"EMBED_TIMEOUT" default:"30s"`
	GenerateTimeout time.Duration `envconfig:"GENERATE_TIMEOUT" default:"60s"`
	SearchTimeout   time.Duration `envconfig:"SEARCH_TIMEOUT" default:"10s"`

	IngestConcurrency int `envconfig:"INGEST_CONCURRENCY" default:"4"`

	// RetrievalLimit is how many chunks ground a RAG answer.
	RetrievalLimit int `envconfig:"RETRIEVAL_LIMIT" default:"1"`

	// Sampling parameters for the generative model.
	Temperature     float32 `envconfig:"TEMPERATURE" default:"0.2"`
	MaxOutputTokens int     `envconfig:"MAX_OUTPUT_TOKENS" default:"300"`
	TopP            float32 `envconfig:"TOP_P" default:"0.95"`
	TopK            int     `envconfig:"TOP_K" default:"40"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("CITELINE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

func (c *Config) HasVertex() bool {
	return c.GoogleProject != "" && c.GoogleAccessToken != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}
