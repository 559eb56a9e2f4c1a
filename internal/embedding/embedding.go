package embedding

import (
	"context"
	"errors"
	"fmt"

	"document-index/internal/config"
	"document-index/internal/llmservice"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
)

var ErrInvalidArgument = errors.New("invalid argument")

// Embedder turns an ordered list of texts into one vector per text.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// NewEmbedder creates the embedder for the configured provider. The
// credential must already be resolved. Callers should close the result when
// it implements io.Closer.
func NewEmbedder(ctx context.Context, llmConfig *config.LLMConfig) (Embedder, error) {
	log.Debug().
		Str("provider", llmConfig.Provider).
		Str("model", llmConfig.Model).
		Int("batch_size", llmConfig.BatchSize).
		Msg("Initializing embedder")

	switch llmConfig.Provider {
	case config.ProviderOpenAI, config.ProviderOllama:
		client, err := llmservice.NewEmbeddingClient(llmConfig)
		if err != nil {
			return nil, fmt.Errorf("create %s client: %w", llmConfig.Provider, err)
		}
		// one request per pipeline batch
		embedder, err := embeddings.NewEmbedder(client,
			embeddings.WithBatchSize(max(llmConfig.BatchSize, 1)),
			embeddings.WithStripNewLines(false),
		)
		if err != nil {
			return nil, fmt.Errorf("create embedder: %w", err)
		}
		return embedder, nil
	case config.ProviderAzure:
		embedder, err := NewAzureEmbedder(llmConfig)
		if err != nil {
			return nil, err
		}
		return embedder, nil
	case config.ProviderGemini:
		embedder, err := NewGeminiEmbedder(ctx, llmConfig)
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		return embedder, nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownProvider, llmConfig.Provider)
	}
}
