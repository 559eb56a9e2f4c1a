package embedding

import (
	"context"
	"errors"
	"fmt"

	"document-index/internal/config"

	openai "github.com/sashabaranov/go-openai"
)

// AzureEmbedder calls an Azure OpenAI embeddings deployment. The configured
// model name is mapped to the deployment name.
type AzureEmbedder struct {
	client *openai.Client
	model  string
}

func NewAzureEmbedder(llmConfig *config.LLMConfig) (*AzureEmbedder, error) {
	if llmConfig.BaseURL == "" {
		return nil, errors.New("azure provider requires base_url")
	}
	cfg := openai.DefaultAzureConfig(llmConfig.Key, llmConfig.BaseURL)
	return &AzureEmbedder{
		client: openai.NewClientWithConfig(cfg),
		model:  llmConfig.Model,
	}, nil
}

func (e *AzureEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range for %d inputs", d.Index, len(texts))
		}
		vectors[d.Index] = d.Embedding
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("no embedding returned for input %d", i)
		}
	}
	return vectors, nil
}
