package embedding

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAITier is the remote hosted-model tier. Any OpenAI-compatible
// endpoint works through the BaseURL override.
type OpenAITier struct {
	client    *openai.Client
	model     string
	dimension int
}

// OpenAIConfig holds the remote tier settings.
type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
}

// NewOpenAITier builds the remote embedding tier.
func NewOpenAITier(cfg OpenAIConfig) *OpenAITier {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAITier{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     cfg.Model,
		dimension: cfg.Dimension,
	}
}

func (t *OpenAITier) Name() string {
	return "openai"
}

// Embed requests a single embedding from the hosted model. Preprocessing
// has already happened by the time the text reaches a tier, so content
// type selects nothing here.
func (t *OpenAITier) Embed(ctx context.Context, text string, _ ContentType) ([]float32, string, error) {
	resp, err := t.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(t.model),
		Dimensions: t.dimension,
	})
	if err != nil {
		return nil, "", fmt.Errorf("create embeddings failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, "", fmt.Errorf("empty embedding response")
	}

	return resp.Data[0].Embedding, t.model, nil
}
