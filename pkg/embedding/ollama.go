package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaTier is the local on-device tier. It runs a separate pipeline per
// content type by selecting a model for each, so code can use a
// code-tuned embedder while text uses a general one.
type OllamaTier struct {
	baseURL    string
	models     map[ContentType]string
	httpClient *http.Client
}

// NewOllamaTier builds the local embedding tier. The models map picks the
// pipeline per content type; a missing entry falls back to the text model.
func NewOllamaTier(baseURL string, models map[ContentType]string) *OllamaTier {
	return &OllamaTier{
		baseURL:    baseURL,
		models:     models,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (t *OllamaTier) Name() string {
	return "ollama"
}

type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed generates an embedding through the local Ollama API.
func (t *OllamaTier) Embed(ctx context.Context, text string, contentType ContentType) ([]float32, string, error) {
	model, ok := t.models[contentType]
	if !ok {
		model = t.models[Text]
	}
	if model == "" {
		return nil, "", fmt.Errorf("no local model configured for content type %q", contentType)
	}

	data, err := json.Marshal(ollamaEmbedRequest{Model: model, Input: text})
	if err != nil {
		return nil, "", fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		t.baseURL+"/api/embed",
		bytes.NewReader(data),
	)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("ollama embed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read embed response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("ollama embed: status %d: %s", resp.StatusCode, string(body))
	}

	var result ollamaEmbedResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, "", fmt.Errorf("decode embed response: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, "", fmt.Errorf("ollama returned no embeddings")
	}

	return result.Embeddings[0], model, nil
}

// Health verifies the local runtime is reachable.
func (t *OllamaTier) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/api/tags", nil)
	if err != nil {
		return err
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama health check: status %d", resp.StatusCode)
	}
	return nil
}
