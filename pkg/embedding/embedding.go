/*
Package embedding turns memory content into fixed-dimension vectors for
similarity search. Generation never fails: a chain of tiers is tried in
order (remote model, local model, deterministic hash) and the hash tier
always produces a vector of the configured dimension.
*/
package embedding

import (
	"context"
	"math"
	"sync"

	"github.com/charmbracelet/log"
)

// ContentType selects the preprocessing pipeline applied before encoding.
type ContentType string

const (
	Text ContentType = "text"
	Code ContentType = "code"
)

// Result is the outcome of one embedding generation.
type Result struct {
	Vector        []float32 `json:"vector"`
	ModelUsed     string    `json:"model_used"`
	TokenEstimate int       `json:"token_estimate"`
}

// Tier is a single embedding backend in the fallback chain. A tier either
// returns a complete vector or an error, never a partial result.
type Tier interface {
	Name() string
	Embed(ctx context.Context, text string, contentType ContentType) ([]float32, string, error)
}

// Generator is the embedding contract consumed by the orchestrator.
type Generator interface {
	Generate(ctx context.Context, text string, contentType ContentType, language string) Result
	GenerateBatch(ctx context.Context, texts []string, contentType ContentType, language string) []Result
	Dimension() int
}

// TieredGenerator walks a fallback chain of tiers and finishes with a
// deterministic hash embedding when every tier is unavailable.
type TieredGenerator struct {
	tiers     []Tier
	dimension int
}

// NewTieredGenerator builds a generator over the given tiers. The tiers are
// tried in the order supplied; the hash fallback is implicit and always last.
func NewTieredGenerator(dimension int, tiers ...Tier) *TieredGenerator {
	return &TieredGenerator{tiers: tiers, dimension: dimension}
}

// Dimension returns the deployment-wide vector dimension.
func (g *TieredGenerator) Dimension() int {
	return g.dimension
}

// Generate produces an embedding for text. It never returns an error: each
// tier failure is logged and the next tier is tried, ending at the hash
// embedding which always succeeds.
func (g *TieredGenerator) Generate(ctx context.Context, text string, contentType ContentType, language string) Result {
	prepared := Prepare(text, contentType, language)
	return g.encode(ctx, prepared, contentType)
}

// GenerateWithContext embeds code together with its structural context
// (functions, classes, imports, call graph) so relationship-heavy code gets
// relationship-sensitive vectors.
func (g *TieredGenerator) GenerateWithContext(ctx context.Context, text string, cc CodeContext) Result {
	prepared := cc.Header() + Prepare(text, Code, cc.Language)
	if len(prepared) > maxEmbedChars {
		prepared = prepared[:maxEmbedChars] + truncationMarker
	}
	return g.encode(ctx, prepared, Code)
}

// GenerateBatch fans the requests out independently so one slow or failing
// item never blocks the others.
func (g *TieredGenerator) GenerateBatch(ctx context.Context, texts []string, contentType ContentType, language string) []Result {
	results := make([]Result, len(texts))

	var wg sync.WaitGroup
	for i, text := range texts {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			results[i] = g.Generate(ctx, text, contentType, language)
		}(i, text)
	}
	wg.Wait()

	return results
}

func (g *TieredGenerator) encode(ctx context.Context, prepared string, contentType ContentType) Result {
	estimate := tokenEstimate(prepared)

	for _, tier := range g.tiers {
		vector, model, err := tier.Embed(ctx, prepared, contentType)
		if err != nil {
			log.Warn("embedding tier failed, falling through",
				"tier", tier.Name(), "error", err)
			continue
		}
		if len(vector) != g.dimension {
			log.Warn("embedding tier returned wrong dimension, falling through",
				"tier", tier.Name(), "got", len(vector), "want", g.dimension)
			continue
		}
		return Result{Vector: vector, ModelUsed: model, TokenEstimate: estimate}
	}

	return Result{
		Vector:        hashVector(prepared, g.dimension),
		ModelUsed:     hashModelName,
		TokenEstimate: estimate,
	}
}

// Cosine returns the cosine similarity of two vectors, or 0 when either is
// empty, zero, or the dimensions disagree.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// tokenEstimate approximates the token count the way most BPE tokenizers
// average out: about four characters per token.
func tokenEstimate(text string) int {
	return (len(text) + 3) / 4
}
