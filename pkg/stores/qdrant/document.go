package qdrant

// Point is one indexed vector plus its searchable payload.
type Point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

// ScoredPoint is a search hit ranked by similarity, highest first.
type ScoredPoint struct {
	Point
	Score float64 `json:"score"`
}
