/*
Package qdrant is a thin HTTP client for the Qdrant REST API covering the
operations the vector memory store needs: collection bootstrap, point
upsert, retrieval, filtered k-nearest-neighbor search, and delete.
*/
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client wraps an endpoint + collection.
type Client struct {
	Endpoint   string // e.g. http://localhost:6333
	Collection string // e.g. "memory-text"
	httpClient *http.Client
}

// New returns a Client with sane defaults.
func New(endpoint, collection string) *Client {
	return &Client{
		Endpoint:   endpoint,
		Collection: collection,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// EnsureCollection creates the collection with a cosine vector index of the
// given dimension if it does not exist yet, plus a full-text payload index
// on content so keyword boosting works.
func (client *Client) EnsureCollection(ctx context.Context, dimension int) error {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		fmt.Sprintf("%s/collections/%s", client.Endpoint, client.Collection),
		nil,
	)
	if err != nil {
		return err
	}

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return nil
	}

	create := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}

	if err := client.do(ctx, http.MethodPut,
		fmt.Sprintf("%s/collections/%s", client.Endpoint, client.Collection),
		create, nil); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	index := map[string]any{
		"field_name":   "content",
		"field_schema": "text",
	}

	if err := client.do(ctx, http.MethodPut,
		fmt.Sprintf("%s/collections/%s/index", client.Endpoint, client.Collection),
		index, nil); err != nil {
		return fmt.Errorf("create content index: %w", err)
	}

	return nil
}

// Upsert writes a batch of points.
func (client *Client) Upsert(ctx context.Context, points []Point) error {
	body := make([]map[string]any, 0, len(points))
	for _, p := range points {
		body = append(body, map[string]any{
			"id":      p.ID,
			"vector":  p.Vector,
			"payload": p.Payload,
		})
	}

	return client.do(ctx, http.MethodPut,
		fmt.Sprintf("%s/collections/%s/points?wait=true", client.Endpoint, client.Collection),
		map[string]any{"points": body}, nil)
}

// Get retrieves a point by ID including its payload and vector.
func (client *Client) Get(ctx context.Context, id string) (*Point, error) {
	var out struct {
		Result struct {
			ID      any            `json:"id"`
			Payload map[string]any `json:"payload"`
			Vector  []float32      `json:"vector"`
		} `json:"result"`
	}

	err := client.do(ctx, http.MethodGet,
		fmt.Sprintf("%s/collections/%s/points/%s", client.Endpoint, client.Collection, id),
		nil, &out)
	if err != nil {
		return nil, err
	}

	return &Point{
		ID:      fmt.Sprintf("%v", out.Result.ID),
		Vector:  out.Result.Vector,
		Payload: out.Result.Payload,
	}, nil
}

// Delete removes a point by ID.
func (client *Client) Delete(ctx context.Context, id string) error {
	return client.do(ctx, http.MethodPost,
		fmt.Sprintf("%s/collections/%s/points/delete?wait=true", client.Endpoint, client.Collection),
		map[string]any{"points": []string{id}}, nil)
}

// SearchRequest describes one filtered knn query.
type SearchRequest struct {
	Vector         []float32
	Limit          int
	Offset         int
	Must           []Condition
	Keyword        string
	ScoreThreshold float64
}

// Condition is an exact-match payload filter.
type Condition struct {
	Key   string
	Value any
}

// Search performs a knn query combining the vector with exact-match payload
// filters, an optional full-text keyword boost on content, and an optional
// minimum score.
func (client *Client) Search(ctx context.Context, search SearchRequest) ([]ScoredPoint, error) {
	body := map[string]any{
		"vector":       search.Vector,
		"limit":        search.Limit,
		"offset":       search.Offset,
		"with_payload": true,
		"with_vector":  true,
	}

	if search.ScoreThreshold > 0 {
		body["score_threshold"] = search.ScoreThreshold
	}

	filter := map[string]any{}
	if len(search.Must) > 0 {
		must := make([]map[string]any, 0, len(search.Must))
		for _, cond := range search.Must {
			must = append(must, map[string]any{
				"key":   cond.Key,
				"match": map[string]any{"value": cond.Value},
			})
		}
		filter["must"] = must
	}
	if search.Keyword != "" {
		filter["should"] = []map[string]any{{
			"key":   "content",
			"match": map[string]any{"text": search.Keyword},
		}}
	}
	if len(filter) > 0 {
		body["filter"] = filter
	}

	var out struct {
		Result []struct {
			ID      any            `json:"id"`
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
			Vector  []float32      `json:"vector"`
		} `json:"result"`
	}

	err := client.do(ctx, http.MethodPost,
		fmt.Sprintf("%s/collections/%s/points/search", client.Endpoint, client.Collection),
		body, &out)
	if err != nil {
		return nil, err
	}

	points := make([]ScoredPoint, 0, len(out.Result))
	for _, r := range out.Result {
		points = append(points, ScoredPoint{
			Point: Point{
				ID:      fmt.Sprintf("%v", r.ID),
				Vector:  r.Vector,
				Payload: r.Payload,
			},
			Score: r.Score,
		})
	}

	return points, nil
}

// Health checks the connection to the Qdrant server.
func (client *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, client.Endpoint+"/collections", nil,
	)
	if err != nil {
		return err
	}

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant: health status %s", resp.Status)
	}
	return nil
}

func (client *Client) do(ctx context.Context, method, url string, body any, out any) error {
	var buf []byte
	if body != nil {
		var err error
		buf, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("qdrant: not found: %s", url)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant: unexpected status %s", resp.Status)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return err
		}
	}
	return nil
}
