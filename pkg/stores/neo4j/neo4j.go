/*
Package neo4j is a minimal HTTP client for the Neo4j transactional Cypher
endpoint, plus helpers for pulling rows out of its nested JSON response.
*/
package neo4j

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type Client struct {
	Endpoint   string
	Username   string
	Password   string
	httpClient *http.Client
}

func New(endpoint, user, pass string) *Client {
	return &Client{
		Endpoint:   endpoint,
		Username:   user,
		Password:   pass,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// ExecCypher sends a single Cypher statement with optional parameters and
// returns the raw Neo4j JSON response.
func (client *Client) ExecCypher(
	ctx context.Context, cypher string, params map[string]any,
) (map[string]any, error) {
	payload := map[string]any{
		"statements": []map[string]any{{
			"statement":  cypher,
			"parameters": params,
		}},
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		client.Endpoint+"/db/neo4j/tx/commit",
		bytes.NewReader(b),
	)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	if client.Username != "" {
		req.SetBasicAuth(client.Username, client.Password)
	}

	resp, err := client.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("neo4j: status %s", resp.Status)
	}

	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}

	if errs, ok := out["errors"].([]any); ok && len(errs) > 0 {
		if errObj, ok := errs[0].(map[string]any); ok {
			if msg, ok := errObj["message"].(string); ok {
				return nil, fmt.Errorf("neo4j: %s", msg)
			}
		}
		return nil, fmt.Errorf("neo4j: query returned errors")
	}

	return out, nil
}

// Rows extracts the row values of the first statement result. A malformed
// response yields an empty slice rather than a panic.
func Rows(result map[string]any) [][]any {
	results, ok := result["results"].([]any)
	if !ok || len(results) == 0 {
		return nil
	}

	first, ok := results[0].(map[string]any)
	if !ok {
		return nil
	}

	data, ok := first["data"].([]any)
	if !ok {
		return nil
	}

	rows := make([][]any, 0, len(data))
	for _, entry := range data {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		row, ok := obj["row"].([]any)
		if !ok {
			continue
		}
		rows = append(rows, row)
	}

	return rows
}

// Ping checks the connection with a constant query.
func (client *Client) Ping(ctx context.Context) error {
	_, err := client.ExecCypher(ctx, "RETURN 1 AS n", nil)
	return err
}
