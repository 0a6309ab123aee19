package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/blueshiftlabs-ai/bedrock-agent-system-sub000/pkg/stores/qdrant"
)

/*
QdrantVectorStore keeps one collection per content type so text and code
embeddings never compete in the same index. Point ids are the memory ids;
the returned store id carries the collection prefix so callers can see
which index holds the point.
*/
type QdrantVectorStore struct {
	clients map[ContentType]*qdrant.Client
}

// NewQdrantVectorStore builds clients for the text and code collections
// under the given name prefix.
func NewQdrantVectorStore(endpoint, prefix string) *QdrantVectorStore {
	return &QdrantVectorStore{
		clients: map[ContentType]*qdrant.Client{
			ContentText: qdrant.New(endpoint, prefix+"-text"),
			ContentCode: qdrant.New(endpoint, prefix+"-code"),
		},
	}
}

// Bootstrap creates both collections with the deployment dimension.
func (store *QdrantVectorStore) Bootstrap(ctx context.Context, dimension int) error {
	for contentType, client := range store.clients {
		if err := client.EnsureCollection(ctx, dimension); err != nil {
			return fmt.Errorf("bootstrap %s collection: %w", contentType, err)
		}
	}
	return nil
}

func (store *QdrantVectorStore) client(contentType ContentType) *qdrant.Client {
	if client, ok := store.clients[contentType]; ok {
		return client
	}
	return store.clients[ContentText]
}

func payloadFor(mem Memory) map[string]any {
	payload := map[string]any{
		"content":      mem.Content,
		"type":         string(mem.Type),
		"content_type": string(mem.ContentType),
		"created_at":   mem.CreatedAt.Format(time.RFC3339Nano),
		"confidence":   mem.Confidence,
	}
	if mem.AgentID != "" {
		payload["agent_id"] = mem.AgentID
	}
	if mem.SessionID != "" {
		payload["session_id"] = mem.SessionID
	}
	if mem.Project != "" {
		payload["project"] = mem.Project
	}
	if len(mem.Tags) > 0 {
		payload["tags"] = mem.Tags
	}
	return payload
}

func memoryFromPayload(id string, vector []float32, payload map[string]any) Memory {
	mem := Memory{ID: id, Embedding: vector}

	str := func(key string) string {
		if v, ok := payload[key].(string); ok {
			return v
		}
		return ""
	}

	mem.Content = str("content")
	mem.Type = MemoryType(str("type"))
	mem.ContentType = ContentType(str("content_type"))
	mem.AgentID = str("agent_id")
	mem.SessionID = str("session_id")
	mem.Project = str("project")

	if created, err := time.Parse(time.RFC3339Nano, str("created_at")); err == nil {
		mem.CreatedAt = created
	}
	if conf, ok := payload["confidence"].(float64); ok {
		mem.Confidence = conf
	}
	if tags, ok := payload["tags"].([]any); ok {
		for _, t := range tags {
			if tag, ok := t.(string); ok {
				mem.Tags = append(mem.Tags, tag)
			}
		}
	}
	return mem
}

// Index upserts the memory into the collection matching its content type
// and returns the prefixed store id.
func (store *QdrantVectorStore) Index(ctx context.Context, mem Memory) (string, error) {
	client := store.client(mem.ContentType)

	err := client.Upsert(ctx, []qdrant.Point{{
		ID:      mem.ID,
		Vector:  mem.Embedding,
		Payload: payloadFor(mem),
	}})
	if err != nil {
		return "", err
	}
	return client.Collection + "/" + mem.ID, nil
}

// Update re-upserts the memory; Qdrant upserts overwrite in place.
func (store *QdrantVectorStore) Update(ctx context.Context, mem Memory) error {
	_, err := store.Index(ctx, mem)
	return err
}

// Delete removes the point from the index for the given content type.
func (store *QdrantVectorStore) Delete(ctx context.Context, memoryID string, contentType ContentType) error {
	return store.client(contentType).Delete(ctx, memoryID)
}

// Search runs the knn query against one collection, or both when the query
// does not pin a content type, and merges the pages by score.
func (store *QdrantVectorStore) Search(ctx context.Context, vector []float32, query VectorQuery) ([]VectorHit, error) {
	var clients []*qdrant.Client
	if query.ContentType != "" {
		clients = append(clients, store.client(query.ContentType))
	} else {
		for _, client := range store.clients {
			clients = append(clients, client)
		}
	}

	request := qdrant.SearchRequest{
		Vector: vector,
		// Over-fetch so the merged page survives cross-collection ranking.
		Limit:          query.Offset + query.Limit,
		Keyword:        query.Keyword,
		ScoreThreshold: query.MinSimilarity,
	}
	if query.Type != "" {
		request.Must = append(request.Must, qdrant.Condition{Key: "type", Value: string(query.Type)})
	}
	if query.AgentID != "" {
		request.Must = append(request.Must, qdrant.Condition{Key: "agent_id", Value: query.AgentID})
	}
	if query.SessionID != "" {
		request.Must = append(request.Must, qdrant.Condition{Key: "session_id", Value: query.SessionID})
	}
	if query.Project != "" {
		request.Must = append(request.Must, qdrant.Condition{Key: "project", Value: query.Project})
	}
	for _, tag := range query.Tags {
		request.Must = append(request.Must, qdrant.Condition{Key: "tags", Value: tag})
	}

	var hits []VectorHit
	for _, client := range clients {
		points, err := client.Search(ctx, request)
		if err != nil {
			return nil, err
		}
		for _, point := range points {
			hits = append(hits, VectorHit{
				Memory: memoryFromPayload(point.ID, point.Vector, point.Payload),
				Score:  point.Score,
			})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	if query.Offset >= len(hits) {
		return nil, nil
	}
	hits = hits[query.Offset:]
	if query.Limit > 0 && len(hits) > query.Limit {
		hits = hits[:query.Limit]
	}
	return hits, nil
}

// Ping checks one endpoint; both collections share the server.
func (store *QdrantVectorStore) Ping(ctx context.Context) error {
	return store.clients[ContentText].Health(ctx)
}
