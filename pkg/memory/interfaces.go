package memory

import (
	"context"

	"github.com/blueshiftlabs-ai/bedrock-agent-system-sub000/pkg/embedding"
)

// Embedder is the slice of the embedding generator the orchestrator needs.
type Embedder interface {
	Generate(ctx context.Context, text string, contentType embedding.ContentType, language string) embedding.Result
	Dimension() int
}

// VectorQuery describes one similarity search against the vector store.
type VectorQuery struct {
	Limit  int
	Offset int

	Type        MemoryType
	ContentType ContentType // empty searches every index
	AgentID     string
	SessionID   string
	Project     string
	Tags        []string

	Keyword       string
	MinSimilarity float64
}

// VectorHit is one ranked search result.
type VectorHit struct {
	Memory Memory
	Score  float64
}

// VectorStore provides per-content-type similarity search. Failures are
// soft: the orchestrator logs and continues without it.
type VectorStore interface {
	Index(ctx context.Context, mem Memory) (string, error)
	Search(ctx context.Context, vector []float32, query VectorQuery) ([]VectorHit, error)
	Update(ctx context.Context, mem Memory) error
	Delete(ctx context.Context, memoryID string, contentType ContentType) error
	Ping(ctx context.Context) error
}

// GraphStore manages relationship nodes and edges. Failures are soft in
// the same way as the vector store's.
type GraphStore interface {
	CreateMemoryNode(ctx context.Context, mem Memory) (string, error)
	LinkAttribution(ctx context.Context, memoryID, agentID, sessionID string) error
	AddEdge(ctx context.Context, conn Connection) error
	RelatedMemories(ctx context.Context, memoryID string, maxDepth int) ([]RelatedMemory, error)
	ConceptClusters(ctx context.Context, agentID string) ([]ConceptCluster, error)
	Connections(ctx context.Context, memoryID, relationshipType string, limit int) ([]Connection, error)
	EntityConnections(ctx context.Context, entityID, entityType string, limit int) ([]Connection, error)
	MergeInto(ctx context.Context, duplicateID, survivorID string) (int, error)
	DeleteMemory(ctx context.Context, memoryID string) error
	Ping(ctx context.Context) error
}
