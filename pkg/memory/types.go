// Package memory implements the memory orchestration engine: one
// coordinator fanning writes and reads across a metadata store (the
// authoritative record), a vector similarity index, and a graph
// relationship store, each of which may degrade independently.
package memory

import (
	"time"
)

// MemoryType classifies what kind of knowledge a memory holds.
type MemoryType string

const (
	Episodic   MemoryType = "episodic"
	Semantic   MemoryType = "semantic"
	Procedural MemoryType = "procedural"
	Working    MemoryType = "working"
)

// ContentType determines which index schema and preprocessing apply.
type ContentType string

const (
	ContentText ContentType = "text"
	ContentCode ContentType = "code"
)

// Memory is the core entity persisted across all three stores. The
// metadata record is authoritative; the vector and graph copies are
// denormalized projections.
type Memory struct {
	ID          string      `json:"memory_id"`
	Type        MemoryType  `json:"type"`
	ContentType ContentType `json:"content_type"`
	Content     string      `json:"content"`
	Embedding   []float32   `json:"embedding,omitempty"`

	AgentID   string   `json:"agent_id,omitempty"`
	SessionID string   `json:"session_id,omitempty"`
	Project   string   `json:"project,omitempty"`
	Tags      []string `json:"tags,omitempty"`

	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	LastAccessed time.Time `json:"last_accessed"`
	AccessCount  int       `json:"access_count"`
	Confidence   float64   `json:"confidence"`

	// Content-type-specific extensions, attached at creation and never
	// recomputed afterwards.
	Code *CodeAttributes `json:"code,omitempty"`
	Text *TextAttributes `json:"text,omitempty"`

	ModelUsed     string `json:"model_used,omitempty"`
	TokenEstimate int    `json:"token_estimate,omitempty"`
}

// Excerpt returns a short preview of the content for graph nodes and
// related-memory listings.
func (m *Memory) Excerpt() string {
	const max = 200
	if len(m.Content) <= max {
		return m.Content
	}
	return m.Content[:max] + "..."
}

// CodeAttributes extend code memories.
type CodeAttributes struct {
	Language   string   `json:"language,omitempty"`
	Functions  []string `json:"functions,omitempty"`
	Imports    []string `json:"imports,omitempty"`
	Complexity string   `json:"complexity,omitempty"`
}

// TextAttributes extend text memories.
type TextAttributes struct {
	Topics    []string `json:"topics,omitempty"`
	Sentiment string   `json:"sentiment,omitempty"`
	Entities  []string `json:"entities,omitempty"`
}

// Common relationship types. The field itself is free-form.
const (
	RelRelatesTo   = "RELATES_TO"
	RelSimilarTo   = "SIMILAR_TO"
	RelReferences  = "REFERENCES"
	RelFollows     = "FOLLOWS"
	RelImplements  = "IMPLEMENTS"
	RelContradicts = "CONTRADICTS"
	RelCreated     = "CREATED"
	RelInSession   = "IN_SESSION"
	RelObserves    = "OBSERVES"
	RelHasTag      = "HAS_TAG"
)

// Connection is a directed, typed edge between two graph nodes. Edges are
// created, optionally mirrored, and never updated in place.
type Connection struct {
	FromID     string         `json:"from_id"`
	ToID       string         `json:"to_id"`
	Type       string         `json:"relationship_type"`
	Properties map[string]any `json:"properties,omitempty"`
	Confidence float64        `json:"confidence"`
	CreatedAt  time.Time      `json:"created_at"`
}

// SessionRingCapacity bounds how many recent memory ids a session keeps.
const SessionRingCapacity = 10

// Session tracks the most recent memories of one conversational session.
type Session struct {
	ID             string    `json:"session_id"`
	RecentMemories []string  `json:"recent_memories"`
	MemoryCount    int       `json:"memory_count"`
	LastActivity   time.Time `json:"last_activity"`
}

// Observe pushes a memory id into the bounded recent ring.
func (s *Session) Observe(memoryID string) {
	s.RecentMemories = append(s.RecentMemories, memoryID)
	if len(s.RecentMemories) > SessionRingCapacity {
		s.RecentMemories = s.RecentMemories[len(s.RecentMemories)-SessionRingCapacity:]
	}
	s.MemoryCount++
	s.LastActivity = time.Now().UTC()
}

// AgentProfile is the per-agent record in the metadata store.
type AgentProfile struct {
	ID          string    `json:"agent_id"`
	MemoryCount int       `json:"memory_count"`
	LastActive  time.Time `json:"last_active"`
}

// RelatedMemory is a graph-traversal hit. Confidence decays with hop
// distance from the origin memory.
type RelatedMemory struct {
	ID         string     `json:"memory_id"`
	Excerpt    string     `json:"excerpt"`
	Type       MemoryType `json:"type"`
	Distance   int        `json:"distance"`
	Confidence float64    `json:"confidence"`
}

// ConceptCluster is a group of memories sharing a tag, surfaced as an
// emergent concept. Clusters always have at least two members.
type ConceptCluster struct {
	Tag             string   `json:"tag"`
	MemoryCount     int      `json:"memory_count"`
	SampleMemoryIDs []string `json:"sample_memory_ids"`
}

// StoreRequest is the input of the store-memory operation.
type StoreRequest struct {
	Content     string      `json:"content"`
	Type        MemoryType  `json:"type,omitempty"`
	ContentType ContentType `json:"content_type,omitempty"`
	AgentID     string      `json:"agent_id,omitempty"`
	SessionID   string      `json:"session_id,omitempty"`
	Project     string      `json:"project,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
	Confidence  float64     `json:"confidence,omitempty"`
}

// StoreResult reports where the memory landed. A partial write (vector or
// graph down) still succeeds; the affected sub-id stays empty and the
// failure is listed in Warnings.
type StoreResult struct {
	MemoryID      string   `json:"memory_id"`
	VectorStoreID string   `json:"vector_store_id,omitempty"`
	GraphNodeID   string   `json:"graph_node_id,omitempty"`
	Success       bool     `json:"success"`
	Warnings      []string `json:"warnings,omitempty"`
}

// RetrieveRequest selects exactly one of three retrieval strategies:
// explicit ids, a semantic query, or a filtered listing.
type RetrieveRequest struct {
	IDs   []string `json:"memory_ids,omitempty"`
	Query string   `json:"query,omitempty"`

	AgentID     string      `json:"agent_id,omitempty"`
	SessionID   string      `json:"session_id,omitempty"`
	Project     string      `json:"project,omitempty"`
	Type        MemoryType  `json:"type,omitempty"`
	ContentType ContentType `json:"content_type,omitempty"`
	Tags        []string    `json:"tags,omitempty"`

	MinSimilarity  float64 `json:"min_similarity,omitempty"`
	IncludeRelated bool    `json:"include_related,omitempty"`
	Offset         int     `json:"offset,omitempty"`
	Limit          int     `json:"limit,omitempty"`
}

// RetrievedMemory is one retrieval result; Score is only meaningful for
// semantic queries.
type RetrievedMemory struct {
	Memory
	Score   float64         `json:"score,omitempty"`
	Related []RelatedMemory `json:"related,omitempty"`
}

// RetrieveResult is a page of retrieval results.
type RetrieveResult struct {
	Memories   []RetrievedMemory `json:"memories"`
	TotalCount int               `json:"total_count"`
	HasMore    bool              `json:"has_more"`
}

// ConnectionRequest is the input of the add-connection operation.
type ConnectionRequest struct {
	FromID        string         `json:"from_id"`
	ToID          string         `json:"to_id"`
	Type          string         `json:"relationship_type"`
	Properties    map[string]any `json:"properties,omitempty"`
	Confidence    float64        `json:"confidence,omitempty"`
	Bidirectional bool           `json:"bidirectional,omitempty"`
}

// ConnectionResult reports edge creation. Success requires at least the
// primary direction.
type ConnectionResult struct {
	Success  bool `json:"success"`
	Mirrored bool `json:"mirrored,omitempty"`
}

// ObservationRequest stores an observation as a semantic memory and links
// it to the memories it is about.
type ObservationRequest struct {
	Content    string   `json:"content"`
	AgentID    string   `json:"agent_id,omitempty"`
	SessionID  string   `json:"session_id,omitempty"`
	Project    string   `json:"project,omitempty"`
	RelatedIDs []string `json:"related_ids,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

// ObservationResult reports the new memory and how many OBSERVES edges
// were created.
type ObservationResult struct {
	MemoryID    string `json:"memory_id"`
	LinkedCount int    `json:"linked_count"`
}

// ConsolidateRequest bounds a near-duplicate merge pass.
type ConsolidateRequest struct {
	AgentID             string  `json:"agent_id,omitempty"`
	SimilarityThreshold float64 `json:"similarity_threshold,omitempty"`
	MaxConsolidations   int     `json:"max_consolidations,omitempty"`
}

// ConsolidateResult reports what the pass merged.
type ConsolidateResult struct {
	Consolidations     int `json:"consolidations"`
	MemoriesMerged     int `json:"memories_merged"`
	ConnectionsUpdated int `json:"connections_updated"`
}

// Statistics aggregates metadata counts with graph-derived clusters.
type Statistics struct {
	TotalMemories   int              `json:"total_memories"`
	ByType          map[string]int   `json:"by_type"`
	ByContentType   map[string]int   `json:"by_content_type"`
	ByAgent         map[string]int   `json:"by_agent"`
	ByProject       map[string]int   `json:"by_project"`
	RecentMemories  []Memory         `json:"recent_memories"`
	ConceptClusters []ConceptCluster `json:"concept_clusters,omitempty"`
}

// ProjectInfo summarizes one project for the list-projects operation.
type ProjectInfo struct {
	Name         string    `json:"project"`
	MemoryCount  int       `json:"memory_count"`
	LastActivity time.Time `json:"last_activity"`
}

// ConnectionsRequest scopes the retrieve-connections operation.
type ConnectionsRequest struct {
	MemoryID string `json:"memory_id,omitempty"`
	Type     string `json:"relationship_type,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// EntityConnectionsRequest scopes connections-by-entity.
type EntityConnectionsRequest struct {
	EntityID   string `json:"entity_id"`
	EntityType string `json:"entity_type"` // memory, agent, session, tag
	Limit      int    `json:"limit,omitempty"`
}
