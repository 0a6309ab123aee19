package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/blueshiftlabs-ai/bedrock-agent-system-sub000/pkg/errors"
	"github.com/blueshiftlabs-ai/bedrock-agent-system-sub000/pkg/stores/neo4j"
)

/*
Neo4jGraphStore keeps the relationship view of memories: Memory, Tag,
Agent, and Session nodes, with typed edges between memories and
attribution edges toward agents and sessions. Nodes are merged by id;
memory-to-memory edges are created, never merged, so repeated
add-connection calls produce distinct edges.
*/
type Neo4jGraphStore struct {
	client *neo4j.Client
}

func NewNeo4jGraphStore(client *neo4j.Client) *Neo4jGraphStore {
	return &Neo4jGraphStore{client: client}
}

// relTypeRe limits relationship types to what Cypher accepts as a bare
// identifier, since types cannot be parameterized.
var relTypeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// CreateMemoryNode merges the memory node and attaches tag nodes. FOREACH
// over the tag list keeps the statement valid when there are no tags.
func (store *Neo4jGraphStore) CreateMemoryNode(ctx context.Context, mem Memory) (string, error) {
	cypher := `
MERGE (m:Memory {id: $id})
SET m.type = $type,
    m.content_type = $content_type,
    m.excerpt = $excerpt,
    m.project = $project,
    m.confidence = $confidence,
    m.created_at = $created_at
FOREACH (tag IN $tags |
  MERGE (t:Tag {name: tag})
  MERGE (m)-[:HAS_TAG]->(t)
)
RETURN m.id`

	_, err := store.client.ExecCypher(ctx, cypher, map[string]any{
		"id":           mem.ID,
		"type":         string(mem.Type),
		"content_type": string(mem.ContentType),
		"excerpt":      mem.Excerpt(),
		"project":      mem.Project,
		"confidence":   mem.Confidence,
		"created_at":   mem.CreatedAt.Format(time.RFC3339Nano),
		"tags":         toAnySlice(mem.Tags),
	})
	if err != nil {
		return "", err
	}
	return mem.ID, nil
}

// LinkAttribution connects the memory to its agent and session. Empty ids
// are skipped via the one-element-or-empty list trick, which keeps this a
// single round trip.
func (store *Neo4jGraphStore) LinkAttribution(ctx context.Context, memoryID, agentID, sessionID string) error {
	cypher := `
MATCH (m:Memory {id: $id})
FOREACH (aid IN CASE WHEN $agent_id = '' THEN [] ELSE [$agent_id] END |
  MERGE (a:Agent {id: aid})
  MERGE (a)-[:CREATED]->(m)
)
FOREACH (sid IN CASE WHEN $session_id = '' THEN [] ELSE [$session_id] END |
  MERGE (s:Session {id: sid})
  MERGE (m)-[:IN_SESSION]->(s)
)`

	_, err := store.client.ExecCypher(ctx, cypher, map[string]any{
		"id":         memoryID,
		"agent_id":   agentID,
		"session_id": sessionID,
	})
	return err
}

// AddEdge creates one typed edge between two existing memory nodes. A
// missing endpoint is a validation error, not a store failure.
func (store *Neo4jGraphStore) AddEdge(ctx context.Context, conn Connection) error {
	if !relTypeRe.MatchString(conn.Type) {
		return errors.ErrValidation.WithMessagef("invalid relationship type %q", conn.Type)
	}

	props, err := json.Marshal(conn.Properties)
	if err != nil {
		return errors.ErrValidation.WithMessagef("connection properties: %v", err)
	}

	cypher := fmt.Sprintf(`
MATCH (from:Memory {id: $from}), (to:Memory {id: $to})
CREATE (from)-[r:%s {confidence: $confidence, properties: $properties, created_at: $created_at}]->(to)
RETURN count(r)`, conn.Type)

	result, err := store.client.ExecCypher(ctx, cypher, map[string]any{
		"from":       conn.FromID,
		"to":         conn.ToID,
		"confidence": conn.Confidence,
		"properties": string(props),
		"created_at": conn.CreatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}

	rows := neo4j.Rows(result)
	if len(rows) == 0 || len(rows[0]) == 0 || asInt(rows[0][0]) == 0 {
		return errors.ErrValidation.WithMessagef(
			"connection endpoints not found: %s -> %s", conn.FromID, conn.ToID)
	}
	return nil
}

// RelatedMemories walks the graph out to maxDepth hops and returns each
// reachable memory once, at its shortest distance. Confidence decays 0.2
// per hop with a floor of 0.1.
func (store *Neo4jGraphStore) RelatedMemories(ctx context.Context, memoryID string, maxDepth int) ([]RelatedMemory, error) {
	if maxDepth < 1 {
		maxDepth = 1
	}
	if maxDepth > 5 {
		maxDepth = 5
	}

	// Variable-length bounds cannot be parameters, so the clamped depth is
	// inlined.
	cypher := fmt.Sprintf(`
MATCH p = (m:Memory {id: $id})-[*1..%d]-(related:Memory)
WHERE related.id <> $id
RETURN related.id, related.excerpt, related.type, min(length(p)) AS distance
ORDER BY distance, related.id`, maxDepth)

	result, err := store.client.ExecCypher(ctx, cypher, map[string]any{"id": memoryID})
	if err != nil {
		return nil, err
	}

	var related []RelatedMemory
	for _, row := range neo4j.Rows(result) {
		if len(row) < 4 {
			continue
		}
		distance := asInt(row[3])
		related = append(related, RelatedMemory{
			ID:         asString(row[0]),
			Excerpt:    asString(row[1]),
			Type:       MemoryType(asString(row[2])),
			Distance:   distance,
			Confidence: math.Max(0.1, 1.0-0.2*float64(distance)),
		})
	}
	return related, nil
}

// ConceptClusters groups memories by shared tag. Only tags with at least
// two members form a cluster; up to five sample ids come back per cluster.
func (store *Neo4jGraphStore) ConceptClusters(ctx context.Context, agentID string) ([]ConceptCluster, error) {
	cypher := `
MATCH (m:Memory)-[:HAS_TAG]->(t:Tag)
WHERE $agent_id = '' OR EXISTS { MATCH (:Agent {id: $agent_id})-[:CREATED]->(m) }
WITH t.name AS tag, count(m) AS members, collect(m.id)[0..5] AS sample
WHERE members >= 2
RETURN tag, members, sample
ORDER BY members DESC, tag`

	result, err := store.client.ExecCypher(ctx, cypher, map[string]any{"agent_id": agentID})
	if err != nil {
		return nil, err
	}

	var clusters []ConceptCluster
	for _, row := range neo4j.Rows(result) {
		if len(row) < 3 {
			continue
		}
		cluster := ConceptCluster{
			Tag:         asString(row[0]),
			MemoryCount: asInt(row[1]),
		}
		if sample, ok := row[2].([]any); ok {
			for _, id := range sample {
				cluster.SampleMemoryIDs = append(cluster.SampleMemoryIDs, asString(id))
			}
		}
		clusters = append(clusters, cluster)
	}
	return clusters, nil
}

// Connections lists memory-to-memory edges touching memoryID, or every
// edge when memoryID is empty, optionally filtered by type.
func (store *Neo4jGraphStore) Connections(ctx context.Context, memoryID, relationshipType string, limit int) ([]Connection, error) {
	if relationshipType != "" && !relTypeRe.MatchString(relationshipType) {
		return nil, errors.ErrValidation.WithMessagef("invalid relationship type %q", relationshipType)
	}
	if limit <= 0 {
		limit = 50
	}

	typePart := ""
	if relationshipType != "" {
		typePart = ":" + relationshipType
	}

	cypher := fmt.Sprintf(`
MATCH (from:Memory)-[r%s]->(to:Memory)
WHERE $id = '' OR from.id = $id OR to.id = $id
RETURN from.id, to.id, type(r), r.confidence, r.properties, r.created_at
ORDER BY r.created_at DESC
LIMIT %d`, typePart, limit)

	result, err := store.client.ExecCypher(ctx, cypher, map[string]any{"id": memoryID})
	if err != nil {
		return nil, err
	}
	return connectionsFromRows(neo4j.Rows(result)), nil
}

// EntityConnections lists the edges around a non-memory graph entity, or
// delegates to Connections for memory entities.
func (store *Neo4jGraphStore) EntityConnections(ctx context.Context, entityID, entityType string, limit int) ([]Connection, error) {
	if limit <= 0 {
		limit = 50
	}

	var label string
	switch entityType {
	case "memory":
		return store.Connections(ctx, entityID, "", limit)
	case "agent":
		label = "Agent"
	case "session":
		label = "Session"
	case "tag":
		label = "Tag"
	default:
		return nil, errors.ErrValidation.WithMessagef("unknown entity type %q", entityType)
	}

	key := "id"
	if label == "Tag" {
		key = "name"
	}

	cypher := fmt.Sprintf(`
MATCH (e:%s {%s: $id})-[r]-(m:Memory)
RETURN startNode(r).id, endNode(r).id, type(r), r.confidence, r.properties, r.created_at
LIMIT %d`, label, key, limit)

	result, err := store.client.ExecCypher(ctx, cypher, map[string]any{"id": entityID})
	if err != nil {
		return nil, err
	}
	return connectionsFromRows(neo4j.Rows(result)), nil
}

/*
MergeInto moves the duplicate's memory-to-memory edges onto the survivor
and deletes the duplicate node. Edge rewiring happens in Go: the edges are
read out, recreated against the survivor, and the duplicate is detached.
Self-edges that would result from merging are dropped.
*/
func (store *Neo4jGraphStore) MergeInto(ctx context.Context, duplicateID, survivorID string) (int, error) {
	edges, err := store.Connections(ctx, duplicateID, "", 1000)
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, edge := range edges {
		if edge.FromID == duplicateID {
			edge.FromID = survivorID
		}
		if edge.ToID == duplicateID {
			edge.ToID = survivorID
		}
		if edge.FromID == edge.ToID {
			continue
		}
		if err := store.AddEdge(ctx, edge); err != nil {
			return moved, err
		}
		moved++
	}

	if err := store.DeleteMemory(ctx, duplicateID); err != nil {
		return moved, err
	}
	return moved, nil
}

// DeleteMemory removes the node and every edge touching it.
func (store *Neo4jGraphStore) DeleteMemory(ctx context.Context, memoryID string) error {
	_, err := store.client.ExecCypher(ctx,
		"MATCH (m:Memory {id: $id}) DETACH DELETE m",
		map[string]any{"id": memoryID})
	return err
}

func (store *Neo4jGraphStore) Ping(ctx context.Context) error {
	return store.client.Ping(ctx)
}

func connectionsFromRows(rows [][]any) []Connection {
	var connections []Connection
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		conn := Connection{
			FromID: asString(row[0]),
			ToID:   asString(row[1]),
			Type:   asString(row[2]),
		}
		if conf, ok := row[3].(float64); ok {
			conn.Confidence = conf
		}
		if props := asString(row[4]); props != "" && props != "null" {
			_ = json.Unmarshal([]byte(props), &conn.Properties)
		}
		if created, err := time.Parse(time.RFC3339Nano, asString(row[5])); err == nil {
			conn.CreatedAt = created
		}
		connections = append(connections, conn)
	}
	return connections
}

func toAnySlice(items []string) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}
