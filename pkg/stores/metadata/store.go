/*
Package metadata holds the authoritative memory records. Two interchangeable
backends exist: a durable object-store implementation and a local-disk
fallback, selected at runtime by a health-checking Selector. Each backend
stores one JSON document per record, grouped into logical tables.
*/
package metadata

import (
	"context"
	"encoding/json"
)

// Logical tables. Every record lives in exactly one.
const (
	TableMemories = "memories"
	TableSessions = "sessions"
	TableAgents   = "agents"
)

// MemoryKey builds the composite key for a memory metadata record,
// equivalent to the ("MEMORY#"+id, "METADATA") partition/sort pair.
func MemoryKey(id string) string {
	return "MEMORY#" + id + "/METADATA"
}

// Store is one metadata backend. Implementations return
// errors.ErrNotFound (possibly wrapped) from Get and Delete when the key
// is absent, so the selector can tell logical misses from backend
// failures.
type Store interface {
	Put(ctx context.Context, table, key string, doc any) error
	Get(ctx context.Context, table, key string, out any) error
	Delete(ctx context.Context, table, key string) error
	List(ctx context.Context, table string) (map[string]json.RawMessage, error)
	Health(ctx context.Context) error
	Name() string
}
