package memory

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/blueshiftlabs-ai/bedrock-agent-system-sub000/pkg/stores/metadata"
)

/*
Catalog is the typed layer over the generic metadata store. It owns the
table layout and key scheme; everything above it works with Memory,
Session, and AgentProfile values and never sees raw tables.
*/
type Catalog struct {
	store metadata.Store
}

// NewCatalog wraps a metadata backend, usually a failover Selector.
func NewCatalog(store metadata.Store) *Catalog {
	return &Catalog{store: store}
}

func (c *Catalog) PutMemory(ctx context.Context, mem *Memory) error {
	return c.store.Put(ctx, metadata.TableMemories, metadata.MemoryKey(mem.ID), mem)
}

func (c *Catalog) GetMemory(ctx context.Context, id string) (*Memory, error) {
	var mem Memory
	if err := c.store.Get(ctx, metadata.TableMemories, metadata.MemoryKey(id), &mem); err != nil {
		return nil, err
	}
	return &mem, nil
}

func (c *Catalog) DeleteMemory(ctx context.Context, id string) error {
	return c.store.Delete(ctx, metadata.TableMemories, metadata.MemoryKey(id))
}

// ListMemories loads every memory record, newest first.
func (c *Catalog) ListMemories(ctx context.Context) ([]Memory, error) {
	records, err := c.store.List(ctx, metadata.TableMemories)
	if err != nil {
		return nil, err
	}

	memories := make([]Memory, 0, len(records))
	for _, raw := range records {
		var mem Memory
		if err := json.Unmarshal(raw, &mem); err != nil {
			return nil, err
		}
		memories = append(memories, mem)
	}

	sort.Slice(memories, func(i, j int) bool {
		return memories[i].CreatedAt.After(memories[j].CreatedAt)
	})
	return memories, nil
}

func (c *Catalog) GetSession(ctx context.Context, id string) (*Session, error) {
	var session Session
	if err := c.store.Get(ctx, metadata.TableSessions, id, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Catalog) PutSession(ctx context.Context, session *Session) error {
	return c.store.Put(ctx, metadata.TableSessions, session.ID, session)
}

func (c *Catalog) GetAgent(ctx context.Context, id string) (*AgentProfile, error) {
	var agent AgentProfile
	if err := c.store.Get(ctx, metadata.TableAgents, id, &agent); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (c *Catalog) PutAgent(ctx context.Context, agent *AgentProfile) error {
	return c.store.Put(ctx, metadata.TableAgents, agent.ID, agent)
}

// ListAgents loads every agent profile, most recently active first.
func (c *Catalog) ListAgents(ctx context.Context) ([]AgentProfile, error) {
	records, err := c.store.List(ctx, metadata.TableAgents)
	if err != nil {
		return nil, err
	}

	agents := make([]AgentProfile, 0, len(records))
	for _, raw := range records {
		var agent AgentProfile
		if err := json.Unmarshal(raw, &agent); err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}

	sort.Slice(agents, func(i, j int) bool {
		return agents[i].LastActive.After(agents[j].LastActive)
	})
	return agents, nil
}

func (c *Catalog) Health(ctx context.Context) error {
	return c.store.Health(ctx)
}

func (c *Catalog) BackendName() string {
	return c.store.Name()
}
