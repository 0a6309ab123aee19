package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/blueshiftlabs-ai/bedrock-agent-system-sub000/pkg/memory"
)

// RegisterMemoryTools attaches every memory operation to the MCP server as
// a tool. Handlers close over the orchestrator; schemas mirror the request
// structs.
func RegisterMemoryTools(srv *server.MCPServer, engine *memory.Orchestrator) {
	srv.AddTool(buildStoreMemoryTool(), handleStoreMemory(engine))
	srv.AddTool(buildRetrieveMemoriesTool(), handleRetrieveMemories(engine))
	srv.AddTool(buildAddConnectionTool(), handleAddConnection(engine))
	srv.AddTool(buildCreateObservationTool(), handleCreateObservation(engine))
	srv.AddTool(buildConsolidateTool(), handleConsolidate(engine))
	srv.AddTool(buildDeleteMemoryTool(), handleDeleteMemory(engine))
	srv.AddTool(buildStatisticsTool(), handleStatistics(engine))
	srv.AddTool(buildListAgentsTool(), handleListAgents(engine))
	srv.AddTool(buildListProjectsTool(), handleListProjects(engine))
	srv.AddTool(buildConnectionsTool(), handleConnections(engine))
	srv.AddTool(buildConnectionsByEntityTool(), handleConnectionsByEntity(engine))
}

// decodeArgs binds the loosely-typed tool arguments onto a request struct
// through a JSON round trip, so the schema structs stay the single source
// of field names.
func decodeArgs(req mcp.CallToolRequest, out any) error {
	data, err := json.Marshal(req.GetArguments())
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func buildStoreMemoryTool() mcp.Tool {
	return mcp.NewTool(
		"store_memory",
		mcp.WithDescription("Stores a memory across the metadata, vector, and graph stores. Type and content type are inferred when omitted."),
		mcp.WithString("content",
			mcp.Description("The content to remember"),
			mcp.Required(),
		),
		mcp.WithString("type",
			mcp.Description("Memory type"),
			mcp.Enum("episodic", "semantic", "procedural", "working"),
		),
		mcp.WithString("content_type",
			mcp.Description("Content type"),
			mcp.Enum("text", "code"),
		),
		mcp.WithString("agent_id", mcp.Description("Agent storing the memory")),
		mcp.WithString("session_id", mcp.Description("Session the memory belongs to")),
		mcp.WithString("project", mcp.Description("Project scope; resolved automatically when omitted")),
		mcp.WithArray("tags", mcp.Description("Free-form tags")),
		mcp.WithNumber("confidence", mcp.Description("Initial confidence, 0 to 1")),
	)
}

func handleStoreMemory(engine *memory.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var storeReq memory.StoreRequest
		if err := decodeArgs(req, &storeReq); err != nil {
			return nil, err
		}

		result, err := engine.StoreMemory(ctx, storeReq)
		if err != nil {
			return nil, err
		}
		return jsonResult(result)
	}
}

func buildRetrieveMemoriesTool() mcp.Tool {
	return mcp.NewTool(
		"retrieve_memories",
		mcp.WithDescription("Retrieves memories by explicit ids, by semantic query, or by filtered listing. Ids and query are mutually exclusive."),
		mcp.WithArray("memory_ids", mcp.Description("Explicit memory ids to fetch")),
		mcp.WithString("query", mcp.Description("Natural-language similarity query")),
		mcp.WithString("agent_id", mcp.Description("Filter by agent")),
		mcp.WithString("session_id", mcp.Description("Filter by session")),
		mcp.WithString("project", mcp.Description("Filter by project")),
		mcp.WithString("type",
			mcp.Description("Filter by memory type"),
			mcp.Enum("episodic", "semantic", "procedural", "working"),
		),
		mcp.WithString("content_type",
			mcp.Description("Filter by content type"),
			mcp.Enum("text", "code"),
		),
		mcp.WithArray("tags", mcp.Description("Require every listed tag")),
		mcp.WithNumber("min_similarity", mcp.Description("Minimum similarity score for query results")),
		mcp.WithBoolean("include_related", mcp.Description("Attach graph neighbors to each result")),
		mcp.WithNumber("offset", mcp.Description("Page offset")),
		mcp.WithNumber("limit", mcp.Description("Page size, capped at 100")),
	)
}

func handleRetrieveMemories(engine *memory.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var retrieveReq memory.RetrieveRequest
		if err := decodeArgs(req, &retrieveReq); err != nil {
			return nil, err
		}

		result, err := engine.RetrieveMemories(ctx, retrieveReq)
		if err != nil {
			return nil, err
		}
		return jsonResult(result)
	}
}

func buildAddConnectionTool() mcp.Tool {
	return mcp.NewTool(
		"add_connection",
		mcp.WithDescription("Creates a typed, weighted connection between two memories. Bidirectional connections are two directed edges."),
		mcp.WithString("from_id", mcp.Description("Source memory id"), mcp.Required()),
		mcp.WithString("to_id", mcp.Description("Target memory id"), mcp.Required()),
		mcp.WithString("relationship_type",
			mcp.Description("Edge type, e.g. RELATES_TO, REFERENCES, CONTRADICTS"),
			mcp.Required(),
		),
		mcp.WithObject("properties", mcp.Description("Arbitrary edge properties")),
		mcp.WithNumber("confidence", mcp.Description("Edge confidence, 0 to 1")),
		mcp.WithBoolean("bidirectional", mcp.Description("Also create the reverse edge")),
	)
}

func handleAddConnection(engine *memory.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var connReq memory.ConnectionRequest
		if err := decodeArgs(req, &connReq); err != nil {
			return nil, err
		}

		result, err := engine.AddConnection(ctx, connReq)
		if err != nil {
			return nil, err
		}
		return jsonResult(result)
	}
}

func buildCreateObservationTool() mcp.Tool {
	return mcp.NewTool(
		"create_observation",
		mcp.WithDescription("Stores an observation as a semantic memory and links it to the memories it is about."),
		mcp.WithString("content", mcp.Description("The observation text"), mcp.Required()),
		mcp.WithString("agent_id", mcp.Description("Observing agent")),
		mcp.WithString("session_id", mcp.Description("Session the observation was made in")),
		mcp.WithString("project", mcp.Description("Project scope")),
		mcp.WithArray("related_ids", mcp.Description("Memory ids the observation refers to")),
		mcp.WithArray("tags", mcp.Description("Additional tags")),
	)
}

func handleCreateObservation(engine *memory.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var obsReq memory.ObservationRequest
		if err := decodeArgs(req, &obsReq); err != nil {
			return nil, err
		}

		result, err := engine.CreateObservation(ctx, obsReq)
		if err != nil {
			return nil, err
		}
		return jsonResult(result)
	}
}

func buildConsolidateTool() mcp.Tool {
	return mcp.NewTool(
		"consolidate_memories",
		mcp.WithDescription("Merges near-duplicate memories of the same type, folding tags, access history, and graph edges into the survivor."),
		mcp.WithString("agent_id", mcp.Description("Restrict the pass to one agent's memories")),
		mcp.WithNumber("similarity_threshold", mcp.Description("Cosine similarity above which two memories merge (default 0.9)")),
		mcp.WithNumber("max_consolidations", mcp.Description("Upper bound on merges in one pass (default 10)")),
	)
}

func handleConsolidate(engine *memory.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var consReq memory.ConsolidateRequest
		if err := decodeArgs(req, &consReq); err != nil {
			return nil, err
		}

		result, err := engine.ConsolidateMemories(ctx, consReq)
		if err != nil {
			return nil, err
		}
		return jsonResult(result)
	}
}

func buildDeleteMemoryTool() mcp.Tool {
	return mcp.NewTool(
		"delete_memory",
		mcp.WithDescription("Deletes a memory from every store, including its graph edges."),
		mcp.WithString("memory_id", mcp.Description("Memory id to delete"), mcp.Required()),
	)
}

func handleDeleteMemory(engine *memory.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		memoryID := req.GetString("memory_id", "")
		if memoryID == "" {
			return nil, fmt.Errorf("memory_id parameter is required")
		}

		if err := engine.DeleteMemory(ctx, memoryID); err != nil {
			return nil, err
		}
		return jsonResult(map[string]any{"success": true, "memory_id": memoryID})
	}
}

func buildStatisticsTool() mcp.Tool {
	return mcp.NewTool(
		"get_memory_statistics",
		mcp.WithDescription("Aggregates memory counts by type, agent, and project, with concept clusters from the graph."),
		mcp.WithString("agent_id", mcp.Description("Restrict statistics to one agent")),
	)
}

func handleStatistics(engine *memory.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := engine.Statistics(ctx, req.GetString("agent_id", ""))
		if err != nil {
			return nil, err
		}
		return jsonResult(stats)
	}
}

func buildListAgentsTool() mcp.Tool {
	return mcp.NewTool(
		"list_agents",
		mcp.WithDescription("Lists every agent that has stored memories, most recently active first."),
	)
}

func handleListAgents(engine *memory.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		agents, err := engine.ListAgents(ctx)
		if err != nil {
			return nil, err
		}
		return jsonResult(agents)
	}
}

func buildListProjectsTool() mcp.Tool {
	return mcp.NewTool(
		"list_projects",
		mcp.WithDescription("Lists every project that has memories, with counts and last activity."),
	)
}

func handleListProjects(engine *memory.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		projects, err := engine.ListProjects(ctx)
		if err != nil {
			return nil, err
		}
		return jsonResult(projects)
	}
}

func buildConnectionsTool() mcp.Tool {
	return mcp.NewTool(
		"retrieve_connections",
		mcp.WithDescription("Lists memory-to-memory connections, optionally scoped to one memory or one relationship type."),
		mcp.WithString("memory_id", mcp.Description("Only edges touching this memory")),
		mcp.WithString("relationship_type", mcp.Description("Only edges of this type")),
		mcp.WithNumber("limit", mcp.Description("Maximum edges to return (default 50)")),
	)
}

func handleConnections(engine *memory.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var connReq memory.ConnectionsRequest
		if err := decodeArgs(req, &connReq); err != nil {
			return nil, err
		}

		connections, err := engine.Connections(ctx, connReq)
		if err != nil {
			return nil, err
		}
		return jsonResult(connections)
	}
}

func buildConnectionsByEntityTool() mcp.Tool {
	return mcp.NewTool(
		"connections_by_entity",
		mcp.WithDescription("Lists the connections around one graph entity: a memory, agent, session, or tag."),
		mcp.WithString("entity_id", mcp.Description("Entity id (tag name for tags)"), mcp.Required()),
		mcp.WithString("entity_type",
			mcp.Description("Entity kind"),
			mcp.Enum("memory", "agent", "session", "tag"),
			mcp.Required(),
		),
		mcp.WithNumber("limit", mcp.Description("Maximum edges to return (default 50)")),
	)
}

func handleConnectionsByEntity(engine *memory.Orchestrator) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var entityReq memory.EntityConnectionsRequest
		if err := decodeArgs(req, &entityReq); err != nil {
			return nil, err
		}

		connections, err := engine.ConnectionsByEntity(ctx, entityReq)
		if err != nil {
			return nil, err
		}
		return jsonResult(connections)
	}
}
