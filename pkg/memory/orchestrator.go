package memory

import (
	"context"
	goerrors "errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/blueshiftlabs-ai/bedrock-agent-system-sub000/pkg/embedding"
	"github.com/blueshiftlabs-ai/bedrock-agent-system-sub000/pkg/errors"
)

const (
	// DefaultConfidence is assigned when a store request carries none.
	DefaultConfidence = 0.75
	// DefaultEdgeConfidence is assigned to connections without one.
	DefaultEdgeConfidence = 1.0
	// DefaultPageSize bounds retrieval pages when no limit is given.
	DefaultPageSize = 10
	// MaxPageSize is the hard ceiling on one retrieval page.
	MaxPageSize = 100
	// DefaultRelatedDepth bounds graph traversal for related memories.
	DefaultRelatedDepth = 2
)

/*
Orchestrator coordinates the three stores behind every public operation.
The metadata store is authoritative: its failure fails the operation.
Vector and graph failures degrade the result and are reported as warnings
instead of errors.
*/
type Orchestrator struct {
	catalog    *Catalog
	vector     VectorStore
	graph      GraphStore
	embedder   Embedder
	classifier *RuleClassifier
	resolver   ProjectResolver
}

// NewOrchestrator wires the stores together. resolver may be nil, in which
// case unattributed memories keep an empty project.
func NewOrchestrator(catalog *Catalog, vector VectorStore, graph GraphStore, embedder Embedder, resolver ProjectResolver) *Orchestrator {
	if resolver == nil {
		resolver = StaticResolver{}
	}
	return &Orchestrator{
		catalog:    catalog,
		vector:     vector,
		graph:      graph,
		embedder:   embedder,
		classifier: NewRuleClassifier(),
		resolver:   resolver,
	}
}

// StoreMemory classifies, embeds, and fans the memory out to all three
// stores. Only a metadata failure aborts; vector and graph failures come
// back as warnings on a successful result.
func (o *Orchestrator) StoreMemory(ctx context.Context, req StoreRequest) (*StoreResult, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, errors.ErrValidation.WithMessagef("content must not be empty")
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = o.classifier.ClassifyContent(req.Content)
	}
	memType := req.Type
	if memType == "" {
		memType = o.classifier.ClassifyType(req.Content, contentType)
	}
	if err := validateTypes(memType, contentType); err != nil {
		return nil, err
	}

	project := req.Project
	if project == "" {
		project = o.resolver.Resolve(ctx)
	}
	confidence := req.Confidence
	if confidence == 0 {
		confidence = DefaultConfidence
	}

	now := time.Now().UTC()
	mem := Memory{
		ID:           uuid.NewString(),
		Type:         memType,
		ContentType:  contentType,
		Content:      req.Content,
		AgentID:      req.AgentID,
		SessionID:    req.SessionID,
		Project:      project,
		Tags:         req.Tags,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastAccessed: now,
		Confidence:   confidence,
	}
	o.attachAttributes(&mem)

	language := ""
	if mem.Code != nil {
		language = mem.Code.Language
	}
	embedded := o.embedder.Generate(ctx, mem.Content, embedding.ContentType(contentType), language)
	mem.Embedding = embedded.Vector
	mem.ModelUsed = embedded.ModelUsed
	mem.TokenEstimate = embedded.TokenEstimate

	if err := o.catalog.PutMemory(ctx, &mem); err != nil {
		return nil, fmt.Errorf("store memory metadata: %w", err)
	}

	result := &StoreResult{MemoryID: mem.ID, Success: true}

	if storeID, err := o.vector.Index(ctx, mem); err != nil {
		log.Warn("vector index failed, memory stored without similarity search",
			"memory_id", mem.ID, "error", err)
		result.Warnings = append(result.Warnings, "vector store unavailable: "+err.Error())
	} else {
		result.VectorStoreID = storeID
	}

	if nodeID, err := o.graph.CreateMemoryNode(ctx, mem); err != nil {
		log.Warn("graph node creation failed, memory stored without relationships",
			"memory_id", mem.ID, "error", err)
		result.Warnings = append(result.Warnings, "graph store unavailable: "+err.Error())
	} else {
		result.GraphNodeID = nodeID
		if err := o.graph.LinkAttribution(ctx, mem.ID, mem.AgentID, mem.SessionID); err != nil {
			log.Warn("graph attribution failed", "memory_id", mem.ID, "error", err)
			result.Warnings = append(result.Warnings, "graph attribution failed: "+err.Error())
		}
	}

	o.recordActivity(ctx, &mem)

	log.Info("memory stored",
		"memory_id", mem.ID, "type", mem.Type, "content_type", mem.ContentType,
		"agent", mem.AgentID, "project", mem.Project, "model", mem.ModelUsed,
		"warnings", len(result.Warnings))
	return result, nil
}

// attachAttributes fills the content-type-specific extension.
func (o *Orchestrator) attachAttributes(mem *Memory) {
	switch mem.ContentType {
	case ContentCode:
		identifiers := embedding.ExtractIdentifiers(mem.Content)
		mem.Code = &CodeAttributes{
			Language:   o.classifier.DetectLanguage(mem.Content),
			Functions:  identifiers,
			Complexity: complexityBucket(mem.Content),
		}
	case ContentText:
		mem.Text = &TextAttributes{Topics: mem.Tags}
	}
}

func complexityBucket(content string) string {
	lines := strings.Count(content, "\n") + 1
	switch {
	case lines > 100:
		return "high"
	case lines > 30:
		return "medium"
	default:
		return "low"
	}
}

// recordActivity updates session ring and agent profile. Bookkeeping is
// best effort: failures are logged, never surfaced.
func (o *Orchestrator) recordActivity(ctx context.Context, mem *Memory) {
	if mem.SessionID != "" {
		session, err := o.catalog.GetSession(ctx, mem.SessionID)
		if err != nil {
			if !errors.IsNotFound(err) {
				log.Warn("session lookup failed", "session_id", mem.SessionID, "error", err)
				return
			}
			session = &Session{ID: mem.SessionID}
		}
		session.Observe(mem.ID)
		if err := o.catalog.PutSession(ctx, session); err != nil {
			log.Warn("session update failed", "session_id", mem.SessionID, "error", err)
		}
	}

	if mem.AgentID != "" {
		agent, err := o.catalog.GetAgent(ctx, mem.AgentID)
		if err != nil {
			if !errors.IsNotFound(err) {
				log.Warn("agent lookup failed", "agent_id", mem.AgentID, "error", err)
				return
			}
			agent = &AgentProfile{ID: mem.AgentID}
		}
		agent.MemoryCount++
		agent.LastActive = time.Now().UTC()
		if err := o.catalog.PutAgent(ctx, agent); err != nil {
			log.Warn("agent update failed", "agent_id", mem.AgentID, "error", err)
		}
	}
}

// RetrieveMemories serves exactly one of three strategies: lookup by ids,
// semantic search, or a filtered listing.
func (o *Orchestrator) RetrieveMemories(ctx context.Context, req RetrieveRequest) (*RetrieveResult, error) {
	if len(req.IDs) > 0 && req.Query != "" {
		return nil, errors.ErrValidation.WithMessagef("memory_ids and query are mutually exclusive")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if req.Offset < 0 {
		return nil, errors.ErrValidation.WithMessagef("offset must not be negative")
	}

	switch {
	case len(req.IDs) > 0:
		return o.retrieveByIDs(ctx, req)
	case req.Query != "":
		return o.retrieveByQuery(ctx, req, limit)
	default:
		return o.retrieveByFilter(ctx, req, limit)
	}
}

func (o *Orchestrator) retrieveByIDs(ctx context.Context, req RetrieveRequest) (*RetrieveResult, error) {
	result := &RetrieveResult{Memories: []RetrievedMemory{}}

	for _, id := range req.IDs {
		mem, err := o.catalog.GetMemory(ctx, id)
		if err != nil {
			if errors.IsNotFound(err) {
				continue
			}
			return nil, err
		}

		retrieved := RetrievedMemory{Memory: *mem}
		if req.IncludeRelated {
			retrieved.Related = o.relatedOf(ctx, id)
		}
		result.Memories = append(result.Memories, retrieved)
		o.touch(ctx, mem)
	}

	result.TotalCount = len(result.Memories)
	return result, nil
}

func (o *Orchestrator) retrieveByQuery(ctx context.Context, req RetrieveRequest, limit int) (*RetrieveResult, error) {
	embedded := o.embedder.Generate(ctx, req.Query, embedding.Text, "")

	query := VectorQuery{
		Limit:         limit,
		Offset:        req.Offset,
		Type:          req.Type,
		ContentType:   req.ContentType,
		AgentID:       req.AgentID,
		SessionID:     req.SessionID,
		Project:       req.Project,
		Tags:          req.Tags,
		Keyword:       req.Query,
		MinSimilarity: req.MinSimilarity,
	}

	hits, err := o.vector.Search(ctx, embedded.Vector, query)
	if err != nil {
		log.Warn("vector search failed, falling back to metadata scan", "error", err)
		hits, err = o.scanSearch(ctx, embedded.Vector, req, limit)
		if err != nil {
			return nil, err
		}
	}

	result := &RetrieveResult{Memories: []RetrievedMemory{}}
	for _, hit := range hits {
		mem := hit.Memory
		// The metadata record is authoritative; the payload copy serves
		// only when metadata cannot be read.
		if full, err := o.catalog.GetMemory(ctx, mem.ID); err == nil {
			mem = *full
			o.touch(ctx, full)
		}

		retrieved := RetrievedMemory{Memory: mem, Score: hit.Score}
		if req.IncludeRelated {
			retrieved.Related = o.relatedOf(ctx, mem.ID)
		}
		result.Memories = append(result.Memories, retrieved)
	}

	result.TotalCount = req.Offset + len(result.Memories)
	result.HasMore = len(result.Memories) == limit
	return result, nil
}

// scanSearch is the degraded semantic path: brute-force cosine over the
// embeddings stored in the metadata records.
func (o *Orchestrator) scanSearch(ctx context.Context, vector []float32, req RetrieveRequest, limit int) ([]VectorHit, error) {
	memories, err := o.catalog.ListMemories(ctx)
	if err != nil {
		return nil, err
	}

	var hits []VectorHit
	for _, mem := range memories {
		if !matchesFilter(mem, req) {
			continue
		}
		score := embedding.Cosine(vector, mem.Embedding)
		if score < req.MinSimilarity {
			continue
		}
		hits = append(hits, VectorHit{Memory: mem, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	if req.Offset >= len(hits) {
		return nil, nil
	}
	hits = hits[req.Offset:]
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (o *Orchestrator) retrieveByFilter(ctx context.Context, req RetrieveRequest, limit int) (*RetrieveResult, error) {
	memories, err := o.catalog.ListMemories(ctx)
	if err != nil {
		return nil, err
	}

	var matched []Memory
	for _, mem := range memories {
		if matchesFilter(mem, req) {
			matched = append(matched, mem)
		}
	}

	result := &RetrieveResult{
		Memories:   []RetrievedMemory{},
		TotalCount: len(matched),
		HasMore:    req.Offset+limit < len(matched),
	}

	if req.Offset >= len(matched) {
		return result, nil
	}
	page := matched[req.Offset:]
	if len(page) > limit {
		page = page[:limit]
	}

	for i := range page {
		retrieved := RetrievedMemory{Memory: page[i]}
		if req.IncludeRelated {
			retrieved.Related = o.relatedOf(ctx, page[i].ID)
		}
		result.Memories = append(result.Memories, retrieved)
		o.touch(ctx, &page[i])
	}
	return result, nil
}

func matchesFilter(mem Memory, req RetrieveRequest) bool {
	if req.AgentID != "" && mem.AgentID != req.AgentID {
		return false
	}
	if req.SessionID != "" && mem.SessionID != req.SessionID {
		return false
	}
	if req.Project != "" && mem.Project != req.Project {
		return false
	}
	if req.Type != "" && mem.Type != req.Type {
		return false
	}
	if req.ContentType != "" && mem.ContentType != req.ContentType {
		return false
	}
	for _, want := range req.Tags {
		found := false
		for _, tag := range mem.Tags {
			if tag == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// relatedOf fetches graph neighbors, degrading to none on graph failure.
func (o *Orchestrator) relatedOf(ctx context.Context, memoryID string) []RelatedMemory {
	related, err := o.graph.RelatedMemories(ctx, memoryID, DefaultRelatedDepth)
	if err != nil {
		log.Warn("related lookup failed", "memory_id", memoryID, "error", err)
		return nil
	}
	return related
}

// touch records one access, best effort.
func (o *Orchestrator) touch(ctx context.Context, mem *Memory) {
	mem.AccessCount++
	mem.LastAccessed = time.Now().UTC()
	if err := o.catalog.PutMemory(ctx, mem); err != nil {
		log.Warn("access tracking update failed", "memory_id", mem.ID, "error", err)
	}
}

// AddConnection creates one edge, and its mirror when bidirectional. The
// mirror is best effort: its failure leaves a one-way connection and a
// warning in the log.
func (o *Orchestrator) AddConnection(ctx context.Context, req ConnectionRequest) (*ConnectionResult, error) {
	if req.FromID == "" || req.ToID == "" {
		return nil, errors.ErrValidation.WithMessagef("from_id and to_id are required")
	}
	if req.Type == "" {
		return nil, errors.ErrValidation.WithMessagef("relationship_type is required")
	}

	confidence := req.Confidence
	if confidence == 0 {
		confidence = DefaultEdgeConfidence
	}

	conn := Connection{
		FromID:     req.FromID,
		ToID:       req.ToID,
		Type:       req.Type,
		Properties: req.Properties,
		Confidence: confidence,
		CreatedAt:  time.Now().UTC(),
	}

	if err := o.graph.AddEdge(ctx, conn); err != nil {
		if isLogicalErr(err) {
			return nil, err
		}
		return nil, fmt.Errorf("add connection: %w", err)
	}

	result := &ConnectionResult{Success: true}
	if req.Bidirectional {
		mirror := conn
		mirror.FromID, mirror.ToID = conn.ToID, conn.FromID
		if err := o.graph.AddEdge(ctx, mirror); err != nil {
			log.Warn("mirror edge failed, connection is one-way",
				"from", req.FromID, "to", req.ToID, "error", err)
		} else {
			result.Mirrored = true
		}
	}

	log.Info("connection added", "from", req.FromID, "to", req.ToID,
		"type", req.Type, "bidirectional", result.Mirrored)
	return result, nil
}

// CreateObservation stores the observation as a semantic text memory and
// links it to each related memory with an OBSERVES edge.
func (o *Orchestrator) CreateObservation(ctx context.Context, req ObservationRequest) (*ObservationResult, error) {
	stored, err := o.StoreMemory(ctx, StoreRequest{
		Content:     req.Content,
		Type:        Semantic,
		ContentType: ContentText,
		AgentID:     req.AgentID,
		SessionID:   req.SessionID,
		Project:     req.Project,
		Tags:        append([]string{"observation"}, req.Tags...),
	})
	if err != nil {
		return nil, err
	}

	result := &ObservationResult{MemoryID: stored.MemoryID}
	for _, relatedID := range req.RelatedIDs {
		err := o.graph.AddEdge(ctx, Connection{
			FromID:     stored.MemoryID,
			ToID:       relatedID,
			Type:       RelObserves,
			Confidence: DefaultEdgeConfidence,
			CreatedAt:  time.Now().UTC(),
		})
		if err != nil {
			log.Warn("observation link failed", "observation", stored.MemoryID,
				"related", relatedID, "error", err)
			continue
		}
		result.LinkedCount++
	}
	return result, nil
}

// DeleteMemory removes the memory everywhere. The three deletes run
// concurrently so no backend blocks another; metadata deletion is
// authoritative and alone decides the returned error, index and graph
// cleanup are best effort.
func (o *Orchestrator) DeleteMemory(ctx context.Context, memoryID string) error {
	mem, err := o.catalog.GetMemory(ctx, memoryID)
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	var metaErr error

	wg.Add(3)
	go func() {
		defer wg.Done()
		metaErr = o.catalog.DeleteMemory(ctx, memoryID)
	}()
	go func() {
		defer wg.Done()
		if err := o.vector.Delete(ctx, memoryID, mem.ContentType); err != nil {
			log.Warn("vector delete failed, stale point remains",
				"memory_id", memoryID, "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := o.graph.DeleteMemory(ctx, memoryID); err != nil {
			log.Warn("graph delete failed, stale node remains",
				"memory_id", memoryID, "error", err)
		}
	}()
	wg.Wait()

	if metaErr != nil {
		return metaErr
	}

	if mem.AgentID != "" {
		if agent, err := o.catalog.GetAgent(ctx, mem.AgentID); err == nil && agent.MemoryCount > 0 {
			agent.MemoryCount--
			if err := o.catalog.PutAgent(ctx, agent); err != nil {
				log.Warn("agent count update failed", "agent_id", mem.AgentID, "error", err)
			}
		}
	}

	log.Info("memory deleted", "memory_id", memoryID)
	return nil
}

// Statistics aggregates counts from metadata with concept clusters from
// the graph. Graph failure drops the clusters, nothing else.
func (o *Orchestrator) Statistics(ctx context.Context, agentID string) (*Statistics, error) {
	memories, err := o.catalog.ListMemories(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Statistics{
		ByType:        map[string]int{},
		ByContentType: map[string]int{},
		ByAgent:       map[string]int{},
		ByProject:     map[string]int{},
	}

	for _, mem := range memories {
		if agentID != "" && mem.AgentID != agentID {
			continue
		}
		stats.TotalMemories++
		stats.ByType[string(mem.Type)]++
		stats.ByContentType[string(mem.ContentType)]++
		if mem.AgentID != "" {
			stats.ByAgent[mem.AgentID]++
		}
		if mem.Project != "" {
			stats.ByProject[mem.Project]++
		}
		if len(stats.RecentMemories) < DefaultPageSize {
			stats.RecentMemories = append(stats.RecentMemories, mem)
		}
	}

	clusters, err := o.graph.ConceptClusters(ctx, agentID)
	if err != nil {
		log.Warn("concept clusters unavailable", "error", err)
	} else {
		stats.ConceptClusters = clusters
	}

	return stats, nil
}

// ListAgents returns every known agent profile.
func (o *Orchestrator) ListAgents(ctx context.Context) ([]AgentProfile, error) {
	return o.catalog.ListAgents(ctx)
}

// ListProjects derives the project listing from the memory records.
func (o *Orchestrator) ListProjects(ctx context.Context) ([]ProjectInfo, error) {
	memories, err := o.catalog.ListMemories(ctx)
	if err != nil {
		return nil, err
	}

	byName := map[string]*ProjectInfo{}
	for _, mem := range memories {
		if mem.Project == "" {
			continue
		}
		info, ok := byName[mem.Project]
		if !ok {
			info = &ProjectInfo{Name: mem.Project}
			byName[mem.Project] = info
		}
		info.MemoryCount++
		if mem.UpdatedAt.After(info.LastActivity) {
			info.LastActivity = mem.UpdatedAt
		}
	}

	projects := make([]ProjectInfo, 0, len(byName))
	for _, info := range byName {
		projects = append(projects, *info)
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].Name < projects[j].Name
	})
	return projects, nil
}

// Connections lists graph edges scoped by memory and relationship type.
func (o *Orchestrator) Connections(ctx context.Context, req ConnectionsRequest) ([]Connection, error) {
	return o.graph.Connections(ctx, req.MemoryID, req.Type, req.Limit)
}

// ConnectionsByEntity lists the edges around one graph entity.
func (o *Orchestrator) ConnectionsByEntity(ctx context.Context, req EntityConnectionsRequest) ([]Connection, error) {
	if req.EntityID == "" {
		return nil, errors.ErrValidation.WithMessagef("entity_id is required")
	}
	return o.graph.EntityConnections(ctx, req.EntityID, req.EntityType, req.Limit)
}

// Health probes all three stores and reports the degraded ones.
func (o *Orchestrator) Health(ctx context.Context) map[string]string {
	health := map[string]string{
		"metadata": "ok",
		"vector":   "ok",
		"graph":    "ok",
	}
	if err := o.catalog.Health(ctx); err != nil {
		health["metadata"] = err.Error()
	}
	if err := o.vector.Ping(ctx); err != nil {
		health["vector"] = err.Error()
	}
	if err := o.graph.Ping(ctx); err != nil {
		health["graph"] = err.Error()
	}
	return health
}

func validateTypes(memType MemoryType, contentType ContentType) error {
	switch memType {
	case Episodic, Semantic, Procedural, Working:
	default:
		return errors.ErrValidation.WithMessagef("unknown memory type %q", memType)
	}
	switch contentType {
	case ContentText, ContentCode:
	default:
		return errors.ErrValidation.WithMessagef("unknown content type %q", contentType)
	}
	return nil
}

func isLogicalErr(err error) bool {
	return goerrors.Is(err, errors.ErrNotFound) || goerrors.Is(err, errors.ErrValidation)
}
