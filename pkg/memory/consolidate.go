package memory

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/blueshiftlabs-ai/bedrock-agent-system-sub000/pkg/embedding"
)

const (
	// DefaultSimilarityThreshold marks two memories as near-duplicates.
	DefaultSimilarityThreshold = 0.9
	// DefaultMaxConsolidations bounds one consolidation pass.
	DefaultMaxConsolidations = 10
)

/*
ConsolidateMemories merges near-duplicate memories. Candidates are pairs
of the same memory and content type whose stored embeddings exceed the
similarity threshold. For each pair the more-accessed memory survives
(ties go to the older one); the duplicate's tags, access count, and graph
edges fold into the survivor before the duplicate is deleted everywhere.

Working memories are skipped: they describe in-flight tasks and merging
them would collapse distinct activities that merely read alike.
*/
func (o *Orchestrator) ConsolidateMemories(ctx context.Context, req ConsolidateRequest) (*ConsolidateResult, error) {
	threshold := req.SimilarityThreshold
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	maxMerges := req.MaxConsolidations
	if maxMerges <= 0 {
		maxMerges = DefaultMaxConsolidations
	}

	memories, err := o.catalog.ListMemories(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []Memory
	for _, mem := range memories {
		if req.AgentID != "" && mem.AgentID != req.AgentID {
			continue
		}
		if mem.Type == Working || len(mem.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, mem)
	}

	result := &ConsolidateResult{}
	consumed := map[string]bool{}

	for i := 0; i < len(candidates) && result.Consolidations < maxMerges; i++ {
		if consumed[candidates[i].ID] {
			continue
		}
		for j := i + 1; j < len(candidates) && result.Consolidations < maxMerges; j++ {
			if consumed[candidates[j].ID] {
				continue
			}
			a, b := candidates[i], candidates[j]
			if a.Type != b.Type || a.ContentType != b.ContentType {
				continue
			}
			if embedding.Cosine(a.Embedding, b.Embedding) < threshold {
				continue
			}

			survivor, duplicate := pickSurvivor(a, b)
			moved, err := o.merge(ctx, survivor, duplicate)
			if err != nil {
				log.Warn("consolidation pair failed, skipping",
					"survivor", survivor.ID, "duplicate", duplicate.ID, "error", err)
				continue
			}

			consumed[duplicate.ID] = true
			result.Consolidations++
			result.MemoriesMerged += 2
			result.ConnectionsUpdated += moved

			if survivor.ID == b.ID {
				// The loop anchor was merged away; move on.
				consumed[a.ID] = true
				break
			}
			candidates[i] = *survivor
		}
	}

	log.Info("consolidation pass finished",
		"consolidations", result.Consolidations,
		"connections_updated", result.ConnectionsUpdated)
	return result, nil
}

// pickSurvivor prefers the memory with more recorded accesses, then the
// older one.
func pickSurvivor(a, b Memory) (survivor, duplicate *Memory) {
	if b.AccessCount > a.AccessCount ||
		(b.AccessCount == a.AccessCount && b.CreatedAt.Before(a.CreatedAt)) {
		return &b, &a
	}
	return &a, &b
}

// merge folds duplicate into survivor: tags and access history union into
// the survivor record, graph edges move over, and the duplicate is removed
// from every store. The survivor update is authoritative and aborts the
// merge on failure; cleanup of the duplicate's projections is best effort.
func (o *Orchestrator) merge(ctx context.Context, survivor, duplicate *Memory) (int, error) {
	survivor.Tags = unionTags(survivor.Tags, duplicate.Tags)
	survivor.AccessCount += duplicate.AccessCount
	if duplicate.Confidence > survivor.Confidence {
		survivor.Confidence = duplicate.Confidence
	}
	survivor.UpdatedAt = time.Now().UTC()

	if err := o.catalog.PutMemory(ctx, survivor); err != nil {
		return 0, err
	}
	if err := o.catalog.DeleteMemory(ctx, duplicate.ID); err != nil {
		return 0, err
	}

	if err := o.vector.Update(ctx, *survivor); err != nil {
		log.Warn("survivor reindex failed", "memory_id", survivor.ID, "error", err)
	}
	if err := o.vector.Delete(ctx, duplicate.ID, duplicate.ContentType); err != nil {
		log.Warn("duplicate vector delete failed", "memory_id", duplicate.ID, "error", err)
	}

	moved, err := o.graph.MergeInto(ctx, duplicate.ID, survivor.ID)
	if err != nil {
		log.Warn("graph merge failed, duplicate node may remain",
			"duplicate", duplicate.ID, "survivor", survivor.ID, "error", err)
		return 0, nil
	}
	return moved, nil
}

func unionTags(a, b []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, tag := range append(append([]string{}, a...), b...) {
		if !seen[tag] {
			seen[tag] = true
			out = append(out, tag)
		}
	}
	return out
}
