package service

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/blueshiftlabs-ai/bedrock-agent-system-sub000/pkg/embedding"
	"github.com/blueshiftlabs-ai/bedrock-agent-system-sub000/pkg/memory"
	"github.com/blueshiftlabs-ai/bedrock-agent-system-sub000/pkg/stores/metadata"
	"github.com/blueshiftlabs-ai/bedrock-agent-system-sub000/pkg/stores/neo4j"
)

/*
NewEngine assembles the orchestrator from viper configuration: the
failover metadata store, the per-content-type vector collections, the
graph client, and the tiered embedding chain. The engine always comes up;
unreachable backends degrade it rather than failing startup.
*/
func NewEngine(ctx context.Context) (*memory.Orchestrator, error) {
	dimension := viper.GetInt("embedding.dimension")
	if dimension <= 0 {
		dimension = 1536
	}

	catalog := memory.NewCatalog(newMetadataStore(ctx))

	vector := memory.NewQdrantVectorStore(
		viper.GetString("stores.qdrant.endpoint"),
		viper.GetString("stores.qdrant.collection_prefix"),
	)
	if err := vector.Bootstrap(ctx, dimension); err != nil {
		log.Warn("vector store bootstrap failed, similarity search degraded", "error", err)
	}

	graph := memory.NewNeo4jGraphStore(neo4j.New(
		viper.GetString("stores.neo4j.endpoint"),
		viper.GetString("stores.neo4j.username"),
		viper.GetString("stores.neo4j.password"),
	))
	if err := graph.Ping(ctx); err != nil {
		log.Warn("graph store unreachable, relationships degraded", "error", err)
	}

	return memory.NewOrchestrator(
		catalog, vector, graph, newEmbedder(dimension), newResolver(),
	), nil
}

// newMetadataStore builds the failover pair. When the object store cannot
// even be constructed, the local store serves alone.
func newMetadataStore(ctx context.Context) metadata.Store {
	local, err := metadata.NewLocalStore(dataDir())
	if err != nil {
		log.Fatal("local metadata store unavailable", "error", err)
	}

	primary, err := metadata.NewMinioStore(ctx, metadata.MinioConfig{
		Endpoint:  viper.GetString("stores.minio.endpoint"),
		AccessKey: viper.GetString("stores.minio.access_key"),
		SecretKey: viper.GetString("stores.minio.secret_key"),
		Bucket:    viper.GetString("stores.minio.bucket"),
		UseSSL:    viper.GetBool("stores.minio.use_ssl"),
	})
	if err != nil {
		log.Warn("object metadata store unavailable, running on local fallback only", "error", err)
		return local
	}

	selector := metadata.NewSelector(ctx, primary, local, viper.GetDuration("stores.recheck_interval"))
	selector.StartHealthLoop(ctx)
	return selector
}

func dataDir() string {
	if dir := viper.GetString("stores.local.dir"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".memcore"
	}
	return filepath.Join(home, ".memcore", "data")
}

// newEmbedder chains the configured remote and local tiers. The hash
// fallback inside the generator guarantees a vector even with no tiers.
func newEmbedder(dimension int) *embedding.TieredGenerator {
	var tiers []embedding.Tier

	if apiKey := viper.GetString("embedding.openai.api_key"); apiKey != "" {
		tiers = append(tiers, embedding.NewOpenAITier(embedding.OpenAIConfig{
			APIKey:    apiKey,
			BaseURL:   viper.GetString("embedding.openai.base_url"),
			Model:     viper.GetString("embedding.openai.model"),
			Dimension: dimension,
		}))
	}

	if baseURL := viper.GetString("embedding.ollama.endpoint"); baseURL != "" {
		tiers = append(tiers, embedding.NewOllamaTier(baseURL, map[embedding.ContentType]string{
			embedding.Text: viper.GetString("embedding.ollama.text_model"),
			embedding.Code: viper.GetString("embedding.ollama.code_model"),
		}))
	}

	return embedding.NewTieredGenerator(dimension, tiers...)
}

// newResolver resolves the default project: the configured name when set,
// otherwise the working directory's base name, cached briefly.
func newResolver() memory.ProjectResolver {
	if project := viper.GetString("memory.default_project"); project != "" {
		return memory.StaticResolver{Project: project}
	}

	return memory.NewCachedResolver(func(ctx context.Context) (string, error) {
		wd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		return filepath.Base(wd), nil
	}, 5*time.Minute, "default")
}
