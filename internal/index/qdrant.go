package index

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantIndex serves the same build/search surface as FileIndex from a
// Qdrant collection. Use it for corpora beyond the brute-force scale;
// search is approximate, so recall can degrade slightly compared to the
// exact file index. Persistence is owned by Qdrant rather than local
// artifacts. The configured collection name is used as a serving alias:
// each build populates a fresh collection and repoints the alias, the
// remote equivalent of FileIndex's whole-state swap.
type QdrantIndex struct {
	client     *qdrant.Client
	embedder   Embedder
	collection string
	dimension  int
	logger     *slog.Logger
}

// NewQdrantIndex connects to Qdrant and verifies it is reachable,
// retrying with exponential backoff for up to 30 seconds.
func NewQdrantIndex(host string, port int, collection string, dimension int, embedder Embedder, logger *slog.Logger) (*QdrantIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	x := &QdrantIndex{
		client:     client,
		embedder:   embedder,
		collection: collection,
		dimension:  dimension,
		logger:     logger,
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(func() error { return x.Ready(context.Background()) }, b); err != nil {
		client.Close()
		return nil, fmt.Errorf("qdrant unreachable at %s:%d: %w", host, port, err)
	}
	return x, nil
}

// Ready performs a single health check against Qdrant.
func (x *QdrantIndex) Ready(ctx context.Context) error {
	result, err := x.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("qdrant health check returned empty response")
	}
	return nil
}

// Build embeds the chunks and replaces the served corpus. Points go
// into a fresh staging collection first; the serving alias is repointed
// to it in a single alias update only once staging is fully populated,
// so in-flight searches keep hitting the previous corpus and never
// observe a partially-built one.
func (x *QdrantIndex) Build(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return ErrEmptyBuild
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := x.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %d chunks: %w", len(chunks), err)
	}
	for i, v := range vectors {
		if len(v) != x.dimension {
			return fmt.Errorf("%w: vector %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(v), x.dimension)
		}
	}

	staging := fmt.Sprintf("%s_%d", x.collection, time.Now().UnixNano())
	if err := x.createCollection(ctx, staging); err != nil {
		return err
	}

	const batchSize = 100
	for start := 0; start < len(chunks); start += batchSize {
		end := min(start+batchSize, len(chunks))
		points := make([]*qdrant.PointStruct, 0, end-start)
		for i := start; i < end; i++ {
			c := chunks[i]
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDNum(uint64(i)),
				Vectors: qdrant.NewVectors(vectors[i]...),
				Payload: qdrant.NewValueMap(map[string]any{
					"text":         c.Text,
					"source":       c.Source,
					"page":         c.Page,
					"chunk_index":  c.ChunkIndex,
					"total_chunks": c.TotalChunks,
				}),
			})
		}
		if err := x.upsertWithRetry(ctx, staging, points); err != nil {
			x.dropCollection(ctx, staging)
			return fmt.Errorf("upsert batch %d-%d: %w", start, end, err)
		}
	}

	if err := x.promote(ctx, staging); err != nil {
		x.dropCollection(ctx, staging)
		return err
	}

	x.logger.Info("qdrant collection rebuilt", "alias", x.collection, "collection", staging, "chunks", len(chunks))
	return nil
}

// Search embeds the query and returns the k nearest chunks ranked
// ascending by distance.
func (x *QdrantIndex) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("top-k must be positive, got %d", k)
	}

	vectors, err := x.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	q := vectors[0]
	if len(q) != x.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d", ErrDimensionMismatch, len(q), x.dimension)
	}

	points, err := x.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: x.collection,
		Query:          qdrant.NewQuery(q...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant query: %w", err)
	}

	results := make([]Result, 0, len(points))
	for rank, p := range points {
		payload := p.Payload
		// The collection uses Euclidean distance; square the reported
		// score so relevance matches the file index's metric.
		dist := float64(p.Score) * float64(p.Score)
		results = append(results, Result{
			Rank: rank + 1,
			Chunk: Chunk{
				Text:        payload["text"].GetStringValue(),
				Source:      payload["source"].GetStringValue(),
				Page:        int(payload["page"].GetIntegerValue()),
				ChunkIndex:  int(payload["chunk_index"].GetIntegerValue()),
				TotalChunks: int(payload["total_chunks"].GetIntegerValue()),
			},
			Distance:  dist,
			Relevance: relevance(dist),
		})
	}
	return results, nil
}

// Close releases the underlying client connection.
func (x *QdrantIndex) Close() error {
	if x.client != nil {
		return x.client.Close()
	}
	return nil
}

func (x *QdrantIndex) createCollection(ctx context.Context, name string) error {
	err := x.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(x.dimension),
			Distance: qdrant.Distance_Euclid,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	return nil
}

// promote points the serving alias at the freshly built collection and
// drops the superseded one. The delete and create run in one alias
// update, which Qdrant applies atomically.
func (x *QdrantIndex) promote(ctx context.Context, staging string) error {
	// A plain collection occupying the alias name (pre-alias layout)
	// blocks alias creation and has to go first.
	names, err := x.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	for _, name := range names {
		if name == x.collection {
			if err := x.client.DeleteCollection(ctx, x.collection); err != nil {
				return fmt.Errorf("delete legacy collection: %w", err)
			}
			break
		}
	}

	var previous string
	aliases, err := x.client.ListAliases(ctx)
	if err != nil {
		return fmt.Errorf("list aliases: %w", err)
	}
	var ops []*qdrant.AliasOperations
	for _, a := range aliases {
		if a.GetAliasName() == x.collection {
			previous = a.GetCollectionName()
			ops = append(ops, &qdrant.AliasOperations{
				Action: &qdrant.AliasOperations_DeleteAlias{
					DeleteAlias: &qdrant.DeleteAlias{AliasName: x.collection},
				},
			})
			break
		}
	}
	ops = append(ops, &qdrant.AliasOperations{
		Action: &qdrant.AliasOperations_CreateAlias{
			CreateAlias: &qdrant.CreateAlias{
				CollectionName: staging,
				AliasName:      x.collection,
			},
		},
	})
	if err := x.client.UpdateAliases(ctx, ops); err != nil {
		return fmt.Errorf("swap alias %s: %w", x.collection, err)
	}

	if previous != "" && previous != staging {
		x.dropCollection(ctx, previous)
	}
	return nil
}

// dropCollection is best-effort cleanup; a leftover collection wastes
// space but never serves queries.
func (x *QdrantIndex) dropCollection(ctx context.Context, name string) {
	if err := x.client.DeleteCollection(ctx, name); err != nil {
		x.logger.Warn("could not drop collection", "collection", name, "error", err)
	}
}

func (x *QdrantIndex) upsertWithRetry(ctx context.Context, collection string, points []*qdrant.PointStruct) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		_, err := x.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Points:         points,
		})
		return err
	}
	return backoff.Retry(operation, backoff.WithContext(b, ctx))
}
