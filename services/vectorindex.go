package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"github.com/machirag/server/models"
)

// UpsertItem is one (id, vector, metadata) triple written atomically as part
// of a batch upsert.
type UpsertItem struct {
	ID       string
	Text     string
	Vector   []float32
	Metadata models.MetadataRecord
}

// VectorIndex is the boundary to the vector index service. A namespace is an
// opaque partition key; ingestion and retrieval for the same collection must
// use the same namespace.
type VectorIndex interface {
	Upsert(ctx context.Context, namespace string, items []UpsertItem) error
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]models.QueryMatch, error)
	Count(ctx context.Context, namespace string) (int, error)
	DeleteByFilename(ctx context.Context, namespace, filename string) error
}

// ChromaIndex implements VectorIndex on ChromaDB. Chroma partitions by
// collection, so each namespace maps to a derived collection name, created on
// first use and cached.
type ChromaIndex struct {
	client   chromago.Client
	baseName string

	mu          sync.Mutex
	collections map[string]chromago.Collection
}

// NewChromaIndex wraps an existing chroma client. baseName is the collection
// used for the empty namespace.
func NewChromaIndex(client chromago.Client, baseName string) *ChromaIndex {
	return &ChromaIndex{
		client:      client,
		baseName:    baseName,
		collections: make(map[string]chromago.Collection),
	}
}

func (x *ChromaIndex) collectionName(namespace string) string {
	if namespace == "" {
		return x.baseName
	}
	return x.baseName + "-" + namespace
}

func (x *ChromaIndex) collection(ctx context.Context, namespace string) (chromago.Collection, error) {
	name := x.collectionName(namespace)

	x.mu.Lock()
	defer x.mu.Unlock()
	if col, ok := x.collections[name]; ok {
		return col, nil
	}

	log.Printf("INDEX: Getting or creating collection '%s'...", name)
	col, err := x.client.GetOrCreateCollection(
		ctx,
		name,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("hnsw:space", "cosine"),
				chromago.NewStringAttribute("created_by", "machirag"),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create collection %s: %w", name, err)
	}
	x.collections[name] = col
	return col, nil
}

// Upsert writes the batch in one call. Upserting an existing id overwrites
// its vector and metadata, so re-ingestion is idempotent.
func (x *ChromaIndex) Upsert(ctx context.Context, namespace string, items []UpsertItem) error {
	if len(items) == 0 {
		return nil
	}
	col, err := x.collection(ctx, namespace)
	if err != nil {
		return err
	}

	ids := make([]chromago.DocumentID, 0, len(items))
	texts := make([]string, 0, len(items))
	embs := make([]embeddings.Embedding, 0, len(items))
	metas := make([]chromago.DocumentMetadata, 0, len(items))
	for _, item := range items {
		ids = append(ids, chromago.DocumentID(item.ID))
		texts = append(texts, item.Text)
		embs = append(embs, embeddings.NewEmbeddingFromFloat32(item.Vector))
		metas = append(metas, toDocumentMetadata(item.Metadata))
	}

	err = col.Upsert(ctx,
		chromago.WithIDs(ids...),
		chromago.WithTexts(texts...),
		chromago.WithEmbeddings(embs...),
		chromago.WithMetadatas(metas...),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert %d records: %w", len(items), err)
	}
	return nil
}

// Query returns up to topK nearest matches ordered by descending similarity.
func (x *ChromaIndex) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]models.QueryMatch, error) {
	col, err := x.collection(ctx, namespace)
	if err != nil {
		return nil, err
	}

	// Distances are always part of a query response; only documents and
	// metadata need an explicit include.
	results, err := col.Query(ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chromago.WithNResults(topK),
		chromago.WithIncludeQuery(chromago.IncludeDocuments, chromago.IncludeMetadatas),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	idGroups := results.GetIDGroups()
	if len(idGroups) == 0 {
		return nil, nil
	}
	documentGroups := results.GetDocumentsGroups()
	metadataGroups := results.GetMetadatasGroups()
	distanceGroups := results.GetDistancesGroups()

	matches := make([]models.QueryMatch, 0, len(idGroups[0]))
	for i, id := range idGroups[0] {
		match := models.QueryMatch{ChunkID: string(id)}
		if len(documentGroups) > 0 && i < len(documentGroups[0]) {
			match.Text = documentGroups[0][i].ContentString()
		}
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			// Chroma reports cosine distance; similarity is its complement.
			match.Score = 1 - float64(distanceGroups[0][i])
		}
		if len(metadataGroups) > 0 && i < len(metadataGroups[0]) {
			match.Metadata = metadataToMap(metadataGroups[0][i])
		}
		matches = append(matches, match)
	}
	return matches, nil
}

// Count reports the number of vectors stored in the namespace.
func (x *ChromaIndex) Count(ctx context.Context, namespace string) (int, error) {
	col, err := x.collection(ctx, namespace)
	if err != nil {
		return 0, err
	}
	count, err := col.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return int(count), nil
}

// DeleteByFilename removes every chunk ingested from the named file. The
// watcher uses this before re-ingesting a changed file so stale chunks from a
// longer previous version do not linger.
func (x *ChromaIndex) DeleteByFilename(ctx context.Context, namespace, filename string) error {
	col, err := x.collection(ctx, namespace)
	if err != nil {
		return err
	}
	where := chromago.EqString("filename", filename)
	if err := col.Delete(ctx, chromago.WithWhereDelete(where)); err != nil {
		return fmt.Errorf("failed to delete records for %s: %w", filename, err)
	}
	return nil
}

func toDocumentMetadata(record models.MetadataRecord) chromago.DocumentMetadata {
	attrs := make([]*chromago.MetaAttribute, 0, len(record))
	for key, value := range record {
		switch v := value.(type) {
		case string:
			attrs = append(attrs, chromago.NewStringAttribute(key, v))
		case int:
			attrs = append(attrs, chromago.NewIntAttribute(key, int64(v)))
		case int64:
			attrs = append(attrs, chromago.NewIntAttribute(key, v))
		case float64:
			attrs = append(attrs, chromago.NewFloatAttribute(key, v))
		case float32:
			attrs = append(attrs, chromago.NewFloatAttribute(key, float64(v)))
		default:
			attrs = append(attrs, chromago.NewStringAttribute(key, fmt.Sprintf("%v", v)))
		}
	}
	return chromago.NewDocumentMetadata(attrs...)
}

// metadataToMap converts chroma's metadata type into a plain map. The struct
// exposes no accessor for all values, so it round-trips through JSON.
func metadataToMap(metadata chromago.DocumentMetadata) map[string]interface{} {
	if metadata == nil {
		return nil
	}
	jsonBytes, err := json.Marshal(metadata)
	if err != nil {
		log.Printf("WARN: could not marshal document metadata: %v", err)
		return map[string]interface{}{}
	}
	var metadataMap map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &metadataMap); err != nil {
		log.Printf("WARN: could not unmarshal document metadata: %v", err)
		return map[string]interface{}{}
	}
	return metadataMap
}
