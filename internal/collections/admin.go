package collections

import (
	"context"
	"fmt"

	"github.com/neal-yes/rag-gateway/internal/engine"
	"github.com/neal-yes/rag-gateway/internal/gwerrors"
)

// Admin wraps the vector index and embedder for the collection
// administration endpoints: list/info/ensure/delete/clear/points.
type Admin struct {
	Index    engine.VectorIndex
	Embedder engine.Embedder
}

func (a *Admin) List(ctx context.Context) ([]string, error) {
	return a.Index.ListCollections(ctx)
}

func (a *Admin) Info(ctx context.Context, name string) (map[string]interface{}, error) {
	exists, err := a.Index.CollectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, gwerrors.New(gwerrors.NotFound, "collection not found", nil)
	}
	info, err := a.Index.GetCollectionInfo(ctx, name)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"name": name, "info": info}, nil
}

func (a *Admin) Ensure(ctx context.Context, req EnsureRequest) (map[string]interface{}, error) {
	distance := req.Distance
	if distance == "" {
		distance = "Cosine"
	}
	if err := a.Index.EnsureCollection(ctx, req.Name, req.VectorSize, distance); err != nil {
		return nil, err
	}
	return map[string]interface{}{"name": req.Name, "distance": distance, "vector_size": req.VectorSize}, nil
}

// Delete is idempotent: deleting a collection that doesn't exist
// reports deleted=false rather than a 404.
func (a *Admin) Delete(ctx context.Context, name string) (map[string]interface{}, error) {
	exists, err := a.Index.CollectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return map[string]interface{}{"name": name, "deleted": false, "reason": "not found"}, nil
	}
	if _, err := a.Index.DropCollection(ctx, name); err != nil {
		return nil, err
	}
	return map[string]interface{}{"name": name, "deleted": true}, nil
}

func (a *Admin) Clear(ctx context.Context, name string) (map[string]interface{}, error) {
	exists, err := a.Index.CollectionExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, gwerrors.New(gwerrors.NotFound, "collection not found", nil)
	}
	if err := a.Index.ClearCollection(ctx, name); err != nil {
		return nil, err
	}
	return map[string]interface{}{"name": name, "cleared": true}, nil
}

func (a *Admin) DeletePointsByIDs(ctx context.Context, collection string, ids []string) (map[string]interface{}, error) {
	exists, err := a.Index.CollectionExists(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, gwerrors.New(gwerrors.NotFound, "collection not found", nil)
	}
	if len(ids) == 0 {
		return nil, gwerrors.New(gwerrors.BadRequest, "ids is required", nil)
	}
	deleted, err := a.Index.DeletePointsByIDs(ctx, collection, ids)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"collection": collection, "deleted_ids": ids, "deleted_count": deleted}, nil
}

func (a *Admin) DeletePointsByFilter(ctx context.Context, collection string, filters map[string]interface{}) (map[string]interface{}, error) {
	exists, err := a.Index.CollectionExists(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, gwerrors.New(gwerrors.NotFound, "collection not found", nil)
	}
	if len(filters) == 0 {
		return nil, gwerrors.New(gwerrors.BadRequest, "filters is required", nil)
	}
	deleted, err := a.Index.DeletePointsByFilter(ctx, collection, filters)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"collection": collection, "filters": filters, "deleted": true, "deleted_count": deleted}, nil
}

// UpsertTexts embeds req.Texts and writes them as points, folding each
// text's metadata into its payload alongside the "text" field the ask
// pipeline's retrieval reads back out.
func (a *Admin) UpsertTexts(ctx context.Context, req UpsertTextsRequest) (map[string]interface{}, error) {
	exists, err := a.Index.CollectionExists(ctx, req.Collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, gwerrors.New(gwerrors.NotFound, "collection not found", nil)
	}
	if len(req.Texts) == 0 {
		return nil, gwerrors.New(gwerrors.BadRequest, "texts is required", nil)
	}

	vecs, err := a.Embedder.Embeddings(ctx, req.Texts, req.Model)
	if err != nil || len(vecs) != len(req.Texts) {
		return nil, gwerrors.New(gwerrors.Upstream, "failed to embed texts", err)
	}

	payloads := make([]map[string]interface{}, len(req.Texts))
	for i, text := range req.Texts {
		payload := map[string]interface{}{"text": text}
		if i < len(req.Metadatas) && req.Metadatas[i] != nil {
			for k, v := range req.Metadatas[i] {
				payload[k] = v
			}
		}
		payloads[i] = payload
	}

	ids, err := a.Index.UpsertVectors(ctx, req.Collection, vecs, payloads, req.IDs)
	if err != nil {
		return nil, fmt.Errorf("upsert_texts: %w", err)
	}

	outIDs := req.IDs
	if outIDs == nil {
		outIDs = ids
	}
	return map[string]interface{}{"collection": req.Collection, "upserted": len(vecs), "ids": outIDs}, nil
}
