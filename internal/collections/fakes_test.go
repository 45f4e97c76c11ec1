package collections

import (
	"context"

	"github.com/neal-yes/rag-gateway/internal/engine"
)

// fakeIndex is a minimal engine.VectorIndex double recording upsert calls
// so tests can assert on batching and conflict-skip behavior.
type fakeIndex struct {
	exists       bool
	existsErr    error
	info         map[string]interface{}
	infoErr      error
	retrievePts  []engine.Point
	retrieveErr  error
	upsertErr    error
	upsertBatches [][]string // ids per call, in call order
	scrollPoints []engine.Point
	dropped      bool
	cleared      bool
	deletedIDs   []string
	deletedFiltered int
}

func (f *fakeIndex) CollectionExists(ctx context.Context, name string) (bool, error) {
	return f.exists, f.existsErr
}
func (f *fakeIndex) EnsureCollection(ctx context.Context, name string, vectorSize int, distance string) error {
	return nil
}
func (f *fakeIndex) ListCollections(ctx context.Context) ([]string, error) {
	return []string{"docs"}, nil
}
func (f *fakeIndex) DropCollection(ctx context.Context, name string) (bool, error) {
	f.dropped = true
	return true, nil
}
func (f *fakeIndex) ClearCollection(ctx context.Context, name string) error {
	f.cleared = true
	return nil
}
func (f *fakeIndex) UpsertVectors(ctx context.Context, name string, vectors [][]float64, payloads []map[string]interface{}, ids []string) ([]string, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	outIDs := ids
	if outIDs == nil {
		outIDs = make([]string, len(vectors))
		for i := range vectors {
			outIDs[i] = "generated"
		}
	}
	f.upsertBatches = append(f.upsertBatches, append([]string{}, outIDs...))
	return outIDs, nil
}
func (f *fakeIndex) SearchVectors(ctx context.Context, name string, query []float64, topK int, filters map[string]interface{}) ([]engine.ScoredPoint, error) {
	return nil, nil
}
func (f *fakeIndex) Scroll(ctx context.Context, name string, filters map[string]interface{}, limit int, offset *string, withVectors bool) ([]engine.Point, *string, error) {
	return f.scrollPoints, nil, nil
}
func (f *fakeIndex) DeletePointsByIDs(ctx context.Context, name string, ids []string) (int, error) {
	f.deletedIDs = ids
	return len(ids), nil
}
func (f *fakeIndex) DeletePointsByFilter(ctx context.Context, name string, filters map[string]interface{}) (int, error) {
	f.deletedFiltered = len(filters)
	return 3, nil
}
func (f *fakeIndex) Count(ctx context.Context, name string, filters map[string]interface{}, exact bool) (int, error) {
	return len(f.scrollPoints), nil
}
func (f *fakeIndex) Retrieve(ctx context.Context, name string, ids []string, withVectors, withPayload bool) ([]engine.Point, error) {
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	return f.retrievePts, nil
}
func (f *fakeIndex) GetCollectionInfo(ctx context.Context, name string) (map[string]interface{}, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	return f.info, nil
}

type fakeEmbedder struct {
	vecs [][]float64
	err  error
}

func (f *fakeEmbedder) Embeddings(ctx context.Context, texts []string, model string) ([][]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vecs, nil
}

func collectionInfoWithDim(dim int) map[string]interface{} {
	return map[string]interface{}{
		"config": map[string]interface{}{
			"params": map[string]interface{}{
				"vectors": map[string]interface{}{"size": float64(dim)},
			},
		},
	}
}
