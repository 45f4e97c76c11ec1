package ask

import (
	"context"

	"github.com/neal-yes/rag-gateway/internal/engine"
)

type fakeGenerator struct {
	response      string
	generateErr   error
	streamChunks  []engine.StreamChunk
	streamErr     error
	streamDelayMs int
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt, model string, options map[string]interface{}) (map[string]interface{}, error) {
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return map[string]interface{}{"response": f.response}, nil
}

func (f *fakeGenerator) GenerateStream(ctx context.Context, prompt, model string, options map[string]interface{}) (<-chan engine.StreamChunk, error) {
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	ch := make(chan engine.StreamChunk, len(f.streamChunks)+1)
	go func() {
		defer close(ch)
		for _, c := range f.streamChunks {
			select {
			case <-ctx.Done():
				return
			case ch <- c:
			}
		}
	}()
	return ch, nil
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

type fakeIndex struct {
	exists    bool
	existsErr error
	scored    []engine.ScoredPoint
	searchErr error
	info      map[string]interface{}
}

func (f *fakeIndex) CollectionExists(ctx context.Context, name string) (bool, error) {
	return f.exists, f.existsErr
}
func (f *fakeIndex) EnsureCollection(ctx context.Context, name string, vectorSize int, distance string) error {
	return nil
}
func (f *fakeIndex) ListCollections(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeIndex) DropCollection(ctx context.Context, name string) (bool, error) {
	return false, nil
}
func (f *fakeIndex) ClearCollection(ctx context.Context, name string) error { return nil }
func (f *fakeIndex) UpsertVectors(ctx context.Context, name string, vectors [][]float64, payloads []map[string]interface{}, ids []string) ([]string, error) {
	return nil, nil
}
func (f *fakeIndex) SearchVectors(ctx context.Context, name string, query []float64, topK int, filters map[string]interface{}) ([]engine.ScoredPoint, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.scored, nil
}
func (f *fakeIndex) Scroll(ctx context.Context, name string, filters map[string]interface{}, limit int, offset *string, withVectors bool) ([]engine.Point, *string, error) {
	return nil, nil, nil
}
func (f *fakeIndex) DeletePointsByIDs(ctx context.Context, name string, ids []string) (int, error) {
	return 0, nil
}
func (f *fakeIndex) DeletePointsByFilter(ctx context.Context, name string, filters map[string]interface{}) (int, error) {
	return 0, nil
}
func (f *fakeIndex) Count(ctx context.Context, name string, filters map[string]interface{}, exact bool) (int, error) {
	return 0, nil
}
func (f *fakeIndex) Retrieve(ctx context.Context, name string, ids []string, withVectors, withPayload bool) ([]engine.Point, error) {
	return nil, nil
}
func (f *fakeIndex) GetCollectionInfo(ctx context.Context, name string) (map[string]interface{}, error) {
	return f.info, nil
}
