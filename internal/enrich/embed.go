package enrich

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"modelserve/internal/model"
)

const embeddingComponents = 2

// metadataEmbeddingKey is where the embedding lands on the prediction.
const metadataEmbeddingKey = "embedding"

// Projector maps an input vector into a low-dimensional space through a
// fixed random projection. The matrix is seeded from the (name, version)
// pair, so the same model always projects the same way across restarts;
// no historical corpus is retained, so there is no fit step.
type Projector struct {
	matrix [][]float64
}

func newProjector(key string, dim int) *Projector {
	h := fnv.New64a()
	h.Write([]byte(key))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	matrix := make([][]float64, embeddingComponents)
	for c := range matrix {
		row := make([]float64, dim)
		for i := range row {
			row[i] = rng.NormFloat64()
		}
		matrix[c] = row
	}
	return &Projector{matrix: matrix}
}

// Transform projects vec into the embedding space.
func (p *Projector) Transform(vec []float64) ([]float64, error) {
	if len(p.matrix) == 0 || len(vec) != len(p.matrix[0]) {
		return nil, fmt.Errorf("projector expects %d features, got %d", len(p.matrix[0]), len(vec))
	}

	out := make([]float64, len(p.matrix))
	for c, row := range p.matrix {
		for i, v := range vec {
			out[c] += row[i] * v
		}
	}
	return out, nil
}

// ProjectorCache lazily builds one projector per (model name, version)
// pair and reuses it across predictions. The create path is serialized
// so concurrent first requests for the same key cannot race into
// duplicate construction.
type ProjectorCache struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *Projector]
}

func NewProjectorCache(size int) (*ProjectorCache, error) {
	cache, err := lru.New[string, *Projector](size)
	if err != nil {
		return nil, err
	}
	return &ProjectorCache{cache: cache}, nil
}

// Embed projects the prediction's input vector and stores the result in
// the prediction metadata. A returned error means the prediction was
// left unmodified.
func (c *ProjectorCache) Embed(m *model.Model, p *model.Prediction) error {
	vec := m.Vectorize(p.Inputs)
	if len(vec) == 0 {
		return fmt.Errorf("nothing to embed for model %s/%s", m.Name, m.Version)
	}

	projector := c.lookupOrCreate(m.Name+"/"+m.Version, len(vec))
	embedding, err := projector.Transform(vec)
	if err != nil {
		return err
	}

	if p.Metadata == nil {
		p.Metadata = make(map[string]any)
	}
	p.Metadata[metadataEmbeddingKey] = embedding
	return nil
}

func (c *ProjectorCache) lookupOrCreate(key string, dim int) *Projector {
	c.mu.Lock()
	defer c.mu.Unlock()

	if projector, ok := c.cache.Get(key); ok {
		return projector
	}
	projector := newProjector(key, dim)
	c.cache.Add(key, projector)
	return projector
}
