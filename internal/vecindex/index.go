// Package vecindex implements a persistent flat similarity index: an
// append-only list of embedding vectors plus a slot-to-content-item map,
// mirrored to a pair of on-disk files. Search is a linear scan over squared
// Euclidean distance, which is exact and fast enough for a personal corpus.
package vecindex

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
)

// Embedder is the external text-embedding model handle. Implementations must
// return normalized vectors of a fixed dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// Hit is one similarity result. Distance is squared Euclidean over
// normalized vectors: smaller is more similar.
type Hit struct {
	ContentItemID string
	Distance      float32
}

// Index is the process-wide similarity index. All mutation is serialized
// under a single writer lock; searches take the read lock and see a
// consistent snapshot.
type Index struct {
	mu       sync.RWMutex
	embedder Embedder
	dim      int
	vectors  [][]float32
	slots    map[int]string

	vectorPath string
	mapPath    string
	logger     *slog.Logger
}

// Open loads the index at the given file pair, or creates an empty one.
//
// If both files exist they are loaded and the entry counts must agree; any
// disagreement (including only one file present) is ErrCorruptIndex. If
// neither exists an empty index is created and persisted immediately, so a
// valid empty state is on disk before any write is attempted.
func Open(embedder Embedder, vectorPath, mapPath string, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}

	idx := &Index{
		embedder:   embedder,
		dim:        embedder.Dimension(),
		slots:      make(map[int]string),
		vectorPath: vectorPath,
		mapPath:    mapPath,
		logger:     logger,
	}

	vectorsExist := fileExists(vectorPath)
	mapExists := fileExists(mapPath)

	switch {
	case vectorsExist && mapExists:
		if err := idx.load(); err != nil {
			return nil, err
		}
		logger.Info("loaded vector index", "path", vectorPath, "entries", len(idx.vectors))
	case !vectorsExist && !mapExists:
		if err := idx.persist(); err != nil {
			return nil, err
		}
		logger.Info("created empty vector index", "path", vectorPath, "dim", idx.dim)
	default:
		return nil, fmt.Errorf("%w: only one of %s and %s exists", ErrCorruptIndex, vectorPath, mapPath)
	}

	return idx, nil
}

// AddEmbedding embeds text, appends the vector at the next slot, records the
// slot-to-id mapping and persists both files before returning. The returned
// slot number equals the entry count before the append.
//
// An embedding-model failure is ErrEmbedding and leaves the index untouched.
// A persistence failure is ErrPersistence; the in-memory append is rolled
// back so memory and disk stay in agreement.
func (x *Index) AddEmbedding(ctx context.Context, contentItemID, text string) (int, error) {
	vec, err := x.embedder.Embed(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(vec) != x.dim {
		return 0, fmt.Errorf("%w: got %d, index dimension is %d", ErrDimensionMismatch, len(vec), x.dim)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	slot := len(x.vectors)
	x.vectors = append(x.vectors, vec)
	x.slots[slot] = contentItemID

	if err := x.persist(); err != nil {
		x.vectors = x.vectors[:slot]
		delete(x.slots, slot)
		return 0, err
	}

	x.logger.Debug("added embedding", "content_item_id", contentItemID, "slot", slot)
	return slot, nil
}

// SearchSimilar embeds the query and returns the k nearest entries in
// ascending distance order. An empty index or k <= 0 yields an empty result,
// not an error. Slots with no resolvable id are skipped with a warning.
func (x *Index) SearchSimilar(ctx context.Context, query string, k int) ([]Hit, error) {
	if k <= 0 || x.Count() == 0 {
		return []Hit{}, nil
	}

	vec, err := x.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(vec) != x.dim {
		return nil, fmt.Errorf("%w: got %d, index dimension is %d", ErrDimensionMismatch, len(vec), x.dim)
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	type candidate struct {
		slot     int
		distance float32
	}
	candidates := make([]candidate, len(x.vectors))
	for i, stored := range x.vectors {
		candidates[i] = candidate{slot: i, distance: squaredDistance(vec, stored)}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	if k > len(candidates) {
		k = len(candidates)
	}

	hits := make([]Hit, 0, k)
	for _, c := range candidates[:k] {
		id, ok := x.slots[c.slot]
		if !ok {
			x.logger.Warn("slot has no content item mapping, skipping", "slot", c.slot)
			continue
		}
		hits = append(hits, Hit{ContentItemID: id, Distance: c.distance})
	}
	return hits, nil
}

// Count returns the number of entries in the index.
func (x *Index) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

func squaredDistance(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
