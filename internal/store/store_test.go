package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func strptr(v string) *string { return &v }

func TestFindSourceByURL_NotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.FindSourceByURL(context.Background(), "http://nowhere")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertSource_CreatesThenReuses(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertSource(ctx, "webpage", strptr("http://a"), strptr("A"))
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := s.UpsertSource(ctx, "webpage", strptr("http://a"), strptr("A"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestUpsertSource_UpdatesDifferingTitle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first, err := s.UpsertSource(ctx, "webpage", strptr("http://a"), strptr("Old"))
	require.NoError(t, err)

	second, err := s.UpsertSource(ctx, "webpage", strptr("http://a"), strptr("New"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	require.NotNil(t, second.Title)
	assert.Equal(t, "New", *second.Title)

	stored, err := s.FindSourceByURL(ctx, "http://a")
	require.NoError(t, err)
	require.NotNil(t, stored.Title)
	assert.Equal(t, "New", *stored.Title)
}

func TestUpsertSource_IgnoresEmptyTitle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertSource(ctx, "webpage", strptr("http://a"), strptr("Kept"))
	require.NoError(t, err)

	src, err := s.UpsertSource(ctx, "webpage", strptr("http://a"), strptr(""))
	require.NoError(t, err)
	require.NotNil(t, src.Title)
	assert.Equal(t, "Kept", *src.Title)
}

func TestUpsertSource_NoURLAlwaysCreates(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	a, err := s.UpsertSource(ctx, "manual_text", nil, nil)
	require.NoError(t, err)
	b, err := s.UpsertSource(ctx, "manual_text", nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestCreateContentItem_DuplicateHash(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	src, err := s.CreateSource(ctx, "manual_text", nil, nil, nil)
	require.NoError(t, err)

	_, err = s.CreateContentItem(ctx, "hello", "aaaa", src.ID)
	require.NoError(t, err)

	_, err = s.CreateContentItem(ctx, "hello", "aaaa", src.ID)
	assert.ErrorIs(t, err, ErrConstraintViolation)
}

func TestFindContentItemByHash_AttachesSource(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	src, err := s.CreateSource(ctx, "webpage", strptr("http://a"), strptr("A"), nil)
	require.NoError(t, err)
	created, err := s.CreateContentItem(ctx, "hello", "bbbb", src.ID)
	require.NoError(t, err)

	found, err := s.FindContentItemByHash(ctx, "bbbb")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	require.NotNil(t, found.Source)
	assert.Equal(t, src.ID, found.Source.ID)
}

func TestCreateSummary_OneToOne(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	src, err := s.CreateSource(ctx, "manual_text", nil, nil, nil)
	require.NoError(t, err)
	item, err := s.CreateContentItem(ctx, "some text", "cccc", src.ID)
	require.NoError(t, err)

	first, err := s.CreateSummary(ctx, item.ID, "a summary", strptr("gpt-4o-mini"), "ai_generated_item_summary")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	_, err = s.CreateSummary(ctx, item.ID, "another summary", nil, "ai_generated_item_summary")
	assert.ErrorIs(t, err, ErrConstraintViolation)
}

func TestGetContentItemWithRelations(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	src, err := s.CreateSource(ctx, "webpage", strptr("http://a"), strptr("A"), nil)
	require.NoError(t, err)
	item, err := s.CreateContentItem(ctx, "some text", "dddd", src.ID)
	require.NoError(t, err)
	_, err = s.CreateSummary(ctx, item.ID, "a summary", nil, "manual")
	require.NoError(t, err)

	got, err := s.GetContentItemWithRelations(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Source)
	require.NotNil(t, got.Summary)
	assert.Equal(t, "a summary", got.Summary.SummaryText)

	_, err = s.GetContentItemWithRelations(ctx, "missing-id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListContentItems_InsertionOrder(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	src, err := s.CreateSource(ctx, "manual_text", nil, nil, nil)
	require.NoError(t, err)

	var ids []string
	for _, h := range []string{"h1", "h2", "h3"} {
		item, err := s.CreateContentItem(ctx, "text "+h, h, src.ID)
		require.NoError(t, err)
		ids = append(ids, item.ID)
	}

	items, err := s.ListContentItems(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for i, item := range items {
		assert.Equal(t, ids[i], item.ID)
	}

	page, err := s.ListContentItems(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)
}

func TestFindContentItemsByIDs_SkipsUnknown(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	src, err := s.CreateSource(ctx, "manual_text", nil, nil, nil)
	require.NoError(t, err)
	item, err := s.CreateContentItem(ctx, "text", "eeee", src.ID)
	require.NoError(t, err)

	items, err := s.FindContentItemsByIDs(ctx, []string{item.ID, "missing-id"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, item.ID, items[0].ID)
}
