package index

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/khaingmyozaw/file-search-bot/internal/modules/post/domain"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()

	idx, err := Open(filepath.Join(t.TempDir(), "test.bleve"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func indexPost(t *testing.T, idx *Index, channelID, messageID int64, text string) {
	t.Helper()
	require.NoError(t, idx.IndexPost(&domain.Post{
		ChannelID:    channelID,
		MessageID:    messageID,
		ChannelTitle: "News",
		Text:         text,
	}))
}

func TestQueryRequiresAllTokens(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	indexPost(t, idx, 100, 1, "invoice for march is attached")
	indexPost(t, idx, 100, 2, "march planning notes")
	indexPost(t, idx, 100, 3, "invoice for april")

	hits, err := idx.Query(ctx, []string{"invoice", "march"}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, domain.Key{ChannelID: 100, MessageID: 1}, hits[0].Key)
}

func TestQueryNoMatch(t *testing.T) {
	idx := newTestIndex(t)

	indexPost(t, idx, 100, 1, "invoice for march")

	hits, err := idx.Query(context.Background(), []string{"invoice", "december"}, 10)
	require.NoError(t, err)
	require.Empty(t, hits)
}

func TestQueryEmptyTokens(t *testing.T) {
	idx := newTestIndex(t)

	hits, err := idx.Query(context.Background(), nil, 10)
	require.NoError(t, err)
	require.Nil(t, hits)
}

func TestQueryMatchesChannelTitle(t *testing.T) {
	idx := newTestIndex(t)

	require.NoError(t, idx.IndexPost(&domain.Post{
		ChannelID:    100,
		MessageID:    1,
		ChannelTitle: "Accounting News",
		Text:         "quarterly numbers are out",
	}))

	hits, err := idx.Query(context.Background(), []string{"accounting"}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestReindexSameKeyIsUpdate(t *testing.T) {
	idx := newTestIndex(t)

	indexPost(t, idx, 100, 1, "first")
	indexPost(t, idx, 100, 1, "second")

	docs, err := idx.Count()
	require.NoError(t, err)
	require.Equal(t, uint64(1), docs)
}

func TestDeleteChannel(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	indexPost(t, idx, 100, 1, "doomed post")
	indexPost(t, idx, 100, 2, "another doomed post")
	indexPost(t, idx, 200, 1, "survivor post")

	require.NoError(t, idx.DeleteChannel(ctx, 100))

	docs, err := idx.Count()
	require.NoError(t, err)
	require.Equal(t, uint64(1), docs)

	hits, err := idx.Query(ctx, []string{"survivor"}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, domain.Key{ChannelID: 200, MessageID: 1}, hits[0].Key)
}
