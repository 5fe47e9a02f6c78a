package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	postDomain "github.com/khaingmyozaw/file-search-bot/internal/modules/post/domain"
	postRepo "github.com/khaingmyozaw/file-search-bot/internal/modules/post/repository"
	"github.com/khaingmyozaw/file-search-bot/internal/modules/search/index"
	"github.com/khaingmyozaw/file-search-bot/internal/shared/sqlite"
)

func newTestService(t *testing.T) (*Service, func(messageID int64, text string, postedAt time.Time)) {
	t.Helper()
	dir := t.TempDir()

	db, err := sqlite.Open(filepath.Join(dir, "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	posts, err := postRepo.NewSQLite(db)
	require.NoError(t, err)

	idx, err := index.Open(filepath.Join(dir, "bot.bleve"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	add := func(messageID int64, text string, postedAt time.Time) {
		post := &postDomain.Post{
			ChannelID:    100,
			MessageID:    messageID,
			ChannelTitle: "News",
			Text:         text,
			PostedAt:     postedAt,
			IngestedAt:   time.Now().UTC(),
			Source:       postDomain.SourceLive,
		}
		_, err := posts.Upsert(context.Background(), post)
		require.NoError(t, err)
		require.NoError(t, idx.IndexPost(post))
	}

	return New(idx, posts), add
}

func TestSearchRequiresAllTokens(t *testing.T) {
	svc, add := newTestService(t)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	add(1, "invoice for march is attached", base)
	add(2, "march planning notes", base)
	add(3, "invoice for april", base)

	results, err := svc.Search(context.Background(), "invoice march", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, int64(1), results[0].Post.MessageID)
}

func TestSearchCaseInsensitive(t *testing.T) {
	svc, add := newTestService(t)

	add(1, "Invoice for March", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	results, err := svc.Search(context.Background(), "INVOICE march", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestSearchNoResults(t *testing.T) {
	svc, add := newTestService(t)

	add(1, "invoice for march", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	results, err := svc.Search(context.Background(), "invoice december", 10)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestSearchEmptyQuery(t *testing.T) {
	svc, add := newTestService(t)

	add(1, "invoice for march", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	for _, query := range []string{"", "   ", "!!! ..."} {
		results, err := svc.Search(context.Background(), query, 10)
		require.NoError(t, err)
		require.Empty(t, results, "query %q", query)
	}
}

func TestSearchRecencyBreaksTies(t *testing.T) {
	svc, add := newTestService(t)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	// Identical text means identical relevance; the newer post must win.
	add(1, "weekly invoice summary", base)
	add(2, "weekly invoice summary", base.Add(48*time.Hour))
	add(3, "weekly invoice summary", base.Add(24*time.Hour))

	results, err := svc.Search(context.Background(), "invoice summary", 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, int64(2), results[0].Post.MessageID)
	require.Equal(t, int64(3), results[1].Post.MessageID)
	require.Equal(t, int64(1), results[2].Post.MessageID)
}

func TestSearchHonorsLimit(t *testing.T) {
	svc, add := newTestService(t)
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := int64(1); i <= 5; i++ {
		add(i, "weekly invoice summary", base.Add(time.Duration(i)*time.Hour))
	}

	results, err := svc.Search(context.Background(), "invoice", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// The limit cut happens after sorting, so the newest posts survive.
	require.Equal(t, int64(5), results[0].Post.MessageID)
	require.Equal(t, int64(4), results[1].Post.MessageID)
}
