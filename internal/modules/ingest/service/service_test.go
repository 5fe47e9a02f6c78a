package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	accessRepo "github.com/khaingmyozaw/file-search-bot/internal/modules/access/repository"
	accessService "github.com/khaingmyozaw/file-search-bot/internal/modules/access/service"
	postDomain "github.com/khaingmyozaw/file-search-bot/internal/modules/post/domain"
	postRepo "github.com/khaingmyozaw/file-search-bot/internal/modules/post/repository"
	"github.com/khaingmyozaw/file-search-bot/internal/modules/search/index"
	"github.com/khaingmyozaw/file-search-bot/internal/shared/errors"
	"github.com/khaingmyozaw/file-search-bot/internal/shared/sqlite"
)

const (
	ownerID    = int64(1000)
	strangerID = int64(3000)
	channelID  = int64(-100123)
)

type fixture struct {
	ingest *Service
	access *accessService.Service
	posts  postRepo.Repository
	idx    *index.Index
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	db, err := sqlite.Open(filepath.Join(dir, "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	posts, err := postRepo.NewSQLite(db)
	require.NoError(t, err)

	accRepo, err := accessRepo.NewSQLite(db)
	require.NoError(t, err)

	access, err := accessService.New(accRepo, ownerID, false)
	require.NoError(t, err)

	idx, err := index.Open(filepath.Join(dir, "bot.bleve"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	return &fixture{
		ingest: New(access, posts, idx),
		access: access,
		posts:  posts,
		idx:    idx,
	}
}

func (f *fixture) approve(t *testing.T, id int64) {
	t.Helper()
	require.NoError(t, f.access.AllowChannel(context.Background(), ownerID, id, "News", "news"))
}

func post(messageID int64, text string) *postDomain.Post {
	return &postDomain.Post{
		ChannelID:    channelID,
		MessageID:    messageID,
		ChannelTitle: "News",
		Text:         text,
		PostedAt:     time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestIngestLiveUnknownChannelDropped(t *testing.T) {
	f := newFixture(t)

	err := f.ingest.IngestLive(context.Background(), post(1, "invoice for march"))
	require.ErrorIs(t, err, errors.ErrNotApproved)

	count, err := f.posts.Count(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestIngestLiveRevokedChannelDropped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.approve(t, channelID)
	require.NoError(t, f.access.RemoveChannel(ctx, ownerID, channelID))

	err := f.ingest.IngestLive(ctx, post(1, "invoice for march"))
	require.ErrorIs(t, err, errors.ErrNotApproved)
}

func TestIngestLiveStoresAndIndexes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.approve(t, channelID)

	require.NoError(t, f.ingest.IngestLive(ctx, post(1, "invoice for march")))

	stored, err := f.posts.Get(ctx, postDomain.Key{ChannelID: channelID, MessageID: 1})
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, postDomain.SourceLive, stored.Source)
	require.False(t, stored.IngestedAt.IsZero())

	docs, err := f.idx.Count()
	require.NoError(t, err)
	require.Equal(t, uint64(1), docs)
}

func TestIngestDuplicateIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.approve(t, channelID)

	require.NoError(t, f.ingest.IngestLive(ctx, post(1, "original text")))

	// Same (channel, message) via the backfill path: dropped silently,
	// original row untouched.
	require.NoError(t, f.ingest.IngestBackfill(ctx, ownerID, post(1, "replayed text")))

	stored, err := f.posts.Get(ctx, postDomain.Key{ChannelID: channelID, MessageID: 1})
	require.NoError(t, err)
	require.Equal(t, "original text", stored.Text)
	require.Equal(t, postDomain.SourceLive, stored.Source)

	count, err := f.posts.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func TestIngestBackfillManagerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.approve(t, channelID)

	err := f.ingest.IngestBackfill(ctx, strangerID, post(1, "smuggled history"))
	require.ErrorIs(t, err, errors.ErrPermissionDenied)

	count, err := f.posts.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestIngestBackfillUnapprovedSource(t *testing.T) {
	f := newFixture(t)

	err := f.ingest.IngestBackfill(context.Background(), ownerID, post(1, "old post"))
	require.ErrorIs(t, err, errors.ErrNotApproved)
}

func TestIngestBackfillStoresWithBackfillSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.approve(t, channelID)

	require.NoError(t, f.ingest.IngestBackfill(ctx, ownerID, post(7, "forwarded history")))

	stored, err := f.posts.Get(ctx, postDomain.Key{ChannelID: channelID, MessageID: 7})
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, postDomain.SourceBackfill, stored.Source)
}

func TestIngestMalformed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.approve(t, channelID)

	cases := map[string]*postDomain.Post{
		"nil post":        nil,
		"no channel id":   {MessageID: 1, Text: "x"},
		"no message id":   {ChannelID: channelID, Text: "x"},
		"no text payload": {ChannelID: channelID, MessageID: 1},
	}
	for name, p := range cases {
		require.ErrorIs(t, f.ingest.IngestLive(ctx, p), errors.ErrMalformedEvent, name)
		require.ErrorIs(t, f.ingest.IngestBackfill(ctx, ownerID, p), errors.ErrMalformedEvent, name)
	}
}

func TestIndexFailureSurfacesAndReplayHeals(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := sqlite.Open(filepath.Join(dir, "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	posts, err := postRepo.NewSQLite(db)
	require.NoError(t, err)

	accRepo, err := accessRepo.NewSQLite(db)
	require.NoError(t, err)

	access, err := accessService.New(accRepo, ownerID, false)
	require.NoError(t, err)
	require.NoError(t, access.AllowChannel(ctx, ownerID, channelID, "News", "news"))

	indexPath := filepath.Join(dir, "bot.bleve")
	idx, err := index.Open(indexPath)
	require.NoError(t, err)

	// A closed index fails every write, so the commit exhausts its retries
	// after the row has already landed in the store.
	require.NoError(t, idx.Close())

	ingest := New(access, posts, idx)
	err = ingest.IngestBackfill(ctx, ownerID, post(1, "half committed"))
	require.ErrorIs(t, err, errors.ErrStorageUnavailable)

	count, err := posts.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	// Once the index is back, re-forwarding the same post hits the
	// duplicate path in the store but still writes the index entry.
	reopened, err := index.Open(indexPath)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	healed := New(access, posts, reopened)
	require.NoError(t, healed.IngestBackfill(ctx, ownerID, post(1, "half committed")))

	count, err = posts.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	docs, err := reopened.Count()
	require.NoError(t, err)
	require.Equal(t, uint64(1), docs)
}

func TestPurgeChannel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.approve(t, channelID)

	other := int64(-100999)
	f.approve(t, other)

	require.NoError(t, f.ingest.IngestLive(ctx, post(1, "purge me")))
	require.NoError(t, f.ingest.IngestLive(ctx, post(2, "purge me too")))

	survivor := post(1, "keep me")
	survivor.ChannelID = other
	require.NoError(t, f.ingest.IngestLive(ctx, survivor))

	require.NoError(t, f.ingest.PurgeChannel(ctx, channelID))

	count, err := f.posts.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	docs, err := f.idx.Count()
	require.NoError(t, err)
	require.Equal(t, uint64(1), docs)
}
