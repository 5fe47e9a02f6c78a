package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/samber/oops"

	accessService "github.com/khaingmyozaw/file-search-bot/internal/modules/access/service"
	postDomain "github.com/khaingmyozaw/file-search-bot/internal/modules/post/domain"
	postRepo "github.com/khaingmyozaw/file-search-bot/internal/modules/post/repository"
	"github.com/khaingmyozaw/file-search-bot/internal/modules/search/index"
	"github.com/khaingmyozaw/file-search-bot/internal/shared/errors"
)

const (
	storageTimeout = 5 * time.Second
	maxAttempts    = 3
	retryDelay     = 200 * time.Millisecond
)

// Service validates, gates, and commits inbound posts. Both ingestion paths
// share one commit path, so deduplication behaves identically for live
// posts and replayed history.
type Service struct {
	access *accessService.Service
	posts  postRepo.Repository
	idx    *index.Index

	// Serializes backfill commits so a burst of forwarded history is
	// processed one post at a time and cannot starve concurrent searches.
	backfillMu sync.Mutex
}

func New(access *accessService.Service, posts postRepo.Repository, idx *index.Index) *Service {
	return &Service{
		access: access,
		posts:  posts,
		idx:    idx,
	}
}

// IngestLive commits a post observed directly in a channel. Posts from
// unknown or revoked channels are dropped with ErrNotApproved; callers log
// and move on, nothing is surfaced to a user.
func (s *Service) IngestLive(ctx context.Context, post *postDomain.Post) error {
	if err := validate(post); err != nil {
		return err
	}

	approved, err := s.access.IsApproved(ctx, post.ChannelID)
	if err != nil {
		return err
	}
	if !approved {
		return errors.ErrNotApproved
	}

	post.Source = postDomain.SourceLive
	return s.commit(ctx, post)
}

// IngestBackfill commits a historical post forwarded by a manager. Only
// managers may backfill: forwarding is the one path for injecting arbitrary
// old content, so it gets the stricter gate.
func (s *Service) IngestBackfill(ctx context.Context, actorID int64, post *postDomain.Post) error {
	if err := validate(post); err != nil {
		return err
	}

	isManager, err := s.access.IsManager(ctx, actorID)
	if err != nil {
		return err
	}
	if !isManager {
		return errors.ErrPermissionDenied
	}

	approved, err := s.access.IsApproved(ctx, post.ChannelID)
	if err != nil {
		return err
	}
	if !approved {
		return errors.ErrNotApproved
	}

	s.backfillMu.Lock()
	defer s.backfillMu.Unlock()

	post.Source = postDomain.SourceBackfill
	return s.commit(ctx, post)
}

// PurgeChannel removes a channel's posts from the store and the index.
// Wired into the access service for the purge-on-revoke policy.
func (s *Service) PurgeChannel(ctx context.Context, channelID int64) error {
	deleted, err := s.posts.DeleteChannelPosts(ctx, channelID)
	if err != nil {
		return err
	}
	if err := s.idx.DeleteChannel(ctx, channelID); err != nil {
		return err
	}

	slog.Info("Purged channel posts", "channel_id", channelID, "deleted", deleted)
	return nil
}

func (s *Service) commit(ctx context.Context, post *postDomain.Post) error {
	if post.IngestedAt.IsZero() {
		post.IngestedAt = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	var inserted bool
	_, _, err := lo.AttemptWithDelay(maxAttempts, retryDelay, func(_ int, _ time.Duration) error {
		rowInserted, upsertErr := s.posts.Upsert(ctx, post)
		if upsertErr != nil {
			return upsertErr
		}
		inserted = inserted || rowInserted

		// The index write shares the retry budget with the upsert. It also
		// runs on the duplicate path: re-indexing an existing doc id is an
		// idempotent update, so replaying a post whose earlier index write
		// failed heals the store/index divergence.
		return s.idx.IndexPost(post)
	})
	if err != nil {
		return oops.With("channel_id", post.ChannelID, "message_id", post.MessageID, "cause", err.Error()).
			Wrap(errors.ErrStorageUnavailable)
	}

	if !inserted {
		// Already captured, usually a live post replayed through backfill.
		slog.Debug("Duplicate post skipped", "channel_id", post.ChannelID, "message_id", post.MessageID)
		return nil
	}

	slog.Info("Indexed post",
		"channel_id", post.ChannelID,
		"message_id", post.MessageID,
		"source", post.Source,
	)
	return nil
}

func validate(post *postDomain.Post) error {
	if post == nil || post.ChannelID == 0 || post.MessageID == 0 || post.Text == "" {
		return errors.ErrMalformedEvent
	}
	return nil
}
