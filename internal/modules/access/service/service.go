package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/khaingmyozaw/file-search-bot/internal/modules/access/domain"
	"github.com/khaingmyozaw/file-search-bot/internal/modules/access/repository"
	"github.com/khaingmyozaw/file-search-bot/internal/shared/errors"
)

const storageTimeout = 5 * time.Second

// PostPurger removes a revoked channel's posts when the purge-on-revoke
// policy is enabled. Implemented by the ingest service so the access module
// stays decoupled from the store and the search index.
type PostPurger interface {
	PurgeChannel(ctx context.Context, channelID int64) error
}

// Service owns the manager set and the channel allow-list. Mutations are
// serialized behind a single mutex so no caller can observe partial state.
type Service struct {
	repo          repository.Repository
	ownerID       int64
	purgeOnRevoke bool
	purger        PostPurger

	mu sync.Mutex
}

// New seeds the owner as the first manager and returns the service.
func New(repo repository.Repository, ownerID int64, purgeOnRevoke bool) (*Service, error) {
	s := &Service{
		repo:          repo,
		ownerID:       ownerID,
		purgeOnRevoke: purgeOnRevoke,
	}

	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	owner := &domain.Manager{UserID: ownerID, AddedBy: ownerID, AddedAt: time.Now().UTC()}
	if err := repo.SaveManager(ctx, owner); err != nil {
		return nil, oops.With("owner_id", ownerID, "context", "seeding owner").Wrap(err)
	}

	return s, nil
}

// SetPurger wires the purge path; called from DI after the ingest service
// exists.
func (s *Service) SetPurger(purger PostPurger) {
	s.purger = purger
}

func (s *Service) OwnerID() int64 {
	return s.ownerID
}

func (s *Service) IsManager(ctx context.Context, userID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()
	return s.repo.IsManager(ctx, userID)
}

// IsApproved reports whether a channel is on the allow-list in approved
// state. Unknown and revoked channels both answer false.
func (s *Service) IsApproved(ctx context.Context, channelID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	channel, err := s.repo.GetChannel(ctx, channelID)
	if err != nil {
		return false, err
	}
	return channel != nil && channel.State == domain.ChannelStateApproved, nil
}

func (s *Service) GetChannel(ctx context.Context, channelID int64) (*domain.Channel, error) {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()
	return s.repo.GetChannel(ctx, channelID)
}

// AddManager adds a manager. Owner only.
func (s *Service) AddManager(ctx context.Context, actorID, targetID int64) error {
	if actorID != s.ownerID {
		return errors.ErrPermissionDenied
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	manager := &domain.Manager{UserID: targetID, AddedBy: actorID, AddedAt: time.Now().UTC()}
	if err := s.repo.SaveManager(ctx, manager); err != nil {
		return err
	}

	slog.Info("Manager added", "user_id", targetID, "added_by", actorID)
	return nil
}

// RemoveManager removes a manager. Owner only; the owner itself is
// non-removable so the manager set can never become empty.
func (s *Service) RemoveManager(ctx context.Context, actorID, targetID int64) error {
	if actorID != s.ownerID {
		return errors.ErrPermissionDenied
	}
	if targetID == s.ownerID {
		return oops.With("user_id", targetID).Wrap(errors.ErrInvalidOperation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	removed, err := s.repo.DeleteManager(ctx, targetID)
	if err != nil {
		return err
	}
	if !removed {
		return oops.With("user_id", targetID).Wrap(errors.ErrInvalidOperation)
	}

	slog.Info("Manager removed", "user_id", targetID, "removed_by", actorID)
	return nil
}

// ListManagers lists manager ids. Any manager may call it.
func (s *Service) ListManagers(ctx context.Context, actorID int64) ([]*domain.Manager, error) {
	if err := s.requireManager(ctx, actorID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()
	return s.repo.ListManagers(ctx)
}

// AllowChannel puts a channel on the allow-list in approved state. Saving
// over an existing record covers re-approval of a revoked channel.
func (s *Service) AllowChannel(ctx context.Context, actorID, channelID int64, title, username string) error {
	if err := s.requireManager(ctx, actorID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	channel := &domain.Channel{
		ID:       channelID,
		Title:    title,
		Username: username,
		State:    domain.ChannelStateApproved,
		AddedBy:  actorID,
		AddedAt:  time.Now().UTC(),
	}
	if err := s.repo.SaveChannel(ctx, channel); err != nil {
		return err
	}

	slog.Info("Channel approved", "channel_id", channelID, "title", title, "added_by", actorID)
	return nil
}

// RemoveChannel revokes a channel. Future ingestion stops; the record and
// its historical posts are retained unless purge-on-revoke is configured.
func (s *Service) RemoveChannel(ctx context.Context, actorID, channelID int64) error {
	if err := s.requireManager(ctx, actorID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	revoked, err := s.repo.SetChannelState(ctx, channelID, domain.ChannelStateRevoked)
	if err != nil {
		return err
	}
	if !revoked {
		return oops.With("channel_id", channelID).Wrap(errors.ErrChannelNotFound)
	}

	if s.purgeOnRevoke && s.purger != nil {
		if err := s.purger.PurgeChannel(ctx, channelID); err != nil {
			return oops.With("channel_id", channelID, "context", "purging revoked channel").Wrap(err)
		}
	}

	slog.Info("Channel revoked", "channel_id", channelID, "removed_by", actorID, "purged", s.purgeOnRevoke)
	return nil
}

// ListChannels lists channel states. Any manager may call it.
func (s *Service) ListChannels(ctx context.Context, actorID int64) ([]*domain.Channel, error) {
	if err := s.requireManager(ctx, actorID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()
	return s.repo.ListChannels(ctx)
}

func (s *Service) requireManager(ctx context.Context, actorID int64) error {
	ok, err := s.IsManager(ctx, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return errors.ErrPermissionDenied
	}
	return nil
}
