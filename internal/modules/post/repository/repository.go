package repository

import (
	"context"

	"github.com/khaingmyozaw/file-search-bot/internal/modules/post/domain"
)

// Repository defines persistence operations for indexed posts
type Repository interface {
	// Upsert inserts the post if its (channel id, message id) key is new and
	// reports whether a row was inserted. A duplicate key is the expected
	// idempotence path, never an error.
	Upsert(ctx context.Context, post *domain.Post) (bool, error)
	Get(ctx context.Context, key domain.Key) (*domain.Post, error)
	GetByKeys(ctx context.Context, keys []domain.Key) ([]*domain.Post, error)
	Recent(ctx context.Context, channelID int64, limit int) ([]*domain.Post, error)
	DeleteChannelPosts(ctx context.Context, channelID int64) (int64, error)
	Count(ctx context.Context) (int, error)
}
