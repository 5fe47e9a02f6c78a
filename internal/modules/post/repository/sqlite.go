package repository

import (
	"context"
	"database/sql"

	"github.com/samber/oops"

	"github.com/khaingmyozaw/file-search-bot/internal/modules/post/domain"
)

// SQLite implements Repository on top of a shared sqlite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite creates the posts table if needed and returns the repository.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS posts (
		channel_id INTEGER NOT NULL,
		message_id INTEGER NOT NULL,
		channel_title TEXT NOT NULL,
		channel_username TEXT,
		author TEXT,
		text TEXT NOT NULL,
		posted_at TIMESTAMP NOT NULL,
		ingested_at TIMESTAMP NOT NULL,
		source TEXT NOT NULL,
		PRIMARY KEY(channel_id, message_id)
	);

	CREATE INDEX IF NOT EXISTS idx_posts_channel ON posts(channel_id);
	CREATE INDEX IF NOT EXISTS idx_posts_posted ON posts(posted_at);
	`

	if _, err := db.Exec(schema); err != nil {
		return nil, oops.With("context", "init posts schema").Wrap(err)
	}

	return &SQLite{db: db}, nil
}

func (r *SQLite) Upsert(ctx context.Context, post *domain.Post) (bool, error) {
	query := `
	INSERT INTO posts (
		channel_id, message_id, channel_title, channel_username,
		author, text, posted_at, ingested_at, source
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(channel_id, message_id) DO NOTHING
	`

	res, err := r.db.ExecContext(ctx, query,
		post.ChannelID, post.MessageID, post.ChannelTitle, post.ChannelUsername,
		post.Author, post.Text, post.PostedAt, post.IngestedAt, post.Source,
	)
	if err != nil {
		return false, oops.With("channel_id", post.ChannelID, "message_id", post.MessageID).Wrap(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, oops.Wrap(err)
	}
	return affected > 0, nil
}

func (r *SQLite) Get(ctx context.Context, key domain.Key) (*domain.Post, error) {
	query := `
	SELECT channel_id, message_id, channel_title, channel_username,
	       author, text, posted_at, ingested_at, source
	FROM posts
	WHERE channel_id = ? AND message_id = ?
	`

	post := &domain.Post{}
	var username, author sql.NullString
	err := r.db.QueryRowContext(ctx, query, key.ChannelID, key.MessageID).Scan(
		&post.ChannelID, &post.MessageID, &post.ChannelTitle, &username,
		&author, &post.Text, &post.PostedAt, &post.IngestedAt, &post.Source,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, oops.With("channel_id", key.ChannelID, "message_id", key.MessageID).Wrap(err)
	}

	post.ChannelUsername = username.String
	post.Author = author.String
	return post, nil
}

// GetByKeys hydrates posts for the given keys, skipping keys with no row.
// Order follows the input key order.
func (r *SQLite) GetByKeys(ctx context.Context, keys []domain.Key) ([]*domain.Post, error) {
	posts := make([]*domain.Post, 0, len(keys))
	for _, key := range keys {
		post, err := r.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if post != nil {
			posts = append(posts, post)
		}
	}
	return posts, nil
}

func (r *SQLite) Recent(ctx context.Context, channelID int64, limit int) ([]*domain.Post, error) {
	query := `
	SELECT channel_id, message_id, channel_title, channel_username,
	       author, text, posted_at, ingested_at, source
	FROM posts
	WHERE channel_id = ?
	ORDER BY posted_at DESC
	LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, channelID, limit)
	if err != nil {
		return nil, oops.With("channel_id", channelID).Wrap(err)
	}
	defer rows.Close()

	var posts []*domain.Post
	for rows.Next() {
		post := &domain.Post{}
		var username, author sql.NullString
		if err := rows.Scan(
			&post.ChannelID, &post.MessageID, &post.ChannelTitle, &username,
			&author, &post.Text, &post.PostedAt, &post.IngestedAt, &post.Source,
		); err != nil {
			return nil, oops.Wrap(err)
		}
		post.ChannelUsername = username.String
		post.Author = author.String
		posts = append(posts, post)
	}

	return posts, rows.Err()
}

func (r *SQLite) DeleteChannelPosts(ctx context.Context, channelID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM posts WHERE channel_id = ?", channelID)
	if err != nil {
		return 0, oops.With("channel_id", channelID).Wrap(err)
	}
	return res.RowsAffected()
}

func (r *SQLite) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts").Scan(&count); err != nil {
		return 0, oops.Wrap(err)
	}
	return count, nil
}

var _ Repository = (*SQLite)(nil)
