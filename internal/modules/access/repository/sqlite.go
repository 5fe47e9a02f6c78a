package repository

import (
	"context"
	"database/sql"

	"github.com/samber/oops"

	"github.com/khaingmyozaw/file-search-bot/internal/modules/access/domain"
)

// SQLite implements Repository on top of a shared sqlite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite creates the managers and channels tables if needed.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS managers (
		user_id INTEGER PRIMARY KEY,
		added_by INTEGER NOT NULL,
		added_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS channels (
		channel_id INTEGER PRIMARY KEY,
		title TEXT NOT NULL,
		username TEXT,
		state TEXT NOT NULL,
		added_by INTEGER NOT NULL,
		added_at TIMESTAMP NOT NULL
	);
	`

	if _, err := db.Exec(schema); err != nil {
		return nil, oops.With("context", "init access schema").Wrap(err)
	}

	return &SQLite{db: db}, nil
}

func (r *SQLite) SaveManager(ctx context.Context, manager *domain.Manager) error {
	query := `
	INSERT INTO managers(user_id, added_by, added_at)
	VALUES(?, ?, ?)
	ON CONFLICT(user_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, manager.UserID, manager.AddedBy, manager.AddedAt)
	if err != nil {
		return oops.With("user_id", manager.UserID).Wrap(err)
	}
	return nil
}

func (r *SQLite) DeleteManager(ctx context.Context, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM managers WHERE user_id = ?", userID)
	if err != nil {
		return false, oops.With("user_id", userID).Wrap(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, oops.Wrap(err)
	}
	return affected > 0, nil
}

func (r *SQLite) IsManager(ctx context.Context, userID int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM managers WHERE user_id = ?", userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, oops.With("user_id", userID).Wrap(err)
	}
	return true, nil
}

func (r *SQLite) ListManagers(ctx context.Context) ([]*domain.Manager, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT user_id, added_by, added_at FROM managers ORDER BY user_id")
	if err != nil {
		return nil, oops.Wrap(err)
	}
	defer rows.Close()

	var managers []*domain.Manager
	for rows.Next() {
		manager := &domain.Manager{}
		if err := rows.Scan(&manager.UserID, &manager.AddedBy, &manager.AddedAt); err != nil {
			return nil, oops.Wrap(err)
		}
		managers = append(managers, manager)
	}

	return managers, rows.Err()
}

func (r *SQLite) SaveChannel(ctx context.Context, channel *domain.Channel) error {
	query := `
	INSERT INTO channels(channel_id, title, username, state, added_by, added_at)
	VALUES(?, ?, ?, ?, ?, ?)
	ON CONFLICT(channel_id) DO UPDATE SET
		title = excluded.title,
		username = excluded.username,
		state = excluded.state,
		added_by = excluded.added_by,
		added_at = excluded.added_at
	`
	_, err := r.db.ExecContext(ctx, query,
		channel.ID, channel.Title, channel.Username, channel.State, channel.AddedBy, channel.AddedAt,
	)
	if err != nil {
		return oops.With("channel_id", channel.ID).Wrap(err)
	}
	return nil
}

func (r *SQLite) GetChannel(ctx context.Context, channelID int64) (*domain.Channel, error) {
	query := "SELECT channel_id, title, username, state, added_by, added_at FROM channels WHERE channel_id = ?"

	channel := &domain.Channel{}
	var username sql.NullString
	err := r.db.QueryRowContext(ctx, query, channelID).Scan(
		&channel.ID, &channel.Title, &username, &channel.State, &channel.AddedBy, &channel.AddedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, oops.With("channel_id", channelID).Wrap(err)
	}

	channel.Username = username.String
	return channel, nil
}

func (r *SQLite) SetChannelState(ctx context.Context, channelID int64, state domain.ChannelState) (bool, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE channels SET state = ? WHERE channel_id = ?", state, channelID)
	if err != nil {
		return false, oops.With("channel_id", channelID, "state", state).Wrap(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, oops.Wrap(err)
	}
	return affected > 0, nil
}

func (r *SQLite) ListChannels(ctx context.Context) ([]*domain.Channel, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT channel_id, title, username, state, added_by, added_at FROM channels ORDER BY title")
	if err != nil {
		return nil, oops.Wrap(err)
	}
	defer rows.Close()

	var channels []*domain.Channel
	for rows.Next() {
		channel := &domain.Channel{}
		var username sql.NullString
		if err := rows.Scan(&channel.ID, &channel.Title, &username, &channel.State, &channel.AddedBy, &channel.AddedAt); err != nil {
			return nil, oops.Wrap(err)
		}
		channel.Username = username.String
		channels = append(channels, channel)
	}

	return channels, rows.Err()
}

var _ Repository = (*SQLite)(nil)
