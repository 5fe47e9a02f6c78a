package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Source records which ingestion path committed a post.
type Source string

const (
	SourceLive     Source = "live"
	SourceBackfill Source = "backfill"
)

// Post represents an indexed channel post. (ChannelID, MessageID) is the
// uniqueness key: re-ingesting the same pair is a no-op.
type Post struct {
	ChannelID       int64     `json:"channel_id"`
	MessageID       int64     `json:"message_id"`
	ChannelTitle    string    `json:"channel_title"`
	ChannelUsername string    `json:"channel_username,omitempty"`
	Author          string    `json:"author,omitempty"`
	Text            string    `json:"text"`
	PostedAt        time.Time `json:"posted_at"`
	IngestedAt      time.Time `json:"ingested_at"`
	Source          Source    `json:"source"`
}

// Key identifies a post across the store and the search index.
type Key struct {
	ChannelID int64
	MessageID int64
}

func (p *Post) Key() Key {
	return Key{ChannelID: p.ChannelID, MessageID: p.MessageID}
}

// DocID is the search index document id for this key.
func (k Key) DocID() string {
	return fmt.Sprintf("%d:%d", k.ChannelID, k.MessageID)
}

// ParseDocID recovers a key from an index document id.
func ParseDocID(id string) (Key, error) {
	channelPart, messagePart, ok := strings.Cut(id, ":")
	if !ok {
		return Key{}, fmt.Errorf("malformed doc id: %s", id)
	}
	channelID, err := strconv.ParseInt(channelPart, 10, 64)
	if err != nil {
		return Key{}, fmt.Errorf("malformed doc id %s: %w", id, err)
	}
	messageID, err := strconv.ParseInt(messagePart, 10, 64)
	if err != nil {
		return Key{}, fmt.Errorf("malformed doc id %s: %w", id, err)
	}
	return Key{ChannelID: channelID, MessageID: messageID}, nil
}

// Link returns the public t.me link for the post, or "" when the source
// channel is private and no shareable link exists.
func (p *Post) Link() string {
	if p.ChannelUsername == "" {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s/%d", p.ChannelUsername, p.MessageID)
}
