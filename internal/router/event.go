package router

import "time"

// Event is the sum type over everything the transport can hand to the
// core: a live channel post, a forwarded historical post, a slash command,
// or free-form search text.
type Event interface {
	isEvent()
}

// NewChannelPost is a post observed directly in a channel the bot is in.
type NewChannelPost struct {
	ChannelID       int64
	MessageID       int64
	ChannelTitle    string
	ChannelUsername string
	Author          string
	Text            string
	PostedAt        time.Time
}

// ForwardedPost is an old post forwarded to the bot in a private chat,
// the backfill path for history the bot never saw live.
type ForwardedPost struct {
	ChannelID       int64
	MessageID       int64
	ChannelTitle    string
	ChannelUsername string
	Text            string
	ForwardedBy     int64
	PostedAt        time.Time
}

// Command is a parsed slash command from a private chat.
type Command struct {
	Name    string
	Args    []string
	ActorID int64
}

// SearchText is a plain private message treated as a keyword query.
type SearchText struct {
	Text    string
	ActorID int64
}

func (NewChannelPost) isEvent() {}
func (ForwardedPost) isEvent()  {}
func (Command) isEvent()        {}
func (SearchText) isEvent()     {}
