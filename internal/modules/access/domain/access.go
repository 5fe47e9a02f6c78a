package domain

import "time"

// ChannelState is the approval state of a registered channel. A channel
// with no record at all is unknown and never ingested.
type ChannelState string

const (
	ChannelStateApproved ChannelState = "approved"
	ChannelStateRevoked  ChannelState = "revoked"
)

// Channel represents a channel on the allow-list. Revoking keeps the
// record with state "revoked" so history stays attributable.
type Channel struct {
	ID       int64        `json:"id"`
	Title    string       `json:"title"`
	Username string       `json:"username,omitempty"`
	State    ChannelState `json:"state"`
	AddedBy  int64        `json:"added_by"`
	AddedAt  time.Time    `json:"added_at"`
}

// Public reports whether the channel has a public username, which means a
// shareable t.me link can be constructed for its posts.
func (c *Channel) Public() bool {
	return c.Username != ""
}

// Manager is a user authorized to manage the channel allow-list. The owner
// is a manager with AddedBy == its own id, seeded from configuration.
type Manager struct {
	UserID  int64     `json:"user_id"`
	AddedBy int64     `json:"added_by"`
	AddedAt time.Time `json:"added_at"`
}
