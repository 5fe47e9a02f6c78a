package errors

import "errors"

var (
	ErrMissingBotToken = errors.New("TELEGRAM_BOT_TOKEN environment variable is required")
	ErrMissingOwnerID  = errors.New("OWNER_USER_ID must be set to a valid Telegram user id")

	// ErrPermissionDenied is returned when the acting user lacks the role a
	// command requires. Always surfaced to the actor for explicit commands.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidOperation covers state-machine violations such as removing
	// the owner or removing a manager that does not exist.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrNotApproved means the post's source channel is not on the
	// allow-list. Expected filtering outcome, not a user error.
	ErrNotApproved = errors.New("channel not approved")

	// ErrMalformedEvent means an inbound event is missing required fields
	// (text, channel id, message id). Logged and dropped.
	ErrMalformedEvent = errors.New("malformed event")

	// ErrStorageUnavailable is surfaced after bounded retries against the
	// store are exhausted.
	ErrStorageUnavailable = errors.New("storage unavailable")

	ErrChannelNotFound = errors.New("channel not found")
)
