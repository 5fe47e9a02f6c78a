package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	accessDomain "github.com/khaingmyozaw/file-search-bot/internal/modules/access/domain"
	accessService "github.com/khaingmyozaw/file-search-bot/internal/modules/access/service"
	ingestService "github.com/khaingmyozaw/file-search-bot/internal/modules/ingest/service"
	postDomain "github.com/khaingmyozaw/file-search-bot/internal/modules/post/domain"
	postRepo "github.com/khaingmyozaw/file-search-bot/internal/modules/post/repository"
	searchService "github.com/khaingmyozaw/file-search-bot/internal/modules/search/service"
	"github.com/khaingmyozaw/file-search-bot/internal/shared/config"
	apperrors "github.com/khaingmyozaw/file-search-bot/internal/shared/errors"
)

const minQueryLength = 2

// ChannelInfo is the transport-resolved metadata for a chat id.
type ChannelInfo struct {
	ID        int64
	Title     string
	Username  string
	IsChannel bool
}

// ChannelResolver looks up chat metadata from the messaging platform. The
// telegram transport implements it; the core never calls the bot API.
type ChannelResolver interface {
	ResolveChannel(ctx context.Context, channelID int64) (*ChannelInfo, error)
}

// Reply is what the transport should send back for an event. A zero Reply
// means stay silent.
type Reply struct {
	Text    string
	Results []searchService.Result
}

func (r Reply) Empty() bool {
	return r.Text == "" && len(r.Results) == 0
}

// Router consumes events and dispatches them to the access, ingestion, and
// search services.
type Router struct {
	cfg      *config.Config
	access   *accessService.Service
	ingest   *ingestService.Service
	search   *searchService.Service
	posts    postRepo.Repository
	resolver ChannelResolver
}

func New(
	cfg *config.Config,
	access *accessService.Service,
	ingest *ingestService.Service,
	search *searchService.Service,
	posts postRepo.Repository,
	resolver ChannelResolver,
) *Router {
	return &Router{
		cfg:      cfg,
		access:   access,
		ingest:   ingest,
		search:   search,
		posts:    posts,
		resolver: resolver,
	}
}

// Dispatch routes one inbound event. Command and search errors come back
// as user-visible reply text; passive ingestion errors are logged here and
// never surfaced.
func (r *Router) Dispatch(ctx context.Context, event Event) Reply {
	switch ev := event.(type) {
	case NewChannelPost:
		return r.handleChannelPost(ctx, ev)
	case ForwardedPost:
		return r.handleForwardedPost(ctx, ev)
	case Command:
		return r.handleCommand(ctx, ev)
	case SearchText:
		return r.handleSearch(ctx, ev)
	default:
		slog.Warn("Unknown event type", "event", fmt.Sprintf("%T", event))
		return Reply{}
	}
}

func (r *Router) handleChannelPost(ctx context.Context, ev NewChannelPost) Reply {
	post := &postDomain.Post{
		ChannelID:       ev.ChannelID,
		MessageID:       ev.MessageID,
		ChannelTitle:    ev.ChannelTitle,
		ChannelUsername: ev.ChannelUsername,
		Author:          ev.Author,
		Text:            ev.Text,
		PostedAt:        ev.PostedAt,
	}

	err := r.ingest.IngestLive(ctx, post)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrNotApproved):
		slog.Info("Ignored post from unapproved channel", "channel_id", ev.ChannelID)
	case errors.Is(err, apperrors.ErrMalformedEvent):
		slog.Debug("Dropped malformed channel post", "channel_id", ev.ChannelID, "message_id", ev.MessageID)
	default:
		slog.Error("Failed to ingest channel post", "error", err, "channel_id", ev.ChannelID, "message_id", ev.MessageID)
	}

	// Nobody is waiting on a channel post; never reply.
	return Reply{}
}

func (r *Router) handleForwardedPost(ctx context.Context, ev ForwardedPost) Reply {
	post := &postDomain.Post{
		ChannelID:       ev.ChannelID,
		MessageID:       ev.MessageID,
		ChannelTitle:    ev.ChannelTitle,
		ChannelUsername: ev.ChannelUsername,
		Text:            ev.Text,
		PostedAt:        ev.PostedAt,
	}

	err := r.ingest.IngestBackfill(ctx, ev.ForwardedBy, post)
	switch {
	case err == nil:
		return Reply{Text: "Synced 1 old post into the search index ✅"}
	case errors.Is(err, apperrors.ErrPermissionDenied):
		// Not a manager: ignore silently, or any user could bulk-forward
		// content into the index.
		slog.Info("Ignored forward from non-manager", "user_id", ev.ForwardedBy)
		return Reply{}
	case errors.Is(err, apperrors.ErrNotApproved):
		return Reply{Text: "This source channel is not approved. Ask a bot manager to /allow_channel first."}
	case errors.Is(err, apperrors.ErrMalformedEvent):
		slog.Debug("Dropped malformed forward", "user_id", ev.ForwardedBy)
		return Reply{}
	default:
		slog.Error("Failed to backfill forwarded post", "error", err, "user_id", ev.ForwardedBy)
		return Reply{Text: "❌ Something went wrong while syncing. Please try again later."}
	}
}

func (r *Router) handleSearch(ctx context.Context, ev SearchText) Reply {
	query := strings.TrimSpace(ev.Text)
	if len([]rune(query)) < minQueryLength {
		return Reply{Text: "Please type at least 2 characters to search."}
	}

	results, err := r.search.Search(ctx, query, r.cfg.MaxResults)
	if err != nil {
		slog.Error("Search failed", "error", err, "user_id", ev.ActorID)
		return Reply{Text: "❌ Search is temporarily unavailable. Please try again later."}
	}

	if len(results) == 0 {
		return Reply{Text: "No results found. Try another keyword."}
	}
	return Reply{Results: results}
}

func (r *Router) handleCommand(ctx context.Context, ev Command) Reply {
	switch ev.Name {
	case "start", "help":
		return Reply{Text: helpText}
	case "sync_help":
		return Reply{Text: syncHelpText}
	case "add_admin":
		return r.cmdAddAdmin(ctx, ev)
	case "remove_admin":
		return r.cmdRemoveAdmin(ctx, ev)
	case "list_admins":
		return r.cmdListAdmins(ctx, ev)
	case "allow_channel":
		return r.cmdAllowChannel(ctx, ev)
	case "remove_channel":
		return r.cmdRemoveChannel(ctx, ev)
	case "list_channels":
		return r.cmdListChannels(ctx, ev)
	case "status":
		return r.cmdStatus(ctx, ev)
	default:
		return Reply{Text: "Unknown command. See /help for the list of commands."}
	}
}

func (r *Router) cmdAddAdmin(ctx context.Context, ev Command) Reply {
	targetID, reply := requireIDArg(ev, "/add_admin <user_id>")
	if !reply.Empty() {
		return reply
	}

	if err := r.access.AddManager(ctx, ev.ActorID, targetID); err != nil {
		return commandFailure(err, "Only the owner can add bot managers.")
	}
	return Reply{Text: fmt.Sprintf("Added bot manager: %d", targetID)}
}

func (r *Router) cmdRemoveAdmin(ctx context.Context, ev Command) Reply {
	targetID, reply := requireIDArg(ev, "/remove_admin <user_id>")
	if !reply.Empty() {
		return reply
	}

	err := r.access.RemoveManager(ctx, ev.ActorID, targetID)
	switch {
	case err == nil:
		return Reply{Text: fmt.Sprintf("Removed bot manager: %d", targetID)}
	case errors.Is(err, apperrors.ErrInvalidOperation):
		if targetID == r.access.OwnerID() {
			return Reply{Text: "Owner cannot be removed."}
		}
		return Reply{Text: fmt.Sprintf("%d is not a bot manager.", targetID)}
	default:
		return commandFailure(err, "Only the owner can remove bot managers.")
	}
}

func (r *Router) cmdListAdmins(ctx context.Context, ev Command) Reply {
	managers, err := r.access.ListManagers(ctx, ev.ActorID)
	if err != nil {
		return commandFailure(err, "Only bot managers can use this command.")
	}

	var text strings.Builder
	text.WriteString("Bot managers:\n")
	for _, manager := range managers {
		if manager.UserID == r.access.OwnerID() {
			text.WriteString(fmt.Sprintf("- %d (owner)\n", manager.UserID))
		} else {
			text.WriteString(fmt.Sprintf("- %d\n", manager.UserID))
		}
	}
	return Reply{Text: text.String()}
}

func (r *Router) cmdAllowChannel(ctx context.Context, ev Command) Reply {
	channelID, reply := requireIDArg(ev, "/allow_channel <channel_id>")
	if !reply.Empty() {
		return reply
	}

	// Gate on manager role before touching the platform API.
	isManager, err := r.access.IsManager(ctx, ev.ActorID)
	if err != nil {
		return commandFailure(err, "")
	}
	if !isManager {
		return Reply{Text: "Only bot managers can use this command."}
	}

	info, err := r.resolver.ResolveChannel(ctx, channelID)
	if err != nil {
		return Reply{Text: "I can't access this channel. Add me as admin first, then retry."}
	}
	if !info.IsChannel {
		return Reply{Text: "This chat id is not a channel."}
	}

	title := info.Title
	if title == "" {
		title = "Unknown Channel"
	}

	if err := r.access.AllowChannel(ctx, ev.ActorID, channelID, title, info.Username); err != nil {
		return commandFailure(err, "Only bot managers can use this command.")
	}
	return Reply{Text: fmt.Sprintf("Channel allowed: %s (%d)", title, channelID)}
}

func (r *Router) cmdRemoveChannel(ctx context.Context, ev Command) Reply {
	channelID, reply := requireIDArg(ev, "/remove_channel <channel_id>")
	if !reply.Empty() {
		return reply
	}

	err := r.access.RemoveChannel(ctx, ev.ActorID, channelID)
	switch {
	case err == nil:
		if r.cfg.PurgeOnRevoke {
			return Reply{Text: fmt.Sprintf("Channel removed and its posts purged: %d", channelID)}
		}
		return Reply{Text: fmt.Sprintf("Channel removed: %d (existing posts remain searchable)", channelID)}
	case errors.Is(err, apperrors.ErrChannelNotFound):
		return Reply{Text: fmt.Sprintf("Channel %d is not registered.", channelID)}
	default:
		return commandFailure(err, "Only bot managers can use this command.")
	}
}

func (r *Router) cmdListChannels(ctx context.Context, ev Command) Reply {
	channels, err := r.access.ListChannels(ctx, ev.ActorID)
	if err != nil {
		return commandFailure(err, "Only bot managers can use this command.")
	}

	if len(channels) == 0 {
		return Reply{Text: "No channels are allowed yet."}
	}

	var text strings.Builder
	text.WriteString("Channels:\n")
	for _, channel := range channels {
		visibility := "(private)"
		if channel.Public() {
			visibility = "@" + channel.Username
		}
		marker := "✅"
		if channel.State == accessDomain.ChannelStateRevoked {
			marker = "⏸️"
		}
		text.WriteString(fmt.Sprintf("%s %s | %d | %s\n", marker, channel.Title, channel.ID, visibility))
	}
	return Reply{Text: text.String()}
}

func (r *Router) cmdStatus(ctx context.Context, ev Command) Reply {
	channels, err := r.access.ListChannels(ctx, ev.ActorID)
	if err != nil {
		return commandFailure(err, "Only bot managers can use this command.")
	}

	countCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	postCount, err := r.posts.Count(countCtx)
	if err != nil {
		return commandFailure(err, "")
	}

	approved := 0
	for _, channel := range channels {
		if channel.State == accessDomain.ChannelStateApproved {
			approved++
		}
	}

	text := fmt.Sprintf(`📊 Bot Status:

Indexed posts: %d
Channels: %d (approved: %d)
Max results: %d
Purge on revoke: %t`,
		postCount, len(channels), approved, r.cfg.MaxResults, r.cfg.PurgeOnRevoke)
	return Reply{Text: text}
}

// requireIDArg extracts the single numeric id argument of a command,
// returning a usage or parse-failure reply when it is missing or invalid.
func requireIDArg(ev Command, usage string) (int64, Reply) {
	if len(ev.Args) == 0 {
		return 0, Reply{Text: "Usage: " + usage}
	}
	id, err := config.ParseUserID(ev.Args[0])
	if err != nil {
		return 0, Reply{Text: "The id must be a number."}
	}
	return id, Reply{}
}

func commandFailure(err error, deniedText string) Reply {
	if errors.Is(err, apperrors.ErrPermissionDenied) {
		if deniedText == "" {
			deniedText = "Only bot managers can use this command."
		}
		return Reply{Text: deniedText}
	}
	slog.Error("Command failed", "error", err)
	return Reply{Text: "❌ Something went wrong. Please try again later."}
}

const helpText = `👋 Hi! I can search channel posts.

Normal usage:
1) Ask your bot manager to approve channels first.
2) Send any keywords, e.g. invoice March
3) I will show the top matching posts.

Bot manager commands:
/add_admin <user_id>
/remove_admin <user_id>
/list_admins
/allow_channel <channel_id>
/remove_channel <channel_id>
/list_channels
/status
/sync_help`

const syncHelpText = `Old data sync (manual but safe):
1) Open the channel history.
2) Forward old posts to this bot in a private chat.
3) I will index forwarded posts only if their source channel is allowed.

This protects the bot from random channels being indexed without approval.`
