package telegram

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/samber/oops"

	"github.com/khaingmyozaw/file-search-bot/internal/router"
	"github.com/khaingmyozaw/file-search-bot/internal/shared/config"
)

// Handler maps Telegram updates onto core events and renders replies
type Handler struct {
	cfg    *config.Config
	router *router.Router
	b      *bot.Bot
}

// New creates a new Telegram handler. The router is attached separately
// because the router needs the handler as its channel resolver.
func New(cfg *config.Config) *Handler {
	return &Handler{cfg: cfg}
}

// SetRouter attaches the event router.
func (h *Handler) SetRouter(r *router.Router) {
	h.router = r
}

// SetBot attaches the bot instance once it exists; needed for GetChat
// lookups outside a handler invocation.
func (h *Handler) SetBot(b *bot.Bot) {
	h.b = b
}

// RegisterCommands registers bot commands
func (h *Handler) RegisterCommands(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, h.command("start"))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, h.command("help"))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/sync_help", bot.MatchTypeExact, h.command("sync_help"))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/add_admin", bot.MatchTypePrefix, h.command("add_admin"))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/remove_admin", bot.MatchTypePrefix, h.command("remove_admin"))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/list_admins", bot.MatchTypeExact, h.command("list_admins"))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/allow_channel", bot.MatchTypePrefix, h.command("allow_channel"))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/remove_channel", bot.MatchTypePrefix, h.command("remove_channel"))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/list_channels", bot.MatchTypeExact, h.command("list_channels"))
	b.RegisterHandler(bot.HandlerTypeMessageText, "/status", bot.MatchTypeExact, h.command("status"))
}

// HandleUpdate processes updates not matched by a registered command:
// channel posts, forwarded history, and search text.
func (h *Handler) HandleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.ChannelPost != nil {
		h.dispatchChannelPost(ctx, update.ChannelPost)
		return
	}

	msg := update.Message
	if msg == nil {
		return
	}

	if msg.Chat.Type == "channel" {
		h.dispatchChannelPost(ctx, msg)
		return
	}

	// Only private chats are served; group chatter is not search input.
	if msg.Chat.Type != "private" || msg.From == nil {
		return
	}

	if msg.ForwardOrigin != nil {
		h.dispatchForward(ctx, b, msg)
		return
	}

	text := msg.Text
	if text == "" || strings.HasPrefix(text, "/") {
		return
	}

	reply := h.router.Dispatch(ctx, router.SearchText{
		Text:    text,
		ActorID: msg.From.ID,
	})
	h.send(ctx, b, msg.Chat.ID, reply)
}

func (h *Handler) command(name string) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		msg := update.Message
		if msg == nil || msg.From == nil || msg.Chat.Type != "private" {
			return
		}

		parts := strings.Fields(msg.Text)
		var args []string
		if len(parts) > 1 {
			args = parts[1:]
		}

		reply := h.router.Dispatch(ctx, router.Command{
			Name:    name,
			Args:    args,
			ActorID: msg.From.ID,
		})
		h.send(ctx, b, msg.Chat.ID, reply)
	}
}

func (h *Handler) dispatchChannelPost(ctx context.Context, msg *models.Message) {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	// Replies to channel posts are always empty; dispatch for the side
	// effect only.
	h.router.Dispatch(ctx, router.NewChannelPost{
		ChannelID:       msg.Chat.ID,
		MessageID:       int64(msg.ID),
		ChannelTitle:    msg.Chat.Title,
		ChannelUsername: msg.Chat.Username,
		Author:          authorName(msg),
		Text:            text,
		PostedAt:        time.Unix(int64(msg.Date), 0).UTC(),
	})
}

func (h *Handler) dispatchForward(ctx context.Context, b *bot.Bot, msg *models.Message) {
	origin := msg.ForwardOrigin
	if origin.Type != models.MessageOriginTypeChannel || origin.MessageOriginChannel == nil {
		// Forwards from users or groups carry no channel provenance.
		return
	}
	channel := origin.MessageOriginChannel

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	reply := h.router.Dispatch(ctx, router.ForwardedPost{
		ChannelID:       channel.Chat.ID,
		MessageID:       int64(channel.MessageID),
		ChannelTitle:    channel.Chat.Title,
		ChannelUsername: channel.Chat.Username,
		Text:            text,
		ForwardedBy:     msg.From.ID,
		PostedAt:        time.Unix(int64(channel.Date), 0).UTC(),
	})
	h.send(ctx, b, msg.Chat.ID, reply)
}

// ResolveChannel implements router.ChannelResolver via the bot API.
func (h *Handler) ResolveChannel(ctx context.Context, channelID int64) (*router.ChannelInfo, error) {
	if h.b == nil {
		return nil, oops.Errorf("bot not initialized")
	}

	chat, err := h.b.GetChat(ctx, &bot.GetChatParams{ChatID: channelID})
	if err != nil {
		return nil, oops.With("channel_id", channelID).Wrap(err)
	}

	return &router.ChannelInfo{
		ID:        chat.ID,
		Title:     chat.Title,
		Username:  chat.Username,
		IsChannel: chat.Type == "channel",
	}, nil
}

func (h *Handler) send(ctx context.Context, b *bot.Bot, chatID int64, reply router.Reply) {
	if reply.Empty() {
		return
	}

	text := reply.Text
	parseMode := models.ParseMode("")
	if len(reply.Results) > 0 {
		text = FormatResults(reply.Results)
		parseMode = models.ParseModeHTML
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:             chatID,
		Text:               text,
		ParseMode:          parseMode,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: bot.True()},
	}); err != nil {
		slog.Error("Failed to send reply", "chat_id", chatID, "error", err)
	}
}

func authorName(msg *models.Message) string {
	if msg.From != nil {
		if msg.From.Username != "" {
			return "@" + msg.From.Username
		}
		if msg.From.FirstName != "" {
			return msg.From.FirstName
		}
	}
	if msg.AuthorSignature != "" {
		return msg.AuthorSignature
	}
	return ""
}

var _ router.ChannelResolver = (*Handler)(nil)
