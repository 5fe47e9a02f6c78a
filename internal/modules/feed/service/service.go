package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/gorilla/feeds"
	"github.com/samber/oops"

	accessDomain "github.com/khaingmyozaw/file-search-bot/internal/modules/access/domain"
	accessService "github.com/khaingmyozaw/file-search-bot/internal/modules/access/service"
	postDomain "github.com/khaingmyozaw/file-search-bot/internal/modules/post/domain"
	postRepo "github.com/khaingmyozaw/file-search-bot/internal/modules/post/repository"
	"github.com/khaingmyozaw/file-search-bot/internal/shared/errors"
)

const feedItemLimit = 50

// Service renders RSS feeds over a channel's indexed posts
type Service struct {
	access *accessService.Service
	posts  postRepo.Repository
}

// New creates a new feed service
func New(access *accessService.Service, posts postRepo.Repository) *Service {
	return &Service{
		access: access,
		posts:  posts,
	}
}

// GenerateFeed generates an RSS feed for an approved channel. Revoked and
// unknown channels get ErrChannelNotFound so the feed surface leaks nothing
// the bot no longer serves.
func (s *Service) GenerateFeed(ctx context.Context, channelID int64, baseURL string) (*feeds.Feed, error) {
	channel, err := s.access.GetChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	if channel == nil || channel.State != accessDomain.ChannelStateApproved {
		return nil, oops.With("channel_id", channelID).Wrap(errors.ErrChannelNotFound)
	}

	posts, err := s.posts.Recent(ctx, channelID, feedItemLimit)
	if err != nil {
		return nil, oops.With("channel_id", channelID, "context", "failed to get posts").Wrap(err)
	}

	feed := &feeds.Feed{
		Title:       fmt.Sprintf("%s - Indexed Posts", channel.Title),
		Link:        &feeds.Link{Href: fmt.Sprintf("%s/feed/%d", baseURL, channel.ID)},
		Description: fmt.Sprintf("Search-indexed posts from Telegram channel: %s", channel.Title),
		Author:      &feeds.Author{Name: channel.Username},
		Created:     channel.AddedAt,
	}

	var items []*feeds.Item
	for _, post := range posts {
		items = append(items, s.postToFeedItem(post))
	}
	if len(posts) > 0 {
		feed.Updated = posts[0].PostedAt
	}

	feed.Items = items
	return feed, nil
}

func (s *Service) postToFeedItem(post *postDomain.Post) *feeds.Item {
	title := strings.ReplaceAll(post.Text, "\n", " ")
	title = truncate(title, 100)

	item := &feeds.Item{
		Title:       title,
		Description: post.Text,
		Content:     fmt.Sprintf("<p>%s</p>", escapeHTML(post.Text)),
		Author:      &feeds.Author{Name: post.Author},
		Created:     post.PostedAt,
		Id:          post.Key().DocID(),
	}
	if link := post.Link(); link != "" {
		item.Link = &feeds.Link{Href: link}
	} else {
		item.Link = &feeds.Link{Href: fmt.Sprintf("tg://channel/%d/%d", post.ChannelID, post.MessageID)}
	}

	return item
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

func escapeHTML(s string) string {
	result := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '<':
			result = append(result, []rune("&lt;")...)
		case '>':
			result = append(result, []rune("&gt;")...)
		case '&':
			result = append(result, []rune("&amp;")...)
		case '"':
			result = append(result, []rune("&quot;")...)
		case '\'':
			result = append(result, []rune("&#39;")...)
		default:
			result = append(result, r)
		}
	}
	return string(result)
}
