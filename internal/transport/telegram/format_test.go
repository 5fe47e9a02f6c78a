package telegram

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	postDomain "github.com/khaingmyozaw/file-search-bot/internal/modules/post/domain"
	searchService "github.com/khaingmyozaw/file-search-bot/internal/modules/search/service"
)

func TestSnippet(t *testing.T) {
	require.Equal(t, "one line", Snippet("one\n\nline"))
	require.Equal(t, "spaced out", Snippet("  spaced    out  "))

	long := strings.Repeat("word ", 100)
	snippet := Snippet(long)
	require.Len(t, []rune(snippet), snippetLimit)
	require.True(t, strings.HasSuffix(snippet, "..."))

	short := "short post"
	require.Equal(t, short, Snippet(short))
}

func TestFormatResults(t *testing.T) {
	results := []searchService.Result{
		{
			Post: &postDomain.Post{
				ChannelID:       100,
				MessageID:       7,
				ChannelTitle:    "Tom & Jerry <News>",
				ChannelUsername: "tomjerry",
				Text:            "invoice for march",
				PostedAt:        time.Date(2025, 3, 10, 12, 30, 0, 0, time.UTC),
			},
			Score: 1.5,
		},
		{
			Post: &postDomain.Post{
				ChannelID:    200,
				MessageID:    3,
				ChannelTitle: "Private Notes",
				Text:         "secret invoice",
				PostedAt:     time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC),
			},
			Score: 1.1,
		},
	}

	text := FormatResults(results)

	require.Contains(t, text, "<b>Search results</b>")
	require.Contains(t, text, "1. <b>Tom &amp; Jerry &lt;News&gt;</b> (2025-03-10 12:30)")
	require.Contains(t, text, `<a href="https://t.me/tomjerry/7">Open message</a>`)
	require.Contains(t, text, "2. <b>Private Notes</b>")
	require.Contains(t, text, "(Private channel: open it manually in Telegram.)")
}
