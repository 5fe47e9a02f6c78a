package telegram

import (
	"fmt"
	"html"
	"strings"

	searchService "github.com/khaingmyozaw/file-search-bot/internal/modules/search/service"
)

const snippetLimit = 160

// FormatResults renders ranked search results as a Telegram HTML message.
func FormatResults(results []searchService.Result) string {
	var text strings.Builder
	text.WriteString("🔎 <b>Search results</b>\n")

	for i, result := range results {
		text.WriteString("\n")
		text.WriteString(formatResult(result, i+1))
		text.WriteString("\n")
	}

	return text.String()
}

func formatResult(result searchService.Result, index int) string {
	post := result.Post

	lines := []string{
		fmt.Sprintf("%d. <b>%s</b> (%s)",
			index,
			html.EscapeString(post.ChannelTitle),
			post.PostedAt.Format("2006-01-02 15:04"),
		),
		"   " + html.EscapeString(Snippet(post.Text)),
	}

	if link := post.Link(); link != "" {
		lines = append(lines, fmt.Sprintf("   <a href=\"%s\">Open message</a>", link))
	} else {
		lines = append(lines, "   (Private channel: open it manually in Telegram.)")
	}

	return strings.Join(lines, "\n")
}

// Snippet collapses a post's text to a single line capped at 160 runes.
func Snippet(text string) string {
	snippet := strings.Join(strings.Fields(text), " ")
	runes := []rune(snippet)
	if len(runes) <= snippetLimit {
		return snippet
	}
	return string(runes[:snippetLimit-3]) + "..."
}
