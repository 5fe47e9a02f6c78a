package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDocIDRoundTrip(t *testing.T) {
	key := Key{ChannelID: -1001234567890, MessageID: 42}

	parsed, err := ParseDocID(key.DocID())
	require.NoError(t, err)
	require.Equal(t, key, parsed)
}

func TestParseDocIDMalformed(t *testing.T) {
	for _, id := range []string{"", "100", "abc:1", "1:xyz"} {
		_, err := ParseDocID(id)
		require.Error(t, err, "id %q", id)
	}
}

func TestLink(t *testing.T) {
	public := &Post{ChannelID: 100, MessageID: 7, ChannelUsername: "newsroom"}
	require.Equal(t, "https://t.me/newsroom/7", public.Link())

	private := &Post{ChannelID: 100, MessageID: 7}
	require.Equal(t, "", private.Link())
}
