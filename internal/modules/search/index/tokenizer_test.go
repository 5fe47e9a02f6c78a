package index

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"invoice March", []string{"invoice", "march"}},
		{"  hello,   world!  ", []string{"hello", "world"}},
		{"report-2025_final", []string{"report", "2025", "final"}},
		{"foo foo FOO", []string{"foo"}},
		{"", nil},
		{"   ", nil},
		{"!!! ... ???", nil},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, Tokenize(tc.in), "input %q", tc.in)
	}
}
