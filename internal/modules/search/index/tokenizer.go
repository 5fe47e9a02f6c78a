package index

import (
	"strings"
	"unicode"

	"github.com/samber/lo"
)

// Tokenize lowercases the query and splits it on anything that is not a
// letter or digit, deduplicating the result. A query of pure punctuation
// or whitespace tokenizes to nil.
func Tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(fields) == 0 {
		return nil
	}
	return lo.Uniq(fields)
}
