// Package moderation masks banned words in chat text.
package moderation

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Filter replaces whole-word, case-insensitive matches of a static word list
// with a mask of the same length. A Filter is safe for concurrent use.
type Filter struct {
	re   *regexp.Regexp
	mask string
}

// NewFilter compiles the word list. An empty mask defaults to "*"; blank
// words are ignored.
func NewFilter(words []string, mask string) *Filter {
	if mask == "" {
		mask = "*"
	}

	quoted := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		quoted = append(quoted, regexp.QuoteMeta(w))
	}
	// Longest first so an alternation prefers the full word.
	sort.SliceStable(quoted, func(i, j int) bool { return len(quoted[i]) > len(quoted[j]) })

	f := &Filter{mask: mask}
	if len(quoted) > 0 {
		f.re = regexp.MustCompile(`(?i)(?:` + strings.Join(quoted, "|") + `)`)
	}
	return f
}

// Sanitize returns text with every banned word masked.
// RE2's \b only knows ASCII, so word boundaries are checked on the
// neighbouring runes instead.
func (f *Filter) Sanitize(text string) string {
	if f.re == nil || text == "" {
		return text
	}
	locs := f.re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		if !wordBoundary(text, start, end) {
			continue
		}
		b.WriteString(text[last:start])
		b.WriteString(strings.Repeat(f.mask, utf8.RuneCountInString(text[start:end])))
		last = end
	}
	b.WriteString(text[last:])
	return b.String()
}

func wordBoundary(text string, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(text[:start]); isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		if r, _ := utf8.DecodeRuneInString(text[end:]); isWordRune(r) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) || r == '_'
}
