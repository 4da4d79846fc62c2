package extract

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeColumn folds a vendor header into the canonical token form:
// accents stripped, lowercased, runs of anything that is not a letter or
// digit collapsed to one underscore, no leading or trailing underscores.
func NormalizeColumn(raw string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), raw)
	if err != nil {
		folded = raw
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(folded)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// NormalizeHeaders normalizes a header row and makes every name unique.
// Blank headers become column_<n> (1-based); repeats get a _2, _3 suffix.
func NormalizeHeaders(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		name := NormalizeColumn(h)
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = name + "_" + strconv.Itoa(n)
			seen[name]++
		}
		out[i] = name
	}
	return out
}

func tokens(header string) []string {
	return strings.Split(header, "_")
}
