package orders

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Slugify derives a table slug: accents are folded, a purely numeric name
// becomes "Mesa-NN" and anything else becomes Title-Cased-Words.
func Slugify(name string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn))), name)
	if err != nil {
		folded = name
	}
	var ascii strings.Builder
	for _, r := range folded {
		if r < unicode.MaxASCII {
			ascii.WriteRune(r)
		}
	}
	t := strings.TrimSpace(ascii.String())

	compact := strings.ReplaceAll(t, " ", "")
	if compact != "" && strings.IndexFunc(compact, func(r rune) bool { return r < '0' || r > '9' }) < 0 {
		if len(compact) < 2 {
			compact = "0" + compact
		}
		return "Mesa-" + compact
	}

	parts := strings.FieldsFunc(t, func(r rune) bool {
		return unicode.IsSpace(r) || r == '_' || r == '-'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Map(func(r rune) rune {
			if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
				return r
			}
			return -1
		}, p)
		if p == "" {
			continue
		}
		out = append(out, strings.ToUpper(p[:1])+strings.ToLower(p[1:]))
	}
	return strings.Join(out, "-")
}

// UniqueSlug returns the first of base, base-2, base-3, ... that is not taken.
func UniqueSlug(ctx context.Context, base string, taken func(ctx context.Context, slug string) (bool, error)) (string, error) {
	if base == "" {
		base = "Mesa"
	}
	candidate := base
	for n := 2; ; n++ {
		used, err := taken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !used {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}
