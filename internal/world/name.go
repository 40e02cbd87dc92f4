package world

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

const (
	MaxNameLen  = 16 // runes
	DefaultName = "Player"
)

// SanitizeName normalises a client-supplied name: compatibility forms are
// folded, unprintable runes dropped, whitespace collapsed and the result cut
// to MaxNameLen runes.
func SanitizeName(s string) string {
	s = width.Fold.String(norm.NFKC.String(s))
	var b strings.Builder
	n := 0
	space := false
	for _, r := range s {
		if n >= MaxNameLen {
			break
		}
		if unicode.IsSpace(r) {
			space = n > 0
			continue
		}
		if r == utf8.RuneError || !unicode.IsPrint(r) {
			continue
		}
		if space {
			if n+1 >= MaxNameLen {
				break
			}
			b.WriteByte(' ')
			n++
			space = false
		}
		b.WriteRune(r)
		n++
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return DefaultName
	}
	return out
}
