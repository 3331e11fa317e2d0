// Package lcd formats text for fixed-width character displays whose sysex
// payloads only carry 7-bit ASCII.
package lcd

import (
	"strings"
	"unicode"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fit truncates or right-pads s to exactly width display columns
func Fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.FillRight(runewidth.Truncate(s, width, ""), width)
}

// Center places s in the middle of width columns
func Center(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = runewidth.Truncate(s, width, "")
	pad := (width - runewidth.StringWidth(s)) / 2
	return Fit(strings.Repeat(" ", pad)+s, width)
}

// ASCII folds accents ("Ré" -> "Re") and replaces anything else outside
// printable 7-bit ASCII with '?'
func ASCII(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if r >= 0x20 && r < 0x7F {
			b.WriteRune(r)
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}

// Bytes is Fit(ASCII(s), width) as a sysex-ready payload
func Bytes(s string, width int) []byte {
	return []byte(Fit(ASCII(s), width))
}
