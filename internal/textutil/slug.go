package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const maxSlugLength = 48

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName replaces filesystem-unsafe characters in a filename.
// Slashes, backslashes, colons, and asterisks become dashes; other unsafe
// characters are removed.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(fileNameReplacer.Replace(name))
}

// StripAccents removes combining marks after canonical decomposition, so
// "canción" becomes "cancion". Input that fails to transform is returned as is.
func StripAccents(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, value)
	if err != nil {
		return value
	}
	return out
}

// Slug converts a search query into a lowercase filesystem-safe token.
// Accents are stripped, ASCII letters and digits are kept, hyphens survive,
// and every other run of characters collapses into one underscore. The result
// is capped in length and falls back to "clip" when nothing usable remains.
func Slug(value string) string {
	value = StripAccents(strings.TrimSpace(value))
	var b strings.Builder
	pendingSep := false
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
		case r >= 'A' && r <= 'Z':
			r += 'a' - 'A'
		default:
			pendingSep = true
			continue
		}
		if pendingSep && b.Len() > 0 {
			b.WriteByte('_')
		}
		pendingSep = false
		b.WriteRune(r)
		if b.Len() >= maxSlugLength {
			break
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "clip"
	}
	return out
}
