package export

import (
	"regexp"
	"strings"
)

// maxLineLength is the RFC 5545 bound on physical line length.
const maxLineLength = 75

var (
	htmlTagPattern = regexp.MustCompile(`<[^>]*>`)
	slugPattern    = regexp.MustCompile(`[^a-z0-9]+`)
)

// stripTags removes HTML markup from s. Event descriptions come out of a
// rich-text editor, but calendar TEXT values must be plain. This is a pure
// byte-level transform: it does not decode entities, so running it on
// already-plain text is a no-op.
func stripTags(s string) string {
	return htmlTagPattern.ReplaceAllString(s, "")
}

// escapeText strips markup and escapes s per RFC 5545 TEXT rules. Backslash
// is escaped first so the backslashes introduced by the later substitutions
// are not escaped again.
func escapeText(s string) string {
	s = stripTags(s)
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, ",", `\,`)
	s = strings.ReplaceAll(s, ";", `\;`)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}

// foldLine folds a content line longer than 75 characters, packing
// space-separated words greedily and prefixing each continuation line with a
// single space per the RFC 5545 folding convention. A single word longer
// than 75 characters stays alone on its own line; there is no
// character-level breaking.
func foldLine(line string) string {
	if len(line) <= maxLineLength {
		return line
	}

	words := strings.Split(line, " ")
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) > maxLineLength {
			lines = append(lines, current)
			current = word
			continue
		}
		current += " " + word
	}
	lines = append(lines, current)

	return strings.Join(lines, "\r\n ")
}

// Slugify lowercases s, strips markup, and collapses every run of
// non-alphanumeric characters into a single hyphen. Used for suggested
// download filenames and event slugs.
func Slugify(s string) string {
	s = strings.ToLower(stripTags(s))
	s = slugPattern.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
