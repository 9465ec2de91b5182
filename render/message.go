package render

import (
	"regexp"
	"strings"
	"unicode"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

var (
	// CSI (ESC [ ... final) and OSC (ESC ] ... BEL|ST) sequences.
	ansiCSI = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	ansiOSC = regexp.MustCompile(`\x1b\][^\x07\x1b]*(\x07|\x1b\\)`)

	htmlTag = regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9]*(\s[^<>]*)?/?>`)
)

// Sanitize strips terminal escape sequences and control characters,
// keeping newlines and tabs.
func Sanitize(s string) string {
	s = ansiOSC.ReplaceAllString(s, "")
	s = ansiCSI.ReplaceAllString(s, "")
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// Message prepares free text from the backend for display.
// Content carrying HTML markup (the backend sometimes embeds result
// tables) is converted to Markdown instead of being shown raw; plain
// text passes through untouched apart from sanitising.
func Message(content string) string {
	if !htmlTag.MatchString(content) {
		return Sanitize(content)
	}
	md, err := htmltomarkdown.ConvertString(content)
	if err != nil {
		// Fall back to dropping the tags.
		return Sanitize(htmlTag.ReplaceAllString(content, ""))
	}
	return Sanitize(strings.TrimSpace(md))
}
