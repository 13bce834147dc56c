package chat

import (
	"regexp"
	"strings"
)

var (
	repeatedQuestion = regexp.MustCompile(`\?+`)
	repeatedBang     = regexp.MustCompile(`!+`)
	repeatedDot      = regexp.MustCompile(`\.+`)
	repeatedSpace    = regexp.MustCompile(`\s+`)
	onlyPunctuation  = regexp.MustCompile(`^[?!.,\s]+$`)
)

// CleanReply extracts the assistant turn from generated text and sanitizes it.
// The turn is the text between the first assistant marker and the next one,
// cut at the first human marker. ok is false when no assistant marker exists.
func CleanReply(generated, assistantMarker, humanMarker string) (reply string, ok bool) {
	start := strings.Index(generated, assistantMarker)
	if assistantMarker == "" || start < 0 {
		return "", false
	}

	turn := generated[start+len(assistantMarker):]
	if next := strings.Index(turn, assistantMarker); next >= 0 {
		turn = turn[:next]
	}
	if humanMarker != "" {
		if cut := strings.Index(turn, humanMarker); cut >= 0 {
			turn = turn[:cut]
		}
	}

	turn = strings.TrimSpace(printableASCII(turn))
	turn = repeatedQuestion.ReplaceAllString(turn, "?")
	turn = repeatedBang.ReplaceAllString(turn, "!")
	turn = repeatedDot.ReplaceAllString(turn, ".")
	turn = repeatedSpace.ReplaceAllString(turn, " ")
	return turn, true
}

// ValidReply accepts replies of at least two characters that are not just punctuation.
func ValidReply(reply string) bool {
	return len(reply) >= 2 && !onlyPunctuation.MatchString(reply)
}

// printableASCII drops every byte outside 0x20-0x7E, newlines and tabs included.
func printableASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= 0x20 && c <= 0x7e {
			b.WriteByte(c)
		}
	}
	return b.String()
}
