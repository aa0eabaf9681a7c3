package usecase

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var questionWords = []string{"who", "what", "when", "where", "why", "which", "how", "is", "can", "does", "do"}

// FormatUtterance turns the spoken query into a card title: the first letter
// is upper-cased and questions get a trailing question mark.
func FormatUtterance(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	isQuestion := false
	lower := strings.ToLower(text)
	for _, w := range questionWords {
		if strings.HasPrefix(lower, w) {
			isQuestion = true
			break
		}
	}

	r, size := utf8.DecodeRuneInString(text)
	title := string(unicode.ToUpper(r)) + text[size:]
	if isQuestion && !strings.HasSuffix(title, "?") {
		title += "?"
	}
	return title
}
