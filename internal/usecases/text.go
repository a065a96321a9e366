package usecases

import (
	"strings"
	"unicode/utf8"
)

// LINE rejects text reply payloads over 5000 characters.
const maxReplyLength = 5000

// sanitizeText removes null bytes and invalid UTF-8 before a string is sent
// to the platform or written to Postgres (which rejects NUL in text columns).
func sanitizeText(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for _, r := range s {
			if r != utf8.RuneError {
				v = append(v, r)
			}
		}
		s = string(v)
	}
	return s
}

// truncateReply clamps text to the platform reply limit without splitting a rune.
func truncateReply(s string) string {
	if utf8.RuneCountInString(s) <= maxReplyLength {
		return s
	}
	return string([]rune(s)[:maxReplyLength])
}
