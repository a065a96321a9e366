package usecases

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "สวัสดี", "สวัสดี"},
		{"null bytes stripped", "a\x00b", "ab"},
		{"invalid utf8 dropped", "ok" + string([]byte{0xFF}), "ok"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeText(tt.in); got != tt.want {
				t.Errorf("sanitizeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruncateReplyKeepsShortText(t *testing.T) {
	if got := truncateReply("สั้น"); got != "สั้น" {
		t.Fatalf("got %q", got)
	}
}

func TestTruncateReplyClampsOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("ก", maxReplyLength+10)
	got := truncateReply(long)
	if utf8.RuneCountInString(got) != maxReplyLength {
		t.Fatalf("rune count = %d, want %d", utf8.RuneCountInString(got), maxReplyLength)
	}
	if !utf8.ValidString(got) {
		t.Fatal("truncation split a rune")
	}
}
