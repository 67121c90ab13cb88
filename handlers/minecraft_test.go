package handlers

import (
	"testing"
	"unicode/utf8"
)

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("short", 25); got != "short" {
		t.Fatalf("short string changed: %q", got)
	}

	long := "ÅÅÅÅÅÅÅÅÅÅÅÅÅÅÅÅÅÅÅÅÅÅÅÅÅÅÅÅ"
	got := truncateRunes(long, 25)
	if utf8.RuneCountInString(got) != 25 {
		t.Fatalf("rune count = %d, want 25", utf8.RuneCountInString(got))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8: %q", got)
	}
}
