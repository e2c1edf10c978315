package client

import (
	"strconv"
	"strings"
	"testing"
)

func TestHistory_KeepsMostRecent(t *testing.T) {
	h := NewHistory(3, 0)
	for i := 0; i < 5; i++ {
		h.Add("m" + strconv.Itoa(i))
	}
	if h.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", h.Len())
	}
	if got := strings.Join(h.Lines(), ","); got != "m2,m3,m4" {
		t.Fatalf("unexpected history %q", got)
	}
}

func TestHistory_PartiallyFilled(t *testing.T) {
	h := NewHistory(0, 0)
	h.Add("one")
	h.Add("two")
	if got := strings.Join(h.Lines(), ","); got != "one,two" {
		t.Fatalf("unexpected history %q", got)
	}
}

func TestHistory_TruncatesLongLines(t *testing.T) {
	h := NewHistory(2, 4)
	h.Add("abcdefgh")
	h.Add("abé")
	lines := h.Lines()
	if lines[0] != "abcd" {
		t.Fatalf("expected byte truncation, got %q", lines[0])
	}
	if lines[1] != "abé" {
		t.Fatalf("expected short line kept, got %q", lines[1])
	}

	h.Add("abcé")
	if got := h.Lines()[1]; got != "abc" {
		t.Fatalf("expected cut before split rune, got %q", got)
	}
}
