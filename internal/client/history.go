package client

import "unicode/utf8"

// History keeps the most recent messages in arrival order, dropping the
// oldest once full.
type History struct {
	lines  []string
	head   int
	size   int
	maxLen int
}

func NewHistory(capacity, maxLen int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	if maxLen <= 0 {
		maxLen = MaxBuffer - 1
	}
	return &History{lines: make([]string, capacity), maxLen: maxLen}
}

func (h *History) Add(line string) {
	idx := (h.head + h.size) % len(h.lines)
	if h.size == len(h.lines) {
		h.head = (h.head + 1) % len(h.lines)
	} else {
		h.size++
	}
	h.lines[idx] = truncate(line, h.maxLen)
}

func (h *History) Len() int { return h.size }

// Lines returns the stored messages, oldest first.
func (h *History) Lines() []string {
	out := make([]string, 0, h.size)
	for i := 0; i < h.size; i++ {
		out = append(out, h.lines[(h.head+i)%len(h.lines)])
	}
	return out
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
