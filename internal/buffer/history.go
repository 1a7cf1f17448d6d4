package buffer

import (
	"sync"
	"unicode/utf8"
)

// DefaultHistoryLimit is the default capacity of a History ring in bytes.
const DefaultHistoryLimit = 200_000

// History is a thread-safe bounded text buffer. When appended text would
// exceed the limit, the oldest content is dropped so the buffer always holds
// the most recent tail. Channels use it to replay terminal output to
// transports that attach or reattach mid-session.
type History struct {
	mu    sync.RWMutex
	text  []byte
	limit int
}

// NewHistory creates a History with the given byte limit. Non-positive limits
// fall back to DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Append adds text to the end of the buffer, evicting from the front if the
// limit is exceeded. Eviction lands on a rune boundary so a snapshot never
// starts with a partial UTF-8 sequence.
func (h *History) Append(text string) {
	if text == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(text) >= h.limit {
		h.text = append(h.text[:0], runeAligned([]byte(text[len(text)-h.limit:]))...)
		return
	}

	h.text = append(h.text, text...)
	if overflow := len(h.text) - h.limit; overflow > 0 {
		h.text = append(h.text[:0], runeAligned(h.text[overflow:])...)
	}
}

// runeAligned drops leading continuation bytes left over when an eviction cut
// lands inside a multi-byte rune.
func runeAligned(b []byte) []byte {
	for len(b) > 0 && !utf8.RuneStart(b[0]) {
		b = b[1:]
	}
	return b
}

// Snapshot returns the current buffer contents.
func (h *History) Snapshot() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return string(h.text)
}

// Len returns the current buffer length in bytes.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.text)
}

// Limit returns the configured capacity in bytes.
func (h *History) Limit() int {
	return h.limit
}
