package chat

import (
	"regexp"
	"strings"
	"sync"
	"time"
)

// Exchange is one user/assistant turn.
type Exchange struct {
	UserText  string
	ReplyText string
	At        time.Time
}

// HistoryConfig bounds the in-memory conversation context.
type HistoryConfig struct {
	MaxExchanges      int           // default 10
	InactivityTimeout time.Duration // context expires after this; default 5m
}

// History keeps a bounded, in-memory log of recent exchanges and detects
// follow-up utterances that reference prior context. Nothing is persisted;
// the log expires after inactivity.
type History struct {
	mu           sync.RWMutex
	exchanges    []Exchange
	lastActivity time.Time
	cfg          HistoryConfig

	now func() time.Time // test hook
}

var followUpPattern = regexp.MustCompile(`\b(it|that|this|them|those|again|also|more|another|earlier|before)\b`)

var continuationPrefixes = []string{"and ", "but ", "so ", "also ", "then ", "what about ", "how about "}

// NewHistory creates a History with the given bounds. Zero values take
// defaults.
func NewHistory(cfg HistoryConfig) *History {
	if cfg.MaxExchanges <= 0 {
		cfg.MaxExchanges = 10
	}
	if cfg.InactivityTimeout <= 0 {
		cfg.InactivityTimeout = 5 * time.Minute
	}
	return &History{
		exchanges: make([]Exchange, 0, cfg.MaxExchanges),
		cfg:       cfg,
		now:       time.Now,
	}
}

// Add records an exchange, expiring stale context first and trimming to
// the configured bound.
func (h *History) Add(userText, replyText string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.expiredLocked() {
		h.exchanges = h.exchanges[:0]
	}

	h.exchanges = append(h.exchanges, Exchange{
		UserText:  userText,
		ReplyText: replyText,
		At:        h.now(),
	})
	h.lastActivity = h.now()

	if len(h.exchanges) > h.cfg.MaxExchanges {
		h.exchanges = h.exchanges[len(h.exchanges)-h.cfg.MaxExchanges:]
	}
}

// IsFollowUp reports whether text likely references earlier conversation.
// Always false with no live context.
func (h *History) IsFollowUp(text string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.exchanges) == 0 || h.expiredLocked() {
		return false
	}

	lower := strings.ToLower(strings.TrimSpace(text))
	if followUpPattern.MatchString(lower) {
		return true
	}
	for _, p := range continuationPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	switch lower {
	case "why?", "how?", "what?", "really?":
		return true
	}
	return false
}

// Len returns the number of live exchanges, zero if expired.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.expiredLocked() {
		return 0
	}
	return len(h.exchanges)
}

// Clear drops all context.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exchanges = h.exchanges[:0]
}

func (h *History) expiredLocked() bool {
	if len(h.exchanges) == 0 {
		return false
	}
	return h.now().Sub(h.lastActivity) > h.cfg.InactivityTimeout
}
