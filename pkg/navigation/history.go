// Package navigation records where menus navigate to.
package navigation

import (
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Kind tells internal route navigation from external URL navigation.
type Kind string

const (
	KindInternal Kind = "internal"
	KindExternal Kind = "external"
)

var (
	// ErrEmptyTarget is returned when navigating to an empty path or URL.
	ErrEmptyTarget = errors.New("empty navigation target")

	// ErrInvalidURL is returned for an external target that is not an absolute URL.
	ErrInvalidURL = errors.New("invalid external url")
)

// Entry is one navigation.
type Entry struct {
	Kind   Kind      `json:"kind"`
	Target string    `json:"target"`
	Time   time.Time `json:"time"`
}

// History is both the router and the location of a menu: it accepts internal
// and external navigations and keeps the most recent ones.
type History struct {
	mu      sync.RWMutex
	entries []Entry
	limit   int
	total   int
	now     func() time.Time
}

// DefaultLimit is the number of entries a History keeps by default.
const DefaultLimit = 100

// NewHistory returns a History keeping at most limit entries. A limit below
// one uses DefaultLimit.
func NewHistory(limit int) *History {
	if limit < 1 {
		limit = DefaultLimit
	}
	return &History{limit: limit, now: time.Now}
}

// Navigate records an internal navigation to path.
func (h *History) Navigate(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return ErrEmptyTarget
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	h.push(KindInternal, path)
	return nil
}

// Assign records an external navigation to rawURL.
func (h *History) Assign(rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ErrEmptyTarget
	}

	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() {
		return errors.Join(ErrInvalidURL, err)
	}

	h.push(KindExternal, u.String())
	return nil
}

func (h *History) push(kind Kind, target string) {
	e := Entry{Kind: kind, Target: target, Time: h.now().UTC()}

	h.mu.Lock()
	h.entries = append(h.entries, e)
	h.total++
	if over := len(h.entries) - h.limit; over > 0 {
		h.entries = append(h.entries[:0:0], h.entries[over:]...)
	}
	h.mu.Unlock()

	slog.Info("navigated", "kind", kind, "target", target)
}

// Current returns the latest entry, if any.
func (h *History) Current() (Entry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.entries) == 0 {
		return Entry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Entries returns the recorded entries, oldest first.
func (h *History) Entries() []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Entry(nil), h.entries...)
}

// Seq returns the number of navigations recorded so far, counting entries
// already trimmed by the limit. Pass it to Since to get what came after.
func (h *History) Seq() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// Since returns the kept entries recorded after seq, oldest first.
func (h *History) Since(seq int) []Entry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := min(h.total-seq, len(h.entries))
	if n <= 0 {
		return nil
	}
	return append([]Entry(nil), h.entries[len(h.entries)-n:]...)
}
