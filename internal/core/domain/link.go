package domain

import "sync"

// LinkEntry maps a human-readable key (anchor text or sitemap slug)
// to a canonical absolute URL.
type LinkEntry struct {
	Key    string `json:"key"`
	Target string `json:"target"`
}

// LinkIndex is an insertion-ordered mapping from link keys to URLs.
// Re-setting an existing key replaces its target but keeps its original
// position, so iteration order is the order keys were first seen.
// Keys keep their original case; case folding is left to resolution.
type LinkIndex struct {
	mu      sync.RWMutex
	entries []LinkEntry
	pos     map[string]int
}

// NewLinkIndex creates an empty link index.
func NewLinkIndex() *LinkIndex {
	return &LinkIndex{pos: make(map[string]int)}
}

// Set records key -> target. Last write wins.
func (l *LinkIndex) Set(key, target string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if i, ok := l.pos[key]; ok {
		l.entries[i].Target = target
		return
	}
	l.pos[key] = len(l.entries)
	l.entries = append(l.entries, LinkEntry{Key: key, Target: target})
}

// Get returns the target for an exact key.
func (l *LinkIndex) Get(key string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i, ok := l.pos[key]
	if !ok {
		return "", false
	}
	return l.entries[i].Target, true
}

// Len returns the number of entries.
func (l *LinkIndex) Len() int {
	if l == nil {
		return 0
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Entries returns a copy of the entries in insertion order.
func (l *LinkIndex) Entries() []LinkEntry {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]LinkEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
