// Package store keeps per-user bot state in memory. Everything here is
// lost on restart, which is fine for this bot.
package store

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ErrEmptyEntry is returned when a note or task text is empty or
// consists of whitespace only.
var ErrEmptyEntry = errors.New("entry text is empty")

// List maps a user to an ordered sequence of text entries. Entries are
// append-only until Clear drops the whole sequence. Safe for concurrent
// use; appends for different users don't interfere.
type List struct {
	mu    sync.RWMutex
	items map[int64][]string
}

func NewList() *List {
	return &List{items: make(map[int64][]string)}
}

// Append adds the entry to the end of the user's sequence, creating the
// sequence if needed.
func (l *List) Append(usr int64, entry string) error {
	if strings.TrimSpace(entry) == "" {
		return ErrEmptyEntry
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.items[usr] = append(l.items[usr], entry)
	return nil
}

// Items returns a copy of the user's sequence in insertion order.
func (l *List) Items(usr int64) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	items := l.items[usr]
	out := make([]string, len(items))
	copy(out, items)
	return out
}

// Clear removes the user's sequence entirely.
func (l *List) Clear(usr int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.items, usr)
}

// Feeds maps a user to a preferred news feed URL. Users without a
// preference get the default.
type Feeds struct {
	mu         sync.RWMutex
	urls       map[int64]string
	defaultURL string
}

func NewFeeds(defaultURL string) *Feeds {
	return &Feeds{
		urls:       make(map[int64]string),
		defaultURL: defaultURL,
	}
}

// Set overwrites the user's feed URL unconditionally. The URL isn't
// validated here; a bad one surfaces when the feed is fetched.
func (f *Feeds) Set(usr int64, url string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.urls[usr] = url
}

func (f *Feeds) Get(usr int64) string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if url, ok := f.urls[usr]; ok {
		return url
	}
	return f.defaultURL
}

// Enumerate renders entries as a 1-indexed numbered list, one per line.
func Enumerate(items []string) string {
	var sb strings.Builder
	for i, item := range items {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, item))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
