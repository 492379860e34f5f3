// Package memory is an in-memory document store used by tests and as the
// default development backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sobi/internal/core"
	"sobi/internal/store"
)

// Store keeps user profiles, diary entries and conversations in process
// memory.
type Store struct {
	mu            sync.RWMutex
	users         map[string]*store.UserDocument
	entries       map[string]store.DiaryEntry // keyed by entry ID
	conversations []store.Conversation        // insertion order
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		users:   make(map[string]*store.UserDocument),
		entries: make(map[string]store.DiaryEntry),
	}
}

// AddUser seeds a user profile. Intended for tests and dev fixtures.
func (s *Store) AddUser(userID string, records []core.RawRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userID] = &store.UserDocument{
		Username: userID,
		Profile:  store.Profile{Records: records},
	}
}

// FindUserByID returns a copy of the stored profile document.
func (s *Store) FindUserByID(ctx context.Context, userID string) (*store.UserDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.users[userID]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	cp := *doc
	return &cp, nil
}

// ListEntries returns the user's diary entries, oldest first by insertion
// date.
func (s *Store) ListEntries(ctx context.Context, userID string) ([]store.DiaryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var entries []store.DiaryEntry
	for _, e := range s.entries {
		if e.UserID == userID {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Date < entries[j].Date })
	return entries, nil
}

// InsertEntry stores the entry under a fresh ID.
func (s *Store) InsertEntry(ctx context.Context, e store.DiaryEntry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = uuid.NewString()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	s.entries[e.ID] = e
	return e.ID, nil
}

// ListConversations returns the user's sessions, most recently inserted
// first.
func (s *Store) ListConversations(ctx context.Context, userID string, limit int) ([]store.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var convs []store.Conversation
	for i := len(s.conversations) - 1; i >= 0; i-- {
		c := s.conversations[i]
		if c.UserID != userID {
			continue
		}
		convs = append(convs, c)
		if limit > 0 && len(convs) == limit {
			break
		}
	}
	return convs, nil
}

// InsertConversation stores the session under a fresh ID.
func (s *Store) InsertConversation(ctx context.Context, c store.Conversation) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = uuid.NewString()
	s.conversations = append(s.conversations, c)
	return c.ID, nil
}

// SetEntryAudioURL attaches an audio URL to a stored entry.
func (s *Store) SetEntryAudioURL(ctx context.Context, entryID, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entryID]
	if !ok {
		return fmt.Errorf("diary entry %q not found", entryID)
	}
	e.AudioURL = url
	s.entries[entryID] = e
	return nil
}
