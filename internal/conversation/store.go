// Package conversation holds the in-memory, append-only message history of a chat session.
package conversation

import (
	"sync"
	"time"

	"buiq-backend/internal/models"
)

// Store is an ordered, append-only sequence of messages. Insertion order is
// display order. Ids and timestamps never decrease.
type Store struct {
	mu       sync.RWMutex
	messages []models.Message
	now      func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock returns an empty store that stamps messages using now.
func NewStoreWithClock(now func() time.Time) *Store {
	return &Store{
		messages: make([]models.Message, 0, 16),
		now:      now,
	}
}

// Append creates a message with a fresh id and timestamp and adds it to the end.
func (s *Store) Append(text string, sender models.Sender) models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UTC()
	id := ts.UnixMilli()

	if n := len(s.messages); n > 0 {
		last := s.messages[n-1]
		if ts.Before(last.Timestamp) {
			ts = last.Timestamp
		}
		if id <= last.ID {
			id = last.ID + 1
		}
	}

	msg := models.Message{
		ID:        id,
		Text:      text,
		Sender:    sender,
		Timestamp: ts,
	}
	s.messages = append(s.messages, msg)
	return msg
}

// Messages returns a copy of the conversation in display order.
func (s *Store) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	copied := make([]models.Message, len(s.messages))
	copy(copied, s.messages)
	return copied
}

// Len returns the number of stored messages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
