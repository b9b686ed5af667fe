package storage

import (
	"context"
	"sync"

	"github.com/richinex/hermes/model"
)

// MemoryStore implements Store in process memory. History disappears when
// the process exits; intended for tests and throwaway sessions.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[string][]model.Message // keyed by userID+"/"+conversationID
	order    map[string][]string        // conversation IDs per user, newest first
	profiles map[string]profileWire
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages: make(map[string][]model.Message),
		order:    make(map[string][]string),
		profiles: make(map[string]profileWire),
	}
}

func conversationKey(userID, conversationID string) string {
	return userID + "/" + conversationID
}

// Read returns a copy of the conversation's history.
func (s *MemoryStore) Read(_ context.Context, userID, conversationID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.messages[conversationKey(userID, conversationID)]
	history := make([]model.Message, len(stored))
	copy(history, stored)
	return history, nil
}

// Write replaces the conversation's history.
func (s *MemoryStore) Write(_ context.Context, userID, conversationID string, history []model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]model.Message, len(history))
	copy(stored, history)
	s.messages[conversationKey(userID, conversationID)] = stored
	s.order[userID] = promote(s.order[userID], conversationID)
	return nil
}

// Clear removes a conversation.
func (s *MemoryStore) Clear(_ context.Context, userID, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.messages, conversationKey(userID, conversationID))
	kept := []string{}
	for _, id := range s.order[userID] {
		if id != conversationID {
			kept = append(kept, id)
		}
	}
	s.order[userID] = kept
	return nil
}

// Conversations lists a user's conversation IDs, most recently written
// first.
func (s *MemoryStore) Conversations(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.order[userID]))
	copy(out, s.order[userID])
	return out, nil
}

// LoadProfile returns the stored profile, or zero values when none exists.
func (s *MemoryStore) LoadProfile(_ context.Context, userID string) (model.ProfileSummary, model.ProfileMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wire, ok := s.profiles[userID]
	if !ok {
		return model.ProfileSummary{}, model.ProfileMeta{}, nil
	}
	return wire.ProfileSummary, wire.Meta, nil
}

// SaveProfile replaces the stored profile.
func (s *MemoryStore) SaveProfile(_ context.Context, userID string, summary model.ProfileSummary, meta model.ProfileMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[userID] = profileWire{ProfileSummary: summary, Meta: meta}
	return nil
}

// Verify MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
