// Package storage persists conversation history and user profiles.
//
// Information Hiding:
// - On-disk layout and database schema hidden behind interfaces
// - Reading something that does not exist yet returns empty values, not
//   errors; callers never distinguish "new user" from "empty history"
package storage

import (
	"context"

	"github.com/richinex/hermes/model"
)

// HistoryStore persists per-conversation message history. Conversations are
// namespaced by user.
type HistoryStore interface {
	// Read returns the full history of a conversation, oldest first. A
	// conversation that has never been written reads as empty.
	Read(ctx context.Context, userID, conversationID string) ([]model.Message, error)

	// Write replaces the stored history of a conversation.
	Write(ctx context.Context, userID, conversationID string, history []model.Message) error

	// Clear removes a conversation and its history.
	Clear(ctx context.Context, userID, conversationID string) error

	// Conversations lists a user's conversation IDs, most recently written
	// first.
	Conversations(ctx context.Context, userID string) ([]string, error)
}

// ProfileStore persists the per-user profile summary with its refresh
// metadata.
type ProfileStore interface {
	// LoadProfile returns the stored profile. A user without one gets zero
	// values and no error.
	LoadProfile(ctx context.Context, userID string) (model.ProfileSummary, model.ProfileMeta, error)

	// SaveProfile replaces the stored profile.
	SaveProfile(ctx context.Context, userID string, summary model.ProfileSummary, meta model.ProfileMeta) error
}

// Store combines history and profile persistence, which every backend in
// this package provides together.
type Store interface {
	HistoryStore
	ProfileStore
}
