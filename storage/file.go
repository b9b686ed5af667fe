package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/richinex/hermes/model"
)

// FileStore is the default backend: one directory per user under a root,
// one JSON file per conversation plus a profile file and a conversation
// index.
//
//	<root>/<user>/hist_<conversation>.json
//	<root>/<user>/profile.json
//	<root>/<user>/conversations.json
//
// Writes go through a temp file and rename, so a crash mid-write leaves
// the previous file intact rather than a truncated one. A single mutex
// serializes writers; concurrent turns for one process are rare enough
// that finer locking buys nothing.
type FileStore struct {
	root string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed store rooted at dir, creating it if
// needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &FileStore{root: dir}, nil
}

const (
	historyPrefix = "hist_"
	profileFile   = "profile.json"
	indexFile     = "conversations.json"
)

// validateID rejects IDs that could escape the storage root when used as
// path components.
func validateID(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%s ID must not be empty", kind)
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return fmt.Errorf("invalid %s ID %q", kind, id)
	}
	return nil
}

func (s *FileStore) userDir(userID string) string {
	return filepath.Join(s.root, userID)
}

func (s *FileStore) historyPath(userID, conversationID string) string {
	return filepath.Join(s.userDir(userID), historyPrefix+conversationID+".json")
}

// Read returns a conversation's history. Missing files read as empty.
func (s *FileStore) Read(_ context.Context, userID, conversationID string) ([]model.Message, error) {
	if err := validateID("user", userID); err != nil {
		return nil, err
	}
	if err := validateID("conversation", conversationID); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.historyPath(userID, conversationID))
	if errors.Is(err, os.ErrNotExist) {
		return []model.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	var history []model.Message
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, fmt.Errorf("corrupt history file for %s/%s: %w", userID, conversationID, err)
	}
	return history, nil
}

// Write replaces a conversation's history and moves it to the front of the
// user's conversation index.
func (s *FileStore) Write(_ context.Context, userID, conversationID string, history []model.Message) error {
	if err := validateID("user", userID); err != nil {
		return err
	}
	if err := validateID("conversation", conversationID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.userDir(userID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create user directory: %w", err)
	}
	if history == nil {
		history = []model.Message{}
	}
	if err := writeJSONAtomic(s.historyPath(userID, conversationID), history); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}

	index := s.readIndex(userID)
	index = promote(index, conversationID)
	if err := writeJSONAtomic(filepath.Join(dir, indexFile), index); err != nil {
		return fmt.Errorf("failed to write conversation index: %w", err)
	}
	return nil
}

// Clear removes a conversation's history file and index entry. Clearing a
// conversation that does not exist is not an error.
func (s *FileStore) Clear(_ context.Context, userID, conversationID string) error {
	if err := validateID("user", userID); err != nil {
		return err
	}
	if err := validateID("conversation", conversationID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.historyPath(userID, conversationID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove history: %w", err)
	}

	index := s.readIndex(userID)
	kept := index[:0]
	for _, id := range index {
		if id != conversationID {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(index) {
		return nil
	}
	if err := writeJSONAtomic(filepath.Join(s.userDir(userID), indexFile), kept); err != nil {
		return fmt.Errorf("failed to write conversation index: %w", err)
	}
	return nil
}

// Conversations lists a user's conversations, most recently written first.
func (s *FileStore) Conversations(_ context.Context, userID string) ([]string, error) {
	if err := validateID("user", userID); err != nil {
		return nil, err
	}
	return s.readIndex(userID), nil
}

// readIndex loads the conversation index, falling back to a directory scan
// when the index is missing or unreadable. The scan loses recency order
// but never loses conversations.
func (s *FileStore) readIndex(userID string) []string {
	raw, err := os.ReadFile(filepath.Join(s.userDir(userID), indexFile))
	if err == nil {
		var index []string
		if json.Unmarshal(raw, &index) == nil {
			return index
		}
	}

	entries, err := os.ReadDir(s.userDir(userID))
	if err != nil {
		return []string{}
	}
	index := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, historyPrefix) && strings.HasSuffix(name, ".json") {
			index = append(index, strings.TrimSuffix(strings.TrimPrefix(name, historyPrefix), ".json"))
		}
	}
	return index
}

// profileWire is the on-disk profile shape: the summary sections with a
// meta block alongside.
type profileWire struct {
	model.ProfileSummary
	Meta model.ProfileMeta `json:"meta"`
}

// LoadProfile returns the stored profile, or zero values when none exists.
func (s *FileStore) LoadProfile(_ context.Context, userID string) (model.ProfileSummary, model.ProfileMeta, error) {
	if err := validateID("user", userID); err != nil {
		return model.ProfileSummary{}, model.ProfileMeta{}, err
	}

	raw, err := os.ReadFile(filepath.Join(s.userDir(userID), profileFile))
	if errors.Is(err, os.ErrNotExist) {
		return model.ProfileSummary{}, model.ProfileMeta{}, nil
	}
	if err != nil {
		return model.ProfileSummary{}, model.ProfileMeta{}, fmt.Errorf("failed to read profile: %w", err)
	}

	var wire profileWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return model.ProfileSummary{}, model.ProfileMeta{}, fmt.Errorf("corrupt profile for %s: %w", userID, err)
	}
	return wire.ProfileSummary.Normalize(), wire.Meta, nil
}

// SaveProfile replaces the stored profile.
func (s *FileStore) SaveProfile(_ context.Context, userID string, summary model.ProfileSummary, meta model.ProfileMeta) error {
	if err := validateID("user", userID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.userDir(userID), 0o755); err != nil {
		return fmt.Errorf("failed to create user directory: %w", err)
	}
	wire := profileWire{ProfileSummary: summary, Meta: meta}
	if err := writeJSONAtomic(filepath.Join(s.userDir(userID), profileFile), wire); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

// writeJSONAtomic marshals v and replaces path via temp file and rename.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// promote moves id to the front of index, inserting it if absent.
func promote(index []string, id string) []string {
	out := []string{id}
	for _, existing := range index {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

// Verify FileStore implements Store
var _ Store = (*FileStore)(nil)
