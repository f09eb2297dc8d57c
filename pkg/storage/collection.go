package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// CollectionStore keeps each logical collection as one JSON array file
// (<name>.json) in a directory. Reads and writes are serialized.
type CollectionStore struct {
	dir    string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewCollectionStore creates a store rooted at dir, creating it if needed
func NewCollectionStore(dir string, logger *zap.Logger) (*CollectionStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create collection directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CollectionStore{dir: dir, logger: logger}, nil
}

func (s *CollectionStore) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// readLocked returns the raw items of a collection.
// A missing file is an empty collection. Malformed content is logged and
// treated as empty so one bad write never locks the user out.
func (s *CollectionStore) readLocked(name string) ([]json.RawMessage, error) {
	data, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read collection %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.Warn("discarding malformed collection",
			zap.String("collection", name),
			zap.Error(err))
		return nil, nil
	}
	return items, nil
}

// writeLocked replaces a collection atomically using a temp file + rename
func (s *CollectionStore) writeLocked(name string, items any) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal collection %s: %w", name, err)
	}

	filePath := s.path(name)
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write collection %s: %w", name, err)
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to save collection %s: %w", name, err)
	}
	return nil
}

// decodeItems converts raw items to T. Items that fail to decode are
// logged and skipped.
func decodeItems[T any](s *CollectionStore, name string, raw []json.RawMessage) []T {
	out := make([]T, 0, len(raw))
	for i, r := range raw {
		var item T
		if err := json.Unmarshal(r, &item); err != nil {
			s.logger.Warn("skipping malformed collection item",
				zap.String("collection", name),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		out = append(out, item)
	}
	return out
}

// LoadCollection reads every item of a collection
func LoadCollection[T any](s *CollectionStore, name string) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.readLocked(name)
	if err != nil {
		return nil, err
	}
	return decodeItems[T](s, name, raw), nil
}

// StoreCollection replaces the contents of a collection
func StoreCollection[T any](s *CollectionStore, name string, items []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if items == nil {
		items = []T{}
	}
	return s.writeLocked(name, items)
}

// UpdateCollection runs fn over the current items under the store lock and
// writes back what it returns. Nothing is written when fn fails.
func UpdateCollection[T any](s *CollectionStore, name string, fn func([]T) ([]T, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.readLocked(name)
	if err != nil {
		return err
	}

	items, err := fn(decodeItems[T](s, name, raw))
	if err != nil {
		return err
	}
	if items == nil {
		items = []T{}
	}
	return s.writeLocked(name, items)
}
