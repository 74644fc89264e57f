package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/appetiteclub/apt"
)

var errCorruptState = errors.New("corrupt state file")

// DefaultStoreKey is the key under which the cart identifier is persisted.
const DefaultStoreKey = "lastbite_cart_id"

// IDStore persists the current cart identifier across restarts. Entries are
// never deleted by the storefront.
type IDStore interface {
	Load(ctx context.Context) (string, bool, error)
	Save(ctx context.Context, cartID string) error
}

// MemoryStore keeps the identifier in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	cartID string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cartID, s.cartID != "", nil
}

func (s *MemoryStore) Save(ctx context.Context, cartID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cartID = cartID
	return nil
}

// FileStore keeps key/value entries in a small JSON document on disk. Other
// keys in the document are preserved on save.
type FileStore struct {
	mu     sync.Mutex
	path   string
	key    string
	logger apt.Logger
}

func NewFileStore(path, key string, logger apt.Logger) *FileStore {
	if key == "" {
		key = DefaultStoreKey
	}
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &FileStore{path: path, key: key, logger: logger}
}

func (s *FileStore) Load(ctx context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.read()
	if err != nil {
		return "", false, err
	}
	id, ok := entries[s.key]
	return id, ok && id != "", nil
}

func (s *FileStore) Save(ctx context.Context, cartID string) error {
	if cartID == "" {
		return errors.New("cart id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// An unreadable document is replaced so the next Load succeeds again.
	entries, err := s.read()
	if errors.Is(err, errCorruptState) {
		s.logger.Error("discarding corrupt state file", "path", s.path, "error", err)
		entries = make(map[string]string)
	} else if err != nil {
		return err
	}
	entries[s.key] = cartID

	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state file: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	// Write then rename so a crash never leaves a truncated file behind.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

func (s *FileStore) read() (map[string]string, error) {
	entries := make(map[string]string)

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}
	if len(raw) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", errCorruptState, err)
	}
	return entries, nil
}
